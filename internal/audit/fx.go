// Package audit wires the audit trail into the fx graph.
package audit

import (
	"github.com/feltflyt/feltflyt/internal/audit/repository"
	"github.com/feltflyt/feltflyt/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit",
	fx.Provide(
		repository.New,
		service.New,
	),
)
