// Package account wires account management into the fx graph.
package account

import (
	"github.com/feltflyt/feltflyt/internal/account/repository"
	"github.com/feltflyt/feltflyt/internal/account/service"
	"go.uber.org/fx"
)

var Module = fx.Module("account",
	fx.Provide(
		repository.New,
		service.New,
	),
)
