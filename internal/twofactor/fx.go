// Package twofactor wires two-factor authentication into the fx graph.
package twofactor

import (
	"github.com/feltflyt/feltflyt/internal/twofactor/service"
	"go.uber.org/fx"
)

var Module = fx.Module("twofactor",
	fx.Provide(service.New),
)
