package sso

import (
	"github.com/feltflyt/feltflyt/internal/sso/repository"
	"github.com/feltflyt/feltflyt/internal/sso/service"
	"go.uber.org/fx"
)

var Module = fx.Module("sso",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
