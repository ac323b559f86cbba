package session

import (
	"github.com/feltflyt/feltflyt/internal/session/cookie"
	"github.com/feltflyt/feltflyt/internal/session/repository"
	"github.com/feltflyt/feltflyt/internal/session/service"
	"go.uber.org/fx"
)

var Module = fx.Module("session",
	fx.Provide(repository.New),
	fx.Provide(service.New),
	fx.Provide(cookie.NewManager),
)
