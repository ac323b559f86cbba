package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/feltflyt/feltflyt/internal/account"
	"github.com/feltflyt/feltflyt/internal/audit"
	"github.com/feltflyt/feltflyt/internal/config"
	"github.com/feltflyt/feltflyt/internal/logger"
	"github.com/feltflyt/feltflyt/internal/metrics"
	"github.com/feltflyt/feltflyt/internal/migration"
	"github.com/feltflyt/feltflyt/internal/ratelimit"
	"github.com/feltflyt/feltflyt/internal/server"
	"github.com/feltflyt/feltflyt/internal/session"
	"github.com/feltflyt/feltflyt/internal/sso"
	"github.com/feltflyt/feltflyt/internal/token"
	"github.com/feltflyt/feltflyt/internal/totp"
	"github.com/feltflyt/feltflyt/internal/twofactor"
	"github.com/feltflyt/feltflyt/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(newSnowflakeNode),
		db.Module,
		migration.Module,
		metrics.Module,

		token.Module,
		totp.Module,
		account.Module,
		session.Module,
		sso.Module,
		twofactor.Module,
		audit.Module,
		ratelimit.Module,

		server.Module,
	)
	app.Run()
}

func newSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
