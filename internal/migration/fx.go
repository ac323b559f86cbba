package migration

import (
	accountdomain "github.com/feltflyt/feltflyt/internal/account/domain"
	auditdomain "github.com/feltflyt/feltflyt/internal/audit/domain"
	"github.com/feltflyt/feltflyt/internal/config"
	sessiondomain "github.com/feltflyt/feltflyt/internal/session/domain"
	ssodomain "github.com/feltflyt/feltflyt/internal/sso/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType != "postgres" {
			// Local sqlite development has no migration history to track.
			return conn.AutoMigrate(
				&accountdomain.User{},
				&sessiondomain.RevocationEntry{},
				&sessiondomain.ActiveSession{},
				&ssodomain.RedemptionToken{},
				&auditdomain.AuditLog{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
