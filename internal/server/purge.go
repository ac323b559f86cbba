package server

import (
	"context"
	"time"

	sessiondomain "github.com/feltflyt/feltflyt/internal/session/domain"
	ssodomain "github.com/feltflyt/feltflyt/internal/sso/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const purgeInterval = time.Hour

// runPurge garbage-collects expired revocation entries, session rows,
// and unredeemed SSO tokens in the background. Expiry is enforced at
// read time; the sweep only keeps the tables from growing.
func runPurge(lc fx.Lifecycle, log *zap.Logger, sessions sessiondomain.Service, sso ssodomain.Service) {
	log = log.Named("server.purge")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				ticker := time.NewTicker(purgeInterval)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						if _, err := sessions.PurgeExpired(ctx); err != nil {
							log.Warn("session purge failed", zap.Error(err))
						}
						if _, err := sso.PurgeExpired(ctx); err != nil {
							log.Warn("sso token purge failed", zap.Error(err))
						}
					}
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			<-done
			return nil
		},
	})
}
