// Package server exposes the authentication surface over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/feltflyt/feltflyt/internal/account/domain"
	auditdomain "github.com/feltflyt/feltflyt/internal/audit/domain"
	"github.com/feltflyt/feltflyt/internal/config"
	"github.com/feltflyt/feltflyt/internal/csrf"
	"github.com/feltflyt/feltflyt/internal/metrics"
	"github.com/feltflyt/feltflyt/internal/ratelimit"
	"github.com/feltflyt/feltflyt/internal/session/cookie"
	sessiondomain "github.com/feltflyt/feltflyt/internal/session/domain"
	ssodomain "github.com/feltflyt/feltflyt/internal/sso/domain"
	"github.com/feltflyt/feltflyt/internal/token"
	twofactordomain "github.com/feltflyt/feltflyt/internal/twofactor/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	log          *zap.Logger
	codec        *token.Codec
	accounts     accountdomain.Service
	sessions     sessiondomain.Service
	cookies      *cookie.Manager
	ssoSvc       ssodomain.Service
	twofactorSvc twofactordomain.Service
	auditSvc     auditdomain.Service
	loginLimiter *ratelimit.LoginLimiter
	csrfGuard    *csrf.Guard
	metrics      *metrics.AuthMetrics
	genID        *snowflake.Node
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Log          *zap.Logger
	Codec        *token.Codec
	Accounts     accountdomain.Service
	Sessions     sessiondomain.Service
	Cookies      *cookie.Manager
	SSOSvc       ssodomain.Service
	TwofactorSvc twofactordomain.Service
	AuditSvc     auditdomain.Service
	LoginLimiter *ratelimit.LoginLimiter
	CSRFGuard    *csrf.Guard
	Metrics      *metrics.AuthMetrics
	GenID        *snowflake.Node
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		log:          p.Log.Named("server"),
		codec:        p.Codec,
		accounts:     p.Accounts,
		sessions:     p.Sessions,
		cookies:      p.Cookies,
		ssoSvc:       p.SSOSvc,
		twofactorSvc: p.TwofactorSvc,
		auditSvc:     p.AuditSvc,
		loginLimiter: p.LoginLimiter,
		csrfGuard:    p.CSRFGuard,
		metrics:      p.Metrics,
		genID:        p.GenID,
	}

	svc.registerAuthRoutes()
	svc.registerSessionRoutes()
	svc.registerTwoFactorRoutes()
	svc.registerSSORoutes()

	return svc
}

// NewEngine builds the gin engine with the shared middleware chain. The
// CSRF guard sits engine-wide; state-changing routes that must stay
// reachable without the cookie pair are exempted by path.
func NewEngine(guard *csrf.Guard, registry *prometheus.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ErrorHandlingMiddleware())
	r.Use(guard.Middleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return r
}

func newCSRFGuard(cfg config.Config) *csrf.Guard {
	return csrf.New(csrf.Options{
		CookieName: cookie.CSRFCookieName,
		Secure:     cfg.AuthCookieSecure,
		Domain:     cfg.CookieDomain,
		// Entry points that predate the cookie pair. Login and signup
		// prove possession of credentials; redeem is guarded by the
		// origin check and its single-use IP-bound token.
		AllowPaths: []string{"/signup", "/login", "/sso/redeem"},
	})
}

func run(lc fx.Lifecycle, log *zap.Logger, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Module("http.server",
	fx.Provide(
		newCSRFGuard,
		NewEngine,
	),
	fx.Invoke(NewServer),
	fx.Invoke(run),
	fx.Invoke(runPurge),
)
