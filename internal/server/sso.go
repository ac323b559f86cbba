package server

import (
	"net/http"
	"net/url"

	auditdomain "github.com/feltflyt/feltflyt/internal/audit/domain"
	"github.com/feltflyt/feltflyt/internal/metrics"
	"github.com/feltflyt/feltflyt/internal/sso"
	ssodomain "github.com/feltflyt/feltflyt/internal/sso/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) registerSSORoutes() {
	s.engine.GET("/sso-launch", s.AuthRequired(), s.SSOLaunch)
	// Redeem carries no cookies from this origin; it is CSRF-exempt and
	// guarded by the origin check plus the single-use IP-bound token.
	s.engine.POST("/sso/redeem", s.SSORedeem)
}

// The relay form posts urlencoded; JSON is accepted for API clients.
type ssoRedeemRequest struct {
	Token string `json:"token" form:"token" binding:"required"`
}

// SSOLaunch hands the authenticated browser to a sibling origin. The
// response is a self-submitting POST form so the redemption token never
// appears in a URL.
func (s *Server) SSOLaunch(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	// Issuance may only be triggered from one of our own pages. A
	// third-party page linking or embedding the launch URL fails here
	// before any token is minted; a request carrying neither Origin nor
	// Referer is refused for the same reason.
	if err := sso.VerifyOrigin(c.GetHeader("Origin"), c.GetHeader("Referer"), s.cfg.SSOAllowedOrigins); err != nil {
		AbortWithError(c, err)
		return
	}

	target := c.Query("target")
	parsed, err := url.Parse(target)
	if err != nil || parsed.Scheme == "" || parsed.Hostname() == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if err := sso.VerifyOrigin(target, "", s.cfg.SSOAllowedOrigins); err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	raw, _, err := s.ssoSvc.Issue(ctx, ssodomain.IssueRequest{
		SubjectID:   claims.SubjectID(),
		SubjectKind: claims.SubjectKind,
		OrgID:       claims.OrgID,
		OrgSlug:     claims.OrgSlug,
		ClientIP:    c.ClientIP(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	form, err := sso.BuildRelayForm(target, raw)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditSvc.Record(ctx, auditdomain.Entry{
		SubjectID:   claims.SubjectID(),
		SubjectKind: claims.SubjectKind,
		Action:      "sso.issued",
		Metadata:    map[string]any{"target": parsed.Hostname()},
		IPAddress:   c.ClientIP(),
		UserAgent:   c.Request.UserAgent(),
	})

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(form))
}

// SSORedeem consumes a relay token and establishes a first-party session
// on this origin.
func (s *Server) SSORedeem(c *gin.Context) {
	var req ssoRedeemRequest
	if err := c.ShouldBind(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if s.codec == nil {
		AbortWithError(c, s.cfg.ValidateTokenSecrets())
		return
	}

	origin := c.GetHeader("Origin")
	referer := c.GetHeader("Referer")
	if err := sso.VerifyOrigin(origin, referer, s.cfg.SSOAllowedOrigins); err != nil {
		s.metrics.SSORedemption(metrics.OutcomeInvalid)
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	clientIP := c.ClientIP()

	grant, err := s.ssoSvc.Redeem(ctx, req.Token, clientIP)
	if err != nil {
		s.metrics.SSORedemption(metrics.OutcomeInvalid)
		s.auditSvc.Record(ctx, auditdomain.Entry{
			Action:    "sso.redeem_failed",
			IPAddress: clientIP,
			UserAgent: c.Request.UserAgent(),
		})
		AbortWithError(c, err)
		return
	}

	user, err := s.accounts.FindByID(ctx, grant.SubjectID)
	if err != nil {
		s.metrics.SSORedemption(metrics.OutcomeError)
		AbortWithError(c, err)
		return
	}

	csrfToken, err := s.issueSession(c, sessionSeed{
		SubjectID:          grant.SubjectID,
		SubjectKind:        grant.SubjectKind,
		OrgID:              grant.OrgID,
		OrgSlug:            grant.OrgSlug,
		SubscriptionTier:   user.SubscriptionTier,
		SubscriptionActive: user.SubscriptionActive,
	})
	if err != nil {
		s.metrics.SSORedemption(metrics.OutcomeError)
		AbortWithError(c, err)
		return
	}

	s.metrics.SSORedemption(metrics.OutcomeOK)
	s.auditSvc.Record(ctx, auditdomain.Entry{
		SubjectID:   grant.SubjectID,
		SubjectKind: grant.SubjectKind,
		Action:      "sso.redeemed",
		IPAddress:   clientIP,
		UserAgent:   c.Request.UserAgent(),
	})

	c.JSON(http.StatusOK, gin.H{
		"user":       viewOf(user),
		"csrf_token": csrfToken,
	})
}
