package server

import (
	"net/http"
	"time"

	accountdomain "github.com/feltflyt/feltflyt/internal/account/domain"
	auditdomain "github.com/feltflyt/feltflyt/internal/audit/domain"
	"github.com/feltflyt/feltflyt/internal/metrics"
	sessiondomain "github.com/feltflyt/feltflyt/internal/session/domain"
	"github.com/feltflyt/feltflyt/internal/token"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (s *Server) registerAuthRoutes() {
	s.engine.POST("/signup", s.Signup)
	s.engine.POST("/login", s.Login)

	authed := s.engine.Group("", s.AuthRequired())
	authed.POST("/logout", s.Logout)
	authed.GET("/me", s.Me)
	authed.POST("/password/change", s.ChangePassword)
}

type signupRequest struct {
	Email    string `json:"email" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
	Kind     string `json:"kind"`

	OrgID            string `json:"org_id"`
	OrgSlug          string `json:"org_slug"`
	SubscriptionTier string `json:"subscription_tier"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`

	// Second factor, required once the account has it enabled.
	Code string `json:"code"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

type userView struct {
	ID          string            `json:"id"`
	Email       string            `json:"email"`
	Name        string            `json:"name"`
	Kind        token.SubjectKind `json:"kind"`
	OrgID       string            `json:"org_id,omitempty"`
	OrgSlug     string            `json:"org_slug,omitempty"`
	TOTPEnabled bool              `json:"totp_enabled"`
}

func viewOf(user *accountdomain.User) userView {
	return userView{
		ID:          user.ID.String(),
		Email:       user.Email,
		Name:        user.Name,
		Kind:        user.Kind,
		OrgID:       user.OrgID,
		OrgSlug:     user.OrgSlug,
		TOTPEnabled: user.TOTPEnabled,
	}
}

func (s *Server) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	kind := token.SubjectKind(req.Kind)
	if req.Kind == "" {
		kind = token.SubjectKlient
	}
	if !kind.Valid() {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	user, err := s.accounts.CreateUser(c.Request.Context(), accountdomain.CreateUserRequest{
		Email:            req.Email,
		Name:             req.Name,
		Password:         req.Password,
		Kind:             kind,
		OrgID:            req.OrgID,
		OrgSlug:          req.OrgSlug,
		SubscriptionTier: req.SubscriptionTier,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditSvc.Record(c.Request.Context(), auditdomain.Entry{
		SubjectID:   user.ID.String(),
		SubjectKind: user.Kind,
		Action:      "account.created",
		IPAddress:   c.ClientIP(),
		UserAgent:   c.Request.UserAgent(),
	})

	c.JSON(http.StatusCreated, gin.H{"user": viewOf(user)})
}

func (s *Server) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if s.codec == nil {
		AbortWithError(c, s.cfg.ValidateTokenSecrets())
		return
	}

	ctx := c.Request.Context()
	clientIP := c.ClientIP()

	if !s.loginLimiter.Allow(ctx, req.Email, clientIP) {
		s.metrics.LoginAttempt(metrics.OutcomeRateLimited)
		AbortWithError(c, ErrRateLimited)
		return
	}

	user, err := s.accounts.Login(ctx, req.Email, req.Password)
	if err != nil {
		s.metrics.LoginAttempt(metrics.OutcomeInvalid)
		s.auditSvc.Record(ctx, auditdomain.Entry{
			Action:    "login.failed",
			Metadata:  map[string]any{"email": req.Email},
			IPAddress: clientIP,
			UserAgent: c.Request.UserAgent(),
		})
		AbortWithError(c, err)
		return
	}

	if user.TOTPEnabled {
		if req.Code == "" {
			AbortWithError(c, ErrTotpRequired)
			return
		}
		if err := s.twofactorSvc.VerifyLogin(ctx, user.ID.String(), req.Code); err != nil {
			s.metrics.TwoFactorCheck(metrics.OutcomeInvalid)
			s.metrics.LoginAttempt(metrics.OutcomeInvalid)
			AbortWithError(c, err)
			return
		}
		s.metrics.TwoFactorCheck(metrics.OutcomeOK)
	}

	csrfToken, err := s.issueSession(c, sessionSeed{
		SubjectID:          user.ID.String(),
		SubjectKind:        user.Kind,
		OrgID:              user.OrgID,
		OrgSlug:            user.OrgSlug,
		SubscriptionTier:   user.SubscriptionTier,
		SubscriptionActive: user.SubscriptionActive,
	})
	if err != nil {
		s.metrics.LoginAttempt(metrics.OutcomeError)
		AbortWithError(c, err)
		return
	}

	s.metrics.LoginAttempt(metrics.OutcomeOK)
	s.auditSvc.Record(ctx, auditdomain.Entry{
		SubjectID:   user.ID.String(),
		SubjectKind: user.Kind,
		Action:      "login.success",
		IPAddress:   clientIP,
		UserAgent:   c.Request.UserAgent(),
	})

	c.JSON(http.StatusOK, gin.H{
		"user":       viewOf(user),
		"csrf_token": csrfToken,
	})
}

func (s *Server) Logout(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	ctx := c.Request.Context()

	if err := s.sessions.Logout(ctx, claims); err != nil {
		AbortWithError(c, err)
		return
	}

	// The refresh token lives in its own cookie with its own jti; revoke
	// it too so neither half of the pair survives logout. Only a token
	// that verifies against our secret and belongs to this session's
	// subject may write a revocation row; anything else in the cookie is
	// ignored. An expired refresh token needs no row, it can no longer
	// be presented anyway.
	if raw, found := s.cookies.ReadRefresh(c); found && s.codec != nil {
		if refresh, err := s.codec.Verify(raw); err == nil && refresh.SubjectID() == claims.SubjectID() {
			if err := s.sessions.Blacklist(ctx, sessiondomain.BlacklistRequest{
				JTI:         refresh.JTI(),
				SubjectID:   refresh.SubjectID(),
				SubjectKind: refresh.SubjectKind,
				Reason:      "logout",
				TTL:         s.cookies.RefreshTTL(),
			}); err != nil {
				s.log.Warn("refresh token revocation failed", zap.Error(err))
			}
		}
	}

	s.cookies.ClearSession(c)
	s.cookies.ClearRefresh(c)
	s.csrfGuard.ClearToken(c)

	s.auditSvc.Record(ctx, auditdomain.Entry{
		SubjectID:   claims.SubjectID(),
		SubjectKind: claims.SubjectKind,
		Action:      "logout",
		IPAddress:   c.ClientIP(),
		UserAgent:   c.Request.UserAgent(),
	})

	c.Status(http.StatusNoContent)
}

func (s *Server) Me(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	user, err := s.accounts.FindByID(c.Request.Context(), claims.SubjectID())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": viewOf(user)})
}

func (s *Server) ChangePassword(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	ctx := c.Request.Context()
	if err := s.accounts.ChangePassword(ctx, claims.SubjectID(), req.CurrentPassword, req.NewPassword); err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditSvc.Record(ctx, auditdomain.Entry{
		SubjectID:   claims.SubjectID(),
		SubjectKind: claims.SubjectKind,
		Action:      "password.changed",
		IPAddress:   c.ClientIP(),
		UserAgent:   c.Request.UserAgent(),
	})

	c.Status(http.StatusNoContent)
}

// sessionSeed is the identity a new session is minted for, either from a
// password login or a redeemed SSO grant.
type sessionSeed struct {
	SubjectID          string
	SubjectKind        token.SubjectKind
	OrgID              string
	OrgSlug            string
	SubscriptionTier   string
	SubscriptionActive bool
}

// issueSession mints the session and refresh token pair, tracks the
// session for the devices listing, and sets the three cookies. Returns
// the CSRF token for the response body.
func (s *Server) issueSession(c *gin.Context, seed sessionSeed) (string, error) {
	now := time.Now().UTC()
	sessionTTL := s.cookies.SessionTTL()

	claims := token.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:      uuid.NewString(),
			Subject: seed.SubjectID,
		},
		SubjectKind:        seed.SubjectKind,
		OrgID:              seed.OrgID,
		OrgSlug:            seed.OrgSlug,
		SubscriptionTier:   seed.SubscriptionTier,
		SubscriptionActive: seed.SubscriptionActive,
	}

	sessionToken, err := s.codec.Sign(claims, sessionTTL)
	if err != nil {
		return "", err
	}

	refreshClaims := claims
	refreshClaims.ID = uuid.NewString()
	refreshToken, err := s.codec.Sign(refreshClaims, s.cookies.RefreshTTL())
	if err != nil {
		return "", err
	}

	if _, err := s.sessions.Track(c.Request.Context(), sessiondomain.TrackRequest{
		JTI:         claims.ID,
		SubjectID:   seed.SubjectID,
		SubjectKind: seed.SubjectKind,
		IPAddress:   c.ClientIP(),
		UserAgent:   c.Request.UserAgent(),
		ExpiresAt:   now.Add(sessionTTL),
	}); err != nil {
		return "", err
	}

	s.cookies.SetSession(c, sessionToken, now.Add(sessionTTL))
	s.cookies.SetRefresh(c, refreshToken, now.Add(s.cookies.RefreshTTL()))

	csrfToken, err := s.csrfGuard.IssueToken(c)
	if err != nil {
		return "", err
	}
	return csrfToken, nil
}
