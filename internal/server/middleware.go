package server

import (
	"errors"
	"strings"
	"time"

	"github.com/feltflyt/feltflyt/internal/metrics"
	sessiondomain "github.com/feltflyt/feltflyt/internal/session/domain"
	"github.com/feltflyt/feltflyt/internal/token"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const ctxClaimsKey = "auth.claims"

// AuthRequired authenticates the request from the session cookie or a
// Bearer header, then consults the revocation list. The revocation check
// fails closed: a store error rejects the request rather than letting a
// possibly-revoked token through.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := s.sessionToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if s.codec == nil {
			AbortWithError(c, s.cfg.ValidateTokenSecrets())
			return
		}

		claims, err := s.codec.Verify(raw)
		if err != nil {
			s.metrics.TokenVerification(tokenOutcome(err))
			AbortWithError(c, err)
			return
		}
		s.metrics.TokenVerification(metrics.OutcomeOK)

		revoked, err := s.sessions.IsBlacklisted(c.Request.Context(), claims.JTI())
		if err != nil {
			s.metrics.RevocationCheck(metrics.OutcomeError)
			AbortWithError(c, err)
			return
		}
		if revoked {
			s.metrics.RevocationCheck(metrics.OutcomeRevoked)
			AbortWithError(c, sessiondomain.ErrSessionRevoked)
			return
		}
		s.metrics.RevocationCheck(metrics.OutcomeOK)

		if err := s.sessions.Touch(c.Request.Context(), claims.JTI(), time.Now().UTC()); err != nil {
			// Last-seen is advisory; never block the request over it.
			s.log.Debug("session touch failed", zap.Error(err))
		}

		c.Set(ctxClaimsKey, claims)
		c.Next()
	}
}

// sessionToken prefers the session cookie and falls back to a Bearer
// Authorization header for non-browser clients.
func (s *Server) sessionToken(c *gin.Context) (string, bool) {
	if raw, ok := s.cookies.ReadSession(c); ok {
		return raw, true
	}
	header := c.GetHeader("Authorization")
	if after, found := strings.CutPrefix(header, "Bearer "); found {
		after = strings.TrimSpace(after)
		if after != "" {
			return after, true
		}
	}
	return "", false
}

func claimsFrom(c *gin.Context) (*token.Claims, bool) {
	v, ok := c.Get(ctxClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*token.Claims)
	return claims, ok
}

func tokenOutcome(err error) string {
	switch {
	case errors.Is(err, token.ErrTokenExpired):
		return metrics.OutcomeExpired
	case errors.Is(err, token.ErrTokenMalformed):
		return metrics.OutcomeMalformed
	default:
		return metrics.OutcomeInvalid
	}
}
