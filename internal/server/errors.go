package server

import (
	"errors"
	"net/http"

	accountdomain "github.com/feltflyt/feltflyt/internal/account/domain"
	"github.com/feltflyt/feltflyt/internal/config"
	sessiondomain "github.com/feltflyt/feltflyt/internal/session/domain"
	ssodomain "github.com/feltflyt/feltflyt/internal/sso/domain"
	"github.com/feltflyt/feltflyt/internal/token"
	twofactordomain "github.com/feltflyt/feltflyt/internal/twofactor/domain"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string   `json:"type"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrRateLimited    = errors.New("rate_limited")
	ErrTotpRequired   = errors.New("totp_required")
)

// ErrorHandlingMiddleware converts the last gin error into the JSON
// envelope. Handlers push errors with AbortWithError and never write
// error bodies themselves.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}

	// Credential failures are deliberately indistinguishable.
	case errors.Is(err, accountdomain.ErrInvalidCredentials),
		errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "invalid_credentials",
			Message: "authentication failed",
		}

	case errors.Is(err, ErrTotpRequired):
		return http.StatusUnauthorized, errorPayload{
			Type:    "totp_required",
			Message: "a second factor is required",
		}

	case errors.Is(err, token.ErrTokenExpired):
		return http.StatusUnauthorized, errorPayload{
			Type:    "token_expired",
			Message: "session token expired",
		}
	case errors.Is(err, token.ErrTokenMalformed):
		return http.StatusUnauthorized, errorPayload{
			Type:    "token_malformed",
			Message: "session token malformed",
		}
	case errors.Is(err, token.ErrTokenInvalid):
		return http.StatusUnauthorized, errorPayload{
			Type:    "token_invalid",
			Message: "session token invalid",
		}
	case errors.Is(err, sessiondomain.ErrSessionRevoked):
		return http.StatusUnauthorized, errorPayload{
			Type:    "session_revoked",
			Message: "session has been revoked",
		}
	case errors.Is(err, sessiondomain.ErrCannotTerminateCurrent):
		return http.StatusConflict, errorPayload{
			Type:    "cannot_terminate_current",
			Message: "use logout to end the current session",
		}

	// SSO failures are not sensitive; the specific reason is surfaced.
	case errors.Is(err, ssodomain.ErrTokenExpiredOrUsed):
		return http.StatusUnauthorized, errorPayload{
			Type:    "sso_token_expired_or_used",
			Message: "sso token is expired or already used",
		}
	case errors.Is(err, ssodomain.ErrOriginMismatch):
		return http.StatusForbidden, errorPayload{
			Type:    "sso_origin_mismatch",
			Message: "request origin is not allowed",
		}
	case errors.Is(err, ssodomain.ErrIPMismatch):
		return http.StatusUnauthorized, errorPayload{
			Type:    "sso_ip_mismatch",
			Message: "sso token was issued to a different address",
		}

	case errors.Is(err, twofactordomain.ErrAlreadyEnabled):
		return http.StatusConflict, errorPayload{
			Type:    "totp_already_enabled",
			Message: "two-factor authentication is already enabled",
		}
	case errors.Is(err, twofactordomain.ErrNotConfigured):
		return http.StatusBadRequest, errorPayload{
			Type:    "totp_not_configured",
			Message: "two-factor authentication is not configured",
		}
	case errors.Is(err, twofactordomain.ErrBackupCodeExhausted):
		return http.StatusUnauthorized, errorPayload{
			Type:    "backup_code_exhausted",
			Message: "no backup codes remain",
		}
	// A replayed code reads as invalid to the caller; the audit trail
	// keeps the distinction.
	case errors.Is(err, twofactordomain.ErrCodeReplayed),
		errors.Is(err, twofactordomain.ErrCodeInvalid):
		return http.StatusUnauthorized, errorPayload{
			Type:    "totp_code_invalid",
			Message: "verification code rejected",
		}

	case errors.Is(err, accountdomain.ErrPasswordTooWeak):
		return http.StatusBadRequest, weakPasswordPayload(err)

	case errors.Is(err, accountdomain.ErrUserExists):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "resource already exists",
		}
	case errors.Is(err, accountdomain.ErrUserNotFound),
		errors.Is(err, sessiondomain.ErrSessionNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "resource not found",
		}

	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_request",
			Message: "invalid request",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many attempts, slow down",
		}

	case errors.Is(err, config.ErrServiceMisconfigured):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_misconfigured",
			Message: "service is not configured for this operation",
		}
	case errors.Is(err, sessiondomain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "store_unavailable",
			Message: "persistent store unavailable",
		}

	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func weakPasswordPayload(err error) errorPayload {
	payload := errorPayload{
		Type:    "password_too_weak",
		Message: "password does not meet the policy",
	}
	var weak *accountdomain.WeakPasswordError
	if errors.As(err, &weak) {
		payload.Errors = weak.Result.Errors
	}
	return payload
}
