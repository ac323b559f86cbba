// Package csrf implements the double-submit cookie pattern: a
// script-readable cookie carries a random token that mutating requests
// must echo in a header. Requests authenticated without cookies are
// exempt, cookies are not involved in their authentication.
package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// HeaderName is the request header that echoes the cookie token.
	HeaderName = "X-CSRF-Token"

	// APIKeyHeader marks a non-cookie credential; such requests are exempt.
	APIKeyHeader = "X-API-Key"

	tokenBytes = 32
)

// Failure codes returned in the structured 403 body.
const (
	CodeMissing  = "CSRF_TOKEN_MISSING"
	CodeMismatch = "CSRF_VALIDATION_FAILED"
)

// Options configures the guard.
type Options struct {
	CookieName string
	Secure     bool
	Domain     string
	MaxAge     int

	// AllowPaths are exact request paths that skip the check.
	AllowPaths []string
}

type Guard struct {
	cookieName string
	secure     bool
	domain     string
	maxAge     int
	allowPaths map[string]struct{}
}

// New creates a CSRF guard.
func New(opts Options) *Guard {
	allow := make(map[string]struct{}, len(opts.AllowPaths))
	for _, p := range opts.AllowPaths {
		p = strings.TrimSpace(p)
		if p != "" {
			allow[p] = struct{}{}
		}
	}
	maxAge := opts.MaxAge
	if maxAge <= 0 {
		maxAge = 12 * 60 * 60
	}
	return &Guard{
		cookieName: opts.CookieName,
		secure:     opts.Secure,
		domain:     opts.Domain,
		maxAge:     maxAge,
		allowPaths: allow,
	}
}

// Middleware rejects mutating cookie-authenticated requests whose header
// token does not match the cookie token. It runs before business logic;
// a rejected request never reaches the handler.
func (g *Guard) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isSafeMethod(c.Request.Method) {
			c.Next()
			return
		}
		if _, allowed := g.allowPaths[c.Request.URL.Path]; allowed {
			c.Next()
			return
		}
		if usesHeaderCredential(c.Request) {
			c.Next()
			return
		}

		cookieToken, err := c.Cookie(g.cookieName)
		headerToken := strings.TrimSpace(c.GetHeader(HeaderName))
		if err != nil || strings.TrimSpace(cookieToken) == "" || headerToken == "" {
			abort(c, CodeMissing, "csrf token missing")
			return
		}

		if subtle.ConstantTimeCompare([]byte(cookieToken), []byte(headerToken)) != 1 {
			abort(c, CodeMismatch, "csrf token mismatch")
			return
		}
		c.Next()
	}
}

// IssueToken sets a fresh token cookie and returns the token so the
// response body can hand it to the client script.
func (g *Guard) IssueToken(c *gin.Context) (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := base64.RawURLEncoding.EncodeToString(buf)

	c.SetSameSite(http.SameSiteLaxMode)
	// Script-readable on purpose: the client must echo it in the header.
	c.SetCookie(g.cookieName, token, g.maxAge, "/", g.domain, g.secure, false)
	return token, nil
}

// ClearToken removes the token cookie on logout.
func (g *Guard) ClearToken(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(g.cookieName, "", -1, "/", g.domain, g.secure, false)
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func usesHeaderCredential(r *http.Request) bool {
	if strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		return true
	}
	return strings.TrimSpace(r.Header.Get(APIKeyHeader)) != ""
}

func abort(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"error": gin.H{
			"type":    code,
			"message": message,
		},
	})
}
