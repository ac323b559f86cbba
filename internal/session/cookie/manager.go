package cookie

import (
	"net/http"
	"strings"
	"time"

	"github.com/feltflyt/feltflyt/internal/config"
	"github.com/gin-gonic/gin"
)

const (
	SessionCookieName = "_fsid"
	RefreshCookieName = "_frid"
	// CSRFCookieName is readable by scripts; the CSRF guard compares it
	// against the echoed request header.
	CSRFCookieName = "_fcsrf"
)

// Manager manages the session, refresh, and CSRF cookies. Domain is set
// when cross-subdomain sessions are configured.
type Manager struct {
	domain     string
	secure     bool
	sessionTTL time.Duration
	refreshTTL time.Duration
}

func NewManager(cfg config.Config) *Manager {
	return &Manager{
		domain:     cfg.CookieDomain,
		secure:     cfg.AuthCookieSecure,
		sessionTTL: cfg.SessionTTL,
		refreshTTL: cfg.RefreshTTL,
	}
}

func (m *Manager) ReadSession(c *gin.Context) (string, bool) {
	return m.read(c, SessionCookieName)
}

func (m *Manager) SetSession(c *gin.Context, value string, expiresAt time.Time) {
	m.set(c, SessionCookieName, value, expiresAt, true)
}

func (m *Manager) ClearSession(c *gin.Context) {
	m.clear(c, SessionCookieName, true)
}

func (m *Manager) ReadRefresh(c *gin.Context) (string, bool) {
	return m.read(c, RefreshCookieName)
}

func (m *Manager) SetRefresh(c *gin.Context, value string, expiresAt time.Time) {
	m.set(c, RefreshCookieName, value, expiresAt, true)
}

func (m *Manager) ClearRefresh(c *gin.Context) {
	m.clear(c, RefreshCookieName, true)
}

func (m *Manager) ReadCSRF(c *gin.Context) (string, bool) {
	return m.read(c, CSRFCookieName)
}

// SetCSRF writes the double-submit token. Not HttpOnly: the front end must
// read it back into the request header.
func (m *Manager) SetCSRF(c *gin.Context, value string) {
	m.set(c, CSRFCookieName, value, time.Now().Add(m.sessionTTL), false)
}

func (m *Manager) SessionTTL() time.Duration { return m.sessionTTL }
func (m *Manager) RefreshTTL() time.Duration { return m.refreshTTL }

func (m *Manager) read(c *gin.Context, name string) (string, bool) {
	value, err := c.Cookie(name)
	if err != nil {
		return "", false
	}
	if strings.TrimSpace(value) == "" {
		return "", false
	}
	return value, true
}

func (m *Manager) set(c *gin.Context, name, value string, expiresAt time.Time, httpOnly bool) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", m.domain, m.secure, httpOnly)
}

func (m *Manager) clear(c *gin.Context, name string, httpOnly bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, "", -1, "/", m.domain, m.secure, httpOnly)
}
