package csrf

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(opts Options) (*gin.Engine, *Guard) {
	gin.SetMode(gin.TestMode)
	if opts.CookieName == "" {
		opts.CookieName = "_fcsrf"
	}
	guard := New(opts)

	r := gin.New()
	r.Use(guard.Middleware())
	handle := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) }
	r.GET("/resource", handle)
	r.POST("/resource", handle)
	r.POST("/webhooks/inbound", handle)
	return r, guard
}

func do(r *gin.Engine, method, path string, mutate func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader("{}"))
	if mutate != nil {
		mutate(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSafeMethodsPass(t *testing.T) {
	r, _ := newRouter(Options{})
	w := do(r, http.MethodGet, "/resource", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMatchingTokensPass(t *testing.T) {
	r, _ := newRouter(Options{})
	w := do(r, http.MethodPost, "/resource", func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: "_fcsrf", Value: "tok-123"})
		req.Header.Set(HeaderName, "tok-123")
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMismatchedTokensRejected(t *testing.T) {
	r, _ := newRouter(Options{})
	w := do(r, http.MethodPost, "/resource", func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: "_fcsrf", Value: "tok-123"})
		req.Header.Set(HeaderName, "tok-456")
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), CodeMismatch)
}

func TestMissingTokensRejected(t *testing.T) {
	r, _ := newRouter(Options{})

	w := do(r, http.MethodPost, "/resource", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), CodeMissing)

	// Cookie without header is still missing.
	w = do(r, http.MethodPost, "/resource", func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: "_fcsrf", Value: "tok-123"})
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), CodeMissing)
}

func TestHeaderCredentialExempt(t *testing.T) {
	r, _ := newRouter(Options{})

	w := do(r, http.MethodPost, "/resource", func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer some-jwt")
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodPost, "/resource", func(req *http.Request) {
		req.Header.Set(APIKeyHeader, "fk_live_abc")
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAllowListedPathExempt(t *testing.T) {
	r, _ := newRouter(Options{AllowPaths: []string{"/webhooks/inbound"}})
	w := do(r, http.MethodPost, "/webhooks/inbound", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIssueAndClearToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	guard := New(Options{CookieName: "_fcsrf"})

	r := gin.New()
	r.GET("/login-page", func(c *gin.Context) {
		token, err := guard.IssueToken(c)
		require.NoError(t, err)
		c.JSON(http.StatusOK, gin.H{"csrf_token": token})
	})
	r.GET("/logout", func(c *gin.Context) {
		guard.ClearToken(c)
		c.Status(http.StatusOK)
	})

	w := do(r, http.MethodGet, "/login-page", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var issued *http.Cookie
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == "_fcsrf" {
			issued = cookie
		}
	}
	require.NotNil(t, issued, "token cookie should be set")
	assert.False(t, issued.HttpOnly, "token cookie must be script readable")
	assert.NotEmpty(t, issued.Value)
	assert.Contains(t, w.Body.String(), issued.Value)

	w = do(r, http.MethodGet, "/logout", nil)
	require.Equal(t, http.StatusOK, w.Code)
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == "_fcsrf" {
			assert.LessOrEqual(t, cookie.MaxAge, 0)
		}
	}
}
