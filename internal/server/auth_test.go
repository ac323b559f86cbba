package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/feltflyt/feltflyt/internal/config"
	"github.com/feltflyt/feltflyt/internal/session/cookie"
	sessiondomain "github.com/feltflyt/feltflyt/internal/session/domain"
	"github.com/feltflyt/feltflyt/internal/token"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestSignupCreatesAccount(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(ts.jsonRequest(http.MethodPost, "/signup", map[string]string{
		"email":    "ny@feltflyt.no",
		"name":     "Ny Bruker",
		"password": testPassword,
		"org_id":   "org-9",
		"org_slug": "nyfirma",
	}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), `"ny@feltflyt.no"`)
	require.Contains(t, w.Body.String(), `"klient"`)
}

func TestSignupRejectsWeakPassword(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(ts.jsonRequest(http.MethodPost, "/signup", map[string]string{
		"email":    "svak@feltflyt.no",
		"name":     "Svak",
		"password": "passord123",
	}))
	require.Equal(t, http.StatusBadRequest, w.Code)
	payload := decodeError(t, w)
	require.Equal(t, "password_too_weak", payload.Type)
	require.NotEmpty(t, payload.Errors)
}

func TestLoginSetsSessionCookies(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser("kari@feltflyt.no")

	w, sess := ts.login("kari@feltflyt.no", testPassword, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.NotNil(t, cookieByName(sess.cookies, cookie.SessionCookieName))
	require.NotNil(t, cookieByName(sess.cookies, cookie.RefreshCookieName))
	require.NotNil(t, cookieByName(sess.cookies, cookie.CSRFCookieName))

	sessionCookie := cookieByName(sess.cookies, cookie.SessionCookieName)
	require.True(t, sessionCookie.HttpOnly)
	csrfCookie := cookieByName(sess.cookies, cookie.CSRFCookieName)
	require.False(t, csrfCookie.HttpOnly)
	require.Equal(t, sess.csrfToken, csrfCookie.Value)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser("finnes@feltflyt.no")

	wrongPassword := ts.do(ts.jsonRequest(http.MethodPost, "/login", map[string]string{
		"email":    "finnes@feltflyt.no",
		"password": "Feil-Passord-99!",
	}))
	unknownAccount := ts.do(ts.jsonRequest(http.MethodPost, "/login", map[string]string{
		"email":    "finnes-ikke@feltflyt.no",
		"password": "Feil-Passord-99!",
	}))

	require.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	require.Equal(t, http.StatusUnauthorized, unknownAccount.Code)
	require.Equal(t, wrongPassword.Body.String(), unknownAccount.Body.String())
	require.Equal(t, "invalid_credentials", decodeError(t, wrongPassword).Type)
}

func TestLoginRateLimited(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser("grind@feltflyt.no")

	var w *httptest.ResponseRecorder
	for i := 0; i < 6; i++ {
		w = ts.do(ts.jsonRequest(http.MethodPost, "/login", map[string]string{
			"email":    "grind@feltflyt.no",
			"password": "Feil-Passord-99!",
		}))
	}
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "rate_limited", decodeError(t, w).Type)
}

func TestLoginWithoutSigningSecretFailsClosed(t *testing.T) {
	ts := newTestServerWith(t, func(cfg *config.Config) { cfg.JWTSecret = "" })
	ts.createUser("kari@feltflyt.no")

	w, _ := ts.login("kari@feltflyt.no", testPassword, "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.Equal(t, "service_misconfigured", decodeError(t, w).Type)
}

func TestMeReturnsAuthenticatedUser(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser("kari@feltflyt.no")
	sess := ts.mustLogin("kari@feltflyt.no")

	w := ts.do(ts.authedRequest(sess, http.MethodGet, "/me", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), `"kari@feltflyt.no"`)
}

func TestMeWithoutSessionRejected(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(ts.jsonRequest(http.MethodGet, "/me", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBearerTokenAccepted(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser("api@feltflyt.no")
	sess := ts.mustLogin("api@feltflyt.no")

	req := ts.jsonRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+cookieByName(sess.cookies, cookie.SessionCookieName).Value)
	w := ts.do(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestLogoutRevokesSession(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser("kari@feltflyt.no")
	sess := ts.mustLogin("kari@feltflyt.no")

	w := ts.do(ts.authedRequest(sess, http.MethodPost, "/logout", nil))
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	// The old cookie is now on the revocation list.
	after := ts.do(ts.authedRequest(sess, http.MethodGet, "/me", nil))
	require.Equal(t, http.StatusUnauthorized, after.Code)
	require.Equal(t, "session_revoked", decodeError(t, after).Type)
}

func TestLogoutIgnoresForgedRefreshCookie(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser("kari@feltflyt.no")
	sess := ts.mustLogin("kari@feltflyt.no")

	// A refresh token signed with a secret we never issued, carrying a
	// jti of the attacker's choosing.
	rogue, err := token.NewCodec("angriperens-egen-hemmelighet")
	require.NoError(t, err)
	forged, err := rogue.Sign(token.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:      "jti-valgt-av-angriper",
			Subject: "999",
		},
		SubjectKind: token.SubjectKlient,
		OrgID:       "org-1",
		OrgSlug:     "fjellservice",
	}, time.Hour)
	require.NoError(t, err)

	refresh := cookieByName(sess.cookies, cookie.RefreshCookieName)
	require.NotNil(t, refresh)
	refresh.Value = forged

	// Logout still succeeds for the verified session cookie.
	w := ts.do(ts.authedRequest(sess, http.MethodPost, "/logout", nil))
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	// The forged jti must not have reached the revocation store.
	var count int64
	require.NoError(t, ts.conn.Model(&sessiondomain.RevocationEntry{}).
		Where("jti = ?", "jti-valgt-av-angriper").Count(&count).Error)
	require.Zero(t, count)
}

func TestStateChangeWithoutCSRFHeaderRejected(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser("kari@feltflyt.no")
	sess := ts.mustLogin("kari@feltflyt.no")

	req := ts.jsonRequest(http.MethodPost, "/logout", nil)
	for _, c := range sess.cookies {
		req.AddCookie(c)
	}
	w := ts.do(req)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, w.Body.String(), "CSRF_TOKEN_MISSING")
}

func TestStateChangeWithWrongCSRFTokenRejected(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser("kari@feltflyt.no")
	sess := ts.mustLogin("kari@feltflyt.no")

	req := ts.jsonRequest(http.MethodPost, "/logout", nil)
	for _, c := range sess.cookies {
		req.AddCookie(c)
	}
	req.Header.Set("X-CSRF-Token", "noe-helt-annet")
	w := ts.do(req)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, w.Body.String(), "CSRF_VALIDATION_FAILED")
}

func TestChangePassword(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser("kari@feltflyt.no")
	sess := ts.mustLogin("kari@feltflyt.no")

	const newPassword = "Nytt!Sterkt-Passord77"
	w := ts.do(ts.authedRequest(sess, http.MethodPost, "/password/change", map[string]string{
		"current_password": testPassword,
		"new_password":     newPassword,
	}))
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	old, _ := ts.login("kari@feltflyt.no", testPassword, "")
	require.Equal(t, http.StatusUnauthorized, old.Code)
	fresh, _ := ts.login("kari@feltflyt.no", newPassword, "")
	require.Equal(t, http.StatusOK, fresh.Code, fresh.Body.String())
}

func TestChangePasswordEnforcesPolicy(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser("kari@feltflyt.no")
	sess := ts.mustLogin("kari@feltflyt.no")

	w := ts.do(ts.authedRequest(sess, http.MethodPost, "/password/change", map[string]string{
		"current_password": testPassword,
		"new_password":     "kort",
	}))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "password_too_weak", decodeError(t, w).Type)
}
