// Package sso implements the cross-domain single-sign-on relay: short
// lived, IP-bound, single-use redemption tokens handed from one origin to
// the other through a self-submitting POST form.
package sso

import (
	"bytes"
	"html/template"
	"net/url"
	"strings"

	"github.com/feltflyt/feltflyt/internal/sso/domain"
)

// The token travels in a POST body instead of a redirect query string so
// it never lands in browser history, the peer's access logs, or a Referer
// header. Keep it that way.
var relayFormTmpl = template.Must(template.New("relay").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Logger inn…</title></head>
<body onload="document.forms[0].submit()">
<form method="POST" action="{{.Action}}">
<input type="hidden" name="token" value="{{.Token}}">
<noscript><button type="submit">Fortsett</button></noscript>
</form>
</body>
</html>
`))

// BuildRelayForm renders the self-submitting form that delivers the
// redemption token to the peer origin's redeem endpoint.
func BuildRelayForm(action, rawToken string) (string, error) {
	var buf bytes.Buffer
	err := relayFormTmpl.Execute(&buf, struct {
		Action string
		Token  string
	}{Action: action, Token: rawToken})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// VerifyOrigin checks that the request was initiated by a page on one of
// our own origins. Third-party pages embedding the launch URL in an img or
// link fail here. When the browser sent an Origin header it is
// authoritative: a foreign Origin fails even if the Referer looks right.
// Referer is consulted only when Origin is absent; both absent fails.
func VerifyOrigin(origin, referer string, allowed []string) error {
	if host := headerHost(origin); host != "" {
		if hostAllowed(host, allowed) {
			return nil
		}
		return domain.ErrOriginMismatch
	}
	if host := headerHost(referer); host != "" && hostAllowed(host, allowed) {
		return nil
	}
	return domain.ErrOriginMismatch
}

func headerHost(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	u, err := url.Parse(value)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func hostAllowed(host string, allowed []string) bool {
	for _, a := range allowed {
		candidate := a
		if strings.Contains(a, "://") {
			if parsed, err := url.Parse(a); err == nil {
				candidate = parsed.Hostname()
			}
		}
		if strings.EqualFold(host, strings.TrimSpace(candidate)) {
			return true
		}
	}
	return false
}
