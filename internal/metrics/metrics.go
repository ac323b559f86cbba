// Package metrics exposes authentication health signals.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Outcome label values shared across counters.
const (
	OutcomeOK          = "ok"
	OutcomeExpired     = "expired"
	OutcomeInvalid     = "invalid"
	OutcomeMalformed   = "malformed"
	OutcomeRevoked     = "revoked"
	OutcomeRateLimited = "rate_limited"
	OutcomeError       = "error"
)

// AuthMetrics counts the security-relevant outcomes of the auth
// subsystem. Cardinality stays fixed: labels are outcome enums, never
// subject or token values.
type AuthMetrics struct {
	loginAttempts      *prometheus.CounterVec
	tokenVerifications *prometheus.CounterVec
	revocationChecks   *prometheus.CounterVec
	ssoRedemptions     *prometheus.CounterVec
	twofactorChecks    *prometheus.CounterVec
}

// New registers the auth metric family on the registry.
func New(registry *prometheus.Registry) *AuthMetrics {
	m := &AuthMetrics{
		loginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feltflyt_login_attempts_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
		tokenVerifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feltflyt_token_verifications_total",
			Help: "Session token verifications by outcome.",
		}, []string{"outcome"}),
		revocationChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feltflyt_revocation_checks_total",
			Help: "Blacklist lookups by outcome.",
		}, []string{"outcome"}),
		ssoRedemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feltflyt_sso_redemptions_total",
			Help: "SSO redemption attempts by outcome.",
		}, []string{"outcome"}),
		twofactorChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feltflyt_twofactor_checks_total",
			Help: "Second-factor verifications by outcome.",
		}, []string{"outcome"}),
	}
	registry.MustRegister(
		m.loginAttempts,
		m.tokenVerifications,
		m.revocationChecks,
		m.ssoRedemptions,
		m.twofactorChecks,
	)
	return m
}

func (m *AuthMetrics) LoginAttempt(outcome string) {
	m.loginAttempts.WithLabelValues(outcome).Inc()
}

func (m *AuthMetrics) TokenVerification(outcome string) {
	m.tokenVerifications.WithLabelValues(outcome).Inc()
}

func (m *AuthMetrics) RevocationCheck(outcome string) {
	m.revocationChecks.WithLabelValues(outcome).Inc()
}

func (m *AuthMetrics) SSORedemption(outcome string) {
	m.ssoRedemptions.WithLabelValues(outcome).Inc()
}

func (m *AuthMetrics) TwoFactorCheck(outcome string) {
	m.twofactorChecks.WithLabelValues(outcome).Inc()
}
