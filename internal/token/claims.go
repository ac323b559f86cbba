// Package token signs, verifies, and decodes the stateless session tokens
// issued at login and SSO redemption. Tokens are HS256 only; the verifier
// rejects every other algorithm.
package token

import "github.com/golang-jwt/jwt/v5"

// SubjectKind discriminates the two account kinds a session token can
// represent. The two kinds are mutually exclusive.
type SubjectKind string

const (
	// SubjectKlient is an organization member account.
	SubjectKlient SubjectKind = "klient"
	// SubjectBruker is an internal staff account. Staff tokens never carry
	// organization claims.
	SubjectBruker SubjectKind = "bruker"
)

func (k SubjectKind) Valid() bool {
	return k == SubjectKlient || k == SubjectBruker
}

// Claims is the payload of a session token. RegisteredClaims carries the
// subject id (sub), unique token id (jti), issued-at, and expiry.
type Claims struct {
	jwt.RegisteredClaims
	SubjectKind SubjectKind `json:"sub_kind"`

	// Organization context, set only for klient subjects.
	OrgID   string `json:"org_id,omitempty"`
	OrgSlug string `json:"org_slug,omitempty"`

	// Cached subscription fields so hot paths can skip a billing lookup.
	SubscriptionTier   string `json:"subscription_tier,omitempty"`
	SubscriptionActive bool   `json:"subscription_active,omitempty"`
}

// JTI returns the unique token id. A token without one is malformed.
func (c *Claims) JTI() string { return c.ID }

// SubjectID returns the account id the token was issued to.
func (c *Claims) SubjectID() string { return c.Subject }

// IsStaff reports whether the token belongs to an internal staff account.
func (c *Claims) IsStaff() bool { return c.SubjectKind == SubjectBruker }

// wellFormed enforces the claim-shape invariants: a jti and subject are
// always present, the kind is one of the two known values, and staff
// tokens carry no organization context.
func (c *Claims) wellFormed() bool {
	if c.ID == "" || c.Subject == "" {
		return false
	}
	if !c.SubjectKind.Valid() {
		return false
	}
	if c.SubjectKind == SubjectBruker && (c.OrgID != "" || c.OrgSlug != "") {
		return false
	}
	return true
}
