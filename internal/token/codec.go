package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrTokenExpired means the signature checked out but the expiry is past.
	ErrTokenExpired = errors.New("token_expired")
	// ErrTokenInvalid means a bad signature or a disallowed signing algorithm.
	ErrTokenInvalid = errors.New("token_invalid")
	// ErrTokenMalformed means the token shape is wrong or a required claim
	// (jti, sub, sub_kind) is missing.
	ErrTokenMalformed = errors.New("token_malformed")
)

// Codec signs and verifies session tokens with a single shared secret.
type Codec struct {
	secret []byte
	now    func() time.Time
}

func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("token: signing secret is required")
	}
	return &Codec{
		secret: []byte(secret),
		now:    time.Now,
	}, nil
}

// Sign issues a token for the claims with the given lifetime. A fresh
// random jti is injected when the caller did not supply one.
func (c *Codec) Sign(claims Claims, expiresIn time.Duration) (string, error) {
	now := c.now().UTC()
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(expiresIn))

	if !claims.wellFormed() {
		return "", ErrTokenMalformed
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(c.secret)
}

// Verify checks the signature and expiry and returns the claims. Failures
// are tagged ErrTokenExpired, ErrTokenInvalid, or ErrTokenMalformed so
// callers can branch without string matching. Verify performs no I/O;
// revocation is the session store's concern.
func (c *Codec) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrTokenMalformed
		default:
			return nil, ErrTokenInvalid
		}
	}
	if !tok.Valid {
		return nil, ErrTokenInvalid
	}
	if !claims.wellFormed() {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

// Decode extracts claims without verifying the signature. Useful for cheap
// expiry pre-checks only; never use the result for authorization.
func (c *Codec) Decode(raw string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

// IsExpired reports whether an undecoded token is past its expiry. Tokens
// that cannot be decoded count as expired.
func (c *Codec) IsExpired(raw string) bool {
	claims, err := c.Decode(raw)
	if err != nil || claims.ExpiresAt == nil {
		return true
	}
	return !c.now().Before(claims.ExpiresAt.Time)
}

// RemainingTTL returns how long an undecoded token remains valid, or zero
// when it is already expired or unreadable.
func (c *Codec) RemainingTTL(raw string) time.Duration {
	claims, err := c.Decode(raw)
	if err != nil || claims.ExpiresAt == nil {
		return 0
	}
	remaining := claims.ExpiresAt.Time.Sub(c.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}
