// Package totp implements RFC 6238 time-based one-time passwords with a
// 30-second step and 6 digits, plus backup codes and authenticated
// encryption for secrets at rest.
package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"strings"
	"time"
)

const (
	// Period is the RFC 6238 time step.
	Period = 30 * time.Second
	// Digits per code.
	Digits = 6

	secretBytes = 20
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateSecret returns a fresh random secret, base32 without padding so
// standard authenticator apps accept it verbatim.
func GenerateSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return b32.EncodeToString(buf), nil
}

// TimeStep maps a wall-clock instant to its RFC 6238 counter value.
func TimeStep(t time.Time) int64 {
	return t.Unix() / int64(Period/time.Second)
}

// GenerateCode computes the 6-digit code for the time step containing t.
func GenerateCode(secret string, t time.Time) (string, error) {
	return CodeForStep(secret, TimeStep(t))
}

// CodeForStep computes the code for an explicit counter value: HMAC-SHA1
// over the 8-byte big-endian counter, dynamic truncation, mod 10^6.
func CodeForStep(secret string, step int64) (string, error) {
	key, err := decodeSecret(secret)
	if err != nil {
		return "", err
	}

	var counter [8]byte
	binary.BigEndian.PutUint64(counter[:], uint64(step))

	mac := hmac.New(sha1.New, key)
	mac.Write(counter[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	code := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	return fmt.Sprintf("%06d", code%1_000_000), nil
}

// VerifyCode accepts the candidate if it matches the code for the current
// step or any step within ±window. Comparison is constant time per
// candidate step. The matched step is returned so callers can record it
// for replay prevention; -1 when no step matched.
func VerifyCode(secret, candidate string, t time.Time, window int) (bool, int64) {
	candidate = strings.TrimSpace(candidate)
	if len(candidate) != Digits {
		return false, -1
	}
	if window < 0 {
		window = 0
	}

	current := TimeStep(t)
	matched := int64(-1)
	ok := false
	for offset := -window; offset <= window; offset++ {
		step := current + int64(offset)
		expected, err := CodeForStep(secret, step)
		if err != nil {
			return false, -1
		}
		// Scan every step even after a hit so timing does not reveal which
		// step matched.
		if subtle.ConstantTimeCompare([]byte(expected), []byte(candidate)) == 1 && !ok {
			ok = true
			matched = step
		}
	}
	return ok, matched
}

func decodeSecret(secret string) ([]byte, error) {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(secret), " ", ""))
	key, err := b32.DecodeString(normalized)
	if err != nil {
		return nil, fmt.Errorf("totp: invalid secret: %w", err)
	}
	return key, nil
}
