// Package passwordcheck scores and rejects candidate passwords. Validation
// is a pure function: identical input and options always produce the same
// result, so it can run on every keystroke in a signup form or in a batch
// policy audit without coordination.
package passwordcheck

import (
	"fmt"
	"math"
	"strings"
	"unicode"
)

// Strength labels, ordered weakest to strongest.
const (
	StrengthWeak   = "weak"
	StrengthFair   = "fair"
	StrengthGood   = "good"
	StrengthStrong = "strong"
)

const (
	DefaultMinLength = 10

	minEmailLocalLen = 4
	minNameTokenLen  = 3
)

// Options tunes the rule set. Identity fields feed the similarity check
// and are never part of the score.
type Options struct {
	MinLength      int
	RequireUpper   bool
	RequireLower   bool
	RequireDigit   bool
	RequireSpecial bool

	// Similarity inputs for the account being (re)secured.
	Email string
	Name  string
}

// DefaultOptions is the server-side policy applied to all password changes.
func DefaultOptions() Options {
	return Options{
		MinLength:      DefaultMinLength,
		RequireUpper:   true,
		RequireLower:   true,
		RequireDigit:   true,
		RequireSpecial: true,
	}
}

// Result reports rule failures and the additive strength score.
type Result struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Score    int      `json:"score"`
	Strength string   `json:"strength"`
}

// Validate checks the password against every rule independently, so the
// caller gets the complete list of failures in one pass.
func Validate(password string, opts Options) Result {
	if opts.MinLength <= 0 {
		opts.MinLength = DefaultMinLength
	}

	var errs []string
	var penalty int

	runes := []rune(password)
	if len(runes) < opts.MinLength {
		errs = append(errs, fmt.Sprintf("password must be at least %d characters long", opts.MinLength))
	}

	hasUpper, hasLower, hasDigit, hasSpecial := classify(runes)
	if opts.RequireUpper && !hasUpper {
		errs = append(errs, "password must contain an uppercase letter")
	}
	if opts.RequireLower && !hasLower {
		errs = append(errs, "password must contain a lowercase letter")
	}
	if opts.RequireDigit && !hasDigit {
		errs = append(errs, "password must contain a digit")
	}
	if opts.RequireSpecial && !hasSpecial {
		errs = append(errs, "password must contain a special character")
	}

	lower := strings.ToLower(password)

	if isCommonPassword(lower) {
		errs = append(errs, "password is too common")
		penalty += 40
	}

	if similarToEmail(lower, opts.Email) {
		errs = append(errs, "password is too similar to your email address")
		penalty += 30
	}
	if similarToName(lower, opts.Name) {
		errs = append(errs, "password is too similar to your name")
		penalty += 30
	}

	if containsKeyboardWalk(lower) {
		errs = append(errs, "password contains a predictable keyboard pattern")
		penalty += 20
	}
	if hasRepeatedRun(runes, 4) {
		errs = append(errs, "password contains a long run of repeated characters")
		penalty += 20
	}
	if hasAscendingDigitRun(runes, 4) {
		errs = append(errs, "password contains an ascending digit sequence")
		penalty += 20
	}

	score := baseScore(runes, hasUpper, hasLower, hasDigit, hasSpecial) - penalty
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return Result{
		Valid:    len(errs) == 0,
		Errors:   errs,
		Score:    score,
		Strength: strengthLabel(score),
	}
}

func classify(runes []rune) (upper, lower, digit, special bool) {
	for _, r := range runes {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			special = true
		}
	}
	return
}

// baseScore adds length points, character-class points and an entropy
// estimate of length * log2(charsetSize).
func baseScore(runes []rune, upper, lower, digit, special bool) int {
	length := len(runes)

	lengthPoints := length * 2
	if lengthPoints > 25 {
		lengthPoints = 25
	}

	classPoints := 0
	charset := 0
	if upper {
		classPoints += 5
		charset += 26
	}
	if lower {
		classPoints += 5
		charset += 26
	}
	if digit {
		classPoints += 5
		charset += 10
	}
	if special {
		classPoints += 5
		charset += 33
	}

	entropyPoints := 0
	if charset > 0 {
		entropy := float64(length) * math.Log2(float64(charset))
		entropyPoints = int(entropy / 2)
		if entropyPoints > 40 {
			entropyPoints = 40
		}
	}

	return lengthPoints + classPoints + entropyPoints
}

func strengthLabel(score int) string {
	switch {
	case score < 40:
		return StrengthWeak
	case score < 60:
		return StrengthFair
	case score < 80:
		return StrengthGood
	default:
		return StrengthStrong
	}
}

func similarToEmail(lowerPassword, email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.IndexByte(email, '@')
	if at < 0 {
		return false
	}
	local := email[:at]
	if len(local) < minEmailLocalLen {
		return false
	}
	return strings.Contains(lowerPassword, local) || strings.Contains(local, lowerPassword)
}

func similarToName(lowerPassword, name string) bool {
	for _, tok := range strings.Fields(strings.ToLower(name)) {
		if len([]rune(tok)) < minNameTokenLen {
			continue
		}
		if strings.Contains(lowerPassword, tok) || strings.Contains(tok, lowerPassword) {
			return true
		}
	}
	return false
}

func hasRepeatedRun(runes []rune, n int) bool {
	run := 1
	for i := 1; i < len(runes); i++ {
		if runes[i] == runes[i-1] {
			run++
			if run >= n {
				return true
			}
		} else {
			run = 1
		}
	}
	return false
}

func hasAscendingDigitRun(runes []rune, n int) bool {
	run := 1
	for i := 1; i < len(runes); i++ {
		if unicode.IsDigit(runes[i]) && unicode.IsDigit(runes[i-1]) && runes[i] == runes[i-1]+1 {
			run++
			if run >= n {
				return true
			}
		} else {
			run = 1
		}
	}
	return false
}
