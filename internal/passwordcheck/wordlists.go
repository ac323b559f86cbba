package passwordcheck

import "strings"

// commonPasswords holds frequently chosen passwords in English and
// Norwegian. Matching is exact and case-insensitive; the list is small on
// purpose, it only needs to stop the passwords every attacker tries first.
var commonPasswords = map[string]struct{}{}

func init() {
	for _, p := range []string{
		// English.
		"password", "password1", "password123", "passw0rd",
		"123456", "1234567", "12345678", "123456789", "1234567890",
		"qwerty", "qwerty123", "letmein", "welcome", "welcome1",
		"admin", "administrator", "iloveyou", "monkey", "dragon",
		"sunshine", "princess", "football", "baseball", "superman",
		"trustno1", "abc123", "secret", "master", "login",
		// Norwegian.
		"passord", "passord1", "passord123", "hemmelig",
		"sommer", "sommer2024", "vinter", "norge", "oslo123",
		"fotball", "kjaereste", "solskinn",
	} {
		commonPasswords[p] = struct{}{}
	}
}

func isCommonPassword(lower string) bool {
	_, ok := commonPasswords[lower]
	return ok
}

// keyboardWalks are row fragments of common layouts; reverses are checked
// too so "ytrewq" scores the same as "qwerty".
var keyboardWalks = []string{
	"qwerty", "wertyu", "ertyui", "rtyuio", "tyuiop",
	"asdfgh", "sdfghj", "dfghjk", "fghjkl",
	"zxcvbn", "xcvbnm",
	"qwertz", "azerty",
}

func containsKeyboardWalk(lower string) bool {
	for _, walk := range keyboardWalks {
		if strings.Contains(lower, walk) || strings.Contains(lower, reverse(walk)) {
			return true
		}
	}
	return false
}

func reverse(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}
