// Package masking redacts secret material before it reaches the audit
// trail.
package masking

import "strings"

const maskToken = "****"

// sensitiveKeys are metadata keys whose values are always fully redacted.
var sensitiveKeys = map[string]struct{}{
	"password":    {},
	"code":        {},
	"backup_code": {},
	"secret":      {},
	"token":       {},
}

// MaskSecret redacts a secret while keeping a minimal suffix for
// correlation.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if len(trimmed) <= 4 {
		return maskToken
	}
	return maskToken + trimmed[len(trimmed)-4:]
}

// Sanitize returns a copy of the metadata with sensitive values removed.
// Non-sensitive values pass through untouched.
func Sanitize(input map[string]any) map[string]any {
	if len(input) == 0 {
		return map[string]any{}
	}

	out := make(map[string]any, len(input))
	for key, value := range input {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		if _, sensitive := sensitiveKeys[strings.ToLower(trimmedKey)]; sensitive {
			if s, ok := value.(string); ok {
				out[trimmedKey] = MaskSecret(s)
			} else {
				out[trimmedKey] = maskToken
			}
			continue
		}
		out[trimmedKey] = value
	}
	return out
}
