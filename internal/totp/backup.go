package totp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"math/big"
	"strings"
)

const (
	// BackupCodeCount is how many codes a user gets per batch.
	BackupCodeCount = 10
	backupCodeLen   = 8
)

// backupAlphabet omits the visually ambiguous 0/O and 1/I.
const backupAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateBackupCodes returns a fresh batch formatted XXXX-XXXX. The raw
// codes are shown to the user once; only salted hashes are persisted.
func GenerateBackupCodes() ([]string, error) {
	codes := make([]string, 0, BackupCodeCount)
	max := big.NewInt(int64(len(backupAlphabet)))
	for i := 0; i < BackupCodeCount; i++ {
		var sb strings.Builder
		for j := 0; j < backupCodeLen; j++ {
			if j == backupCodeLen/2 {
				sb.WriteByte('-')
			}
			n, err := rand.Int(rand.Reader, max)
			if err != nil {
				return nil, err
			}
			sb.WriteByte(backupAlphabet[n.Int64()])
		}
		codes = append(codes, sb.String())
	}
	return codes, nil
}

// NormalizeBackupCode strips separators and uppercases so user input with
// or without the dash verifies the same.
func NormalizeBackupCode(code string) string {
	code = strings.ReplaceAll(code, "-", "")
	code = strings.ReplaceAll(code, " ", "")
	return strings.ToUpper(strings.TrimSpace(code))
}

// HashBackupCode hashes a normalized code with the server-held salt.
func HashBackupCode(code, salt string) string {
	sum := sha256.Sum256([]byte(salt + NormalizeBackupCode(code)))
	return hex.EncodeToString(sum[:])
}

// VerifyBackupCode returns the index of the stored hash matching the
// candidate, or -1. Every entry is compared in constant time so the scan
// does not leak which position matched.
func VerifyBackupCode(candidate string, storedHashes []string, salt string) int {
	hash := []byte(HashBackupCode(candidate, salt))
	matched := -1
	for i, stored := range storedHashes {
		if subtle.ConstantTimeCompare(hash, []byte(stored)) == 1 && matched == -1 {
			matched = i
		}
	}
	return matched
}
