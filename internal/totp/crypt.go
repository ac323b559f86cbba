package totp

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// ErrDecryptFailed covers tag mismatches and malformed payloads. The
// cipher never returns partially decrypted plaintext.
var ErrDecryptFailed = errors.New("totp: decrypt failed")

const (
	gcmNonceLen = 12
	gcmTagLen   = 16

	// scrypt cost parameters. The master key is password-like material, so
	// a slow KDF is mandatory; a fast hash is not an acceptable substitute.
	scryptN = 32768
	scryptR = 8
	scryptP = 1
	keyLen  = 32
)

// Cipher performs authenticated encryption of TOTP secrets at rest with a
// 256-bit key derived once from the master key and the fixed KDF salt.
type Cipher struct {
	aead cipher.AEAD
}

func NewCipher(masterKey, salt string) (*Cipher, error) {
	if masterKey == "" || salt == "" {
		return nil, errors.New("totp: master key and salt are required")
	}
	key, err := scrypt.Key([]byte(masterKey), []byte(salt), scryptN, scryptR, scryptP, keyLen)
	if err != nil {
		return nil, fmt.Errorf("totp: derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Cipher{aead: aead}, nil
}

// EncryptSecret seals the secret into the stored payload format
// iv:authTag:ciphertext (hex fields).
func (c *Cipher) EncryptSecret(secret string) (string, error) {
	nonce := make([]byte, gcmNonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := c.aead.Seal(nil, nonce, []byte(secret), nil)
	ciphertext := sealed[:len(sealed)-gcmTagLen]
	tag := sealed[len(sealed)-gcmTagLen:]

	return strings.Join([]string{
		hex.EncodeToString(nonce),
		hex.EncodeToString(tag),
		hex.EncodeToString(ciphertext),
	}, ":"), nil
}

// DecryptSecret opens a payload produced by EncryptSecret. Any tampering
// with the tag or ciphertext fails with ErrDecryptFailed.
func (c *Cipher) DecryptSecret(payload string) (string, error) {
	parts := strings.Split(payload, ":")
	if len(parts) != 3 {
		return "", ErrDecryptFailed
	}
	nonce, err := hex.DecodeString(parts[0])
	if err != nil || len(nonce) != gcmNonceLen {
		return "", ErrDecryptFailed
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil || len(tag) != gcmTagLen {
		return "", ErrDecryptFailed
	}
	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", ErrDecryptFailed
	}

	plaintext, err := c.aead.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return "", ErrDecryptFailed
	}
	return string(plaintext), nil
}
