package totp

import (
	"github.com/feltflyt/feltflyt/internal/config"
	"go.uber.org/fx"
)

// NewCipherFromConfig builds the secret cipher when the master key and
// KDF salt are configured. Without them the cipher is nil and two-factor
// operations fail closed with service_misconfigured.
func NewCipherFromConfig(cfg config.Config) *Cipher {
	if cfg.ValidateTOTPSecrets() != nil {
		return nil
	}
	cipher, err := NewCipher(cfg.TOTPMasterKey, cfg.TOTPKDFSalt)
	if err != nil {
		return nil
	}
	return cipher
}

var Module = fx.Module("totp",
	fx.Provide(NewCipherFromConfig),
)
