package token

import (
	"github.com/feltflyt/feltflyt/internal/config"
	"go.uber.org/fx"
)

// NewFromConfig builds the Codec when a signing secret is configured.
// Without one the server still boots, but every operation that needs a
// token fails closed with service_misconfigured. Secrets are never
// defaulted.
func NewFromConfig(cfg config.Config) *Codec {
	if cfg.ValidateTokenSecrets() != nil {
		return nil
	}
	codec, err := NewCodec(cfg.JWTSecret)
	if err != nil {
		return nil
	}
	return codec
}

var Module = fx.Module("token",
	fx.Provide(NewFromConfig),
)
