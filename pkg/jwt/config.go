package jwt

import "time"

// Config holds session token settings. The signing key is read once at
// startup and never changes for the life of the process.
type Config struct {
	SigningKey string        `env:"JWT_SIGNING_KEY,required"`
	TTL        time.Duration `env:"JWT_TTL" envDefault:"24h"`
	Issuer     string        `env:"JWT_ISSUER" envDefault:"pcbuilder"`
}

// NewFromConfig builds a Codec from Config.
func NewFromConfig(cfg Config, opts ...Option) (*Codec, error) {
	base := []Option{WithTTL(cfg.TTL), WithIssuer(cfg.Issuer)}
	return NewCodec([]byte(cfg.SigningKey), append(base, opts...)...)
}
