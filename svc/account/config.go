package account

import (
	"fmt"
	"time"

	"github.com/pcbuilder/configurator/pkg/password"
)

// Config holds account lifecycle settings, loaded from the environment.
type Config struct {
	VerificationTTL time.Duration `env:"ACCOUNT_VERIFICATION_TTL" envDefault:"24h"`
	ResetTTL        time.Duration `env:"ACCOUNT_RESET_TTL" envDefault:"1h"`
	BcryptCost      int           `env:"ACCOUNT_BCRYPT_COST" envDefault:"10"`

	// VerifyLinkBase gets "/<token>" appended.
	VerifyLinkBase string `env:"ACCOUNT_VERIFY_LINK_BASE" envDefault:"http://localhost:8080/api/v1/accounts/verify"`
	// ResetLinkBase gets "?token=<token>" appended. The default is the
	// mobile app's deep link scheme.
	ResetLinkBase string `env:"ACCOUNT_RESET_LINK_BASE" envDefault:"pcbuilder://reset-password"`

	// ResetStrict makes reset requests for unknown or unverified accounts
	// fail with ErrAccountNotFound instead of succeeding silently.
	ResetStrict       bool `env:"ACCOUNT_RESET_STRICT" envDefault:"false"`
	PasswordMinLength int  `env:"ACCOUNT_PASSWORD_MIN_LENGTH" envDefault:"1"`
	UsernameMaxLength int  `env:"ACCOUNT_USERNAME_MAX_LENGTH" envDefault:"64"`

	ProductName string `env:"ACCOUNT_PRODUCT_NAME" envDefault:"PC Builder"`
}

// DefaultConfig returns the same values as the env defaults.
func DefaultConfig() Config {
	return Config{
		VerificationTTL:   24 * time.Hour,
		ResetTTL:          time.Hour,
		BcryptCost:        10,
		VerifyLinkBase:    "http://localhost:8080/api/v1/accounts/verify",
		ResetLinkBase:     "pcbuilder://reset-password",
		PasswordMinLength: 1,
		UsernameMaxLength: 64,
		ProductName:       "PC Builder",
	}
}

func (c Config) validate() error {
	switch {
	case c.VerificationTTL <= 0:
		return fmt.Errorf("%w: verification TTL must be positive", ErrInvalidServiceConf)
	case c.ResetTTL <= 0:
		return fmt.Errorf("%w: reset TTL must be positive", ErrInvalidServiceConf)
	case c.VerifyLinkBase == "" || c.ResetLinkBase == "":
		return fmt.Errorf("%w: link bases are required", ErrInvalidServiceConf)
	case c.PasswordMinLength < 1 || c.PasswordMinLength > password.MaxLength:
		return fmt.Errorf("%w: password minimum length must be between 1 and %d", ErrInvalidServiceConf, password.MaxLength)
	case c.UsernameMaxLength <= 0:
		return fmt.Errorf("%w: username maximum length must be positive", ErrInvalidServiceConf)
	}
	return nil
}
