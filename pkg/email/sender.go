package email

import (
	"fmt"
	"strings"
)

// NewSender returns the transport selected by cfg.Driver.
func NewSender(cfg Config) (EmailSender, error) {
	switch strings.ToLower(cfg.Driver) {
	case DriverPostmark:
		return NewPostmarkClient(cfg)
	case DriverDev, "":
		return NewDevSender(cfg.DevDir), nil
	default:
		return nil, fmt.Errorf("%w: unknown email driver %q", ErrInvalidConfig, cfg.Driver)
	}
}
