package token

import "errors"

var (
	ErrInvalidTTL     = errors.New("token: ttl must be positive")
	ErrTooShort       = errors.New("token: fewer than 16 random bytes")
	ErrEntropyFailure = errors.New("token: failed to read random bytes")
)
