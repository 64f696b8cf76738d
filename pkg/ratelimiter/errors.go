package ratelimiter

import "errors"

var (
	ErrInvalidConfig    = errors.New("invalid rate limiter configuration")
	ErrStoreUnavailable = errors.New("rate limit store unavailable")
)
