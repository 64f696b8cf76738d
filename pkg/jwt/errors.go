package jwt

import "errors"

var (
	ErrTokenInvalid          = errors.New("jwt: invalid token")
	ErrTokenExpired          = errors.New("jwt: token is expired")
	ErrTokenRevoked          = errors.New("jwt: token has been revoked")
	ErrMissingToken          = errors.New("jwt: missing bearer token")
	ErrWeakSigningKey        = errors.New("jwt: signing key must be at least 32 bytes")
	ErrInvalidTTL            = errors.New("jwt: ttl must be positive")
	ErrRevocationUnavailable = errors.New("jwt: revocation list unavailable")
)
