package token

import (
	"crypto/subtle"
	"time"
)

// Status is the outcome of validating a presented token.
type Status int

const (
	Mismatch Status = iota
	Expired
	Valid
)

func (s Status) String() string {
	switch s {
	case Valid:
		return "valid"
	case Expired:
		return "expired"
	default:
		return "mismatch"
	}
}

// Validate checks a presented raw token against the stored digest and expiry.
// An empty stored digest never matches. A token is expired at or after expiresAt.
func Validate(storedDigest string, expiresAt time.Time, presented string, now time.Time) Status {
	if storedDigest == "" || presented == "" {
		return Mismatch
	}
	if subtle.ConstantTimeCompare([]byte(storedDigest), []byte(Digest(presented))) != 1 {
		return Mismatch
	}
	if !now.Before(expiresAt) {
		return Expired
	}
	return Valid
}
