package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
	"time"
)

const (
	// DefaultSize is the number of random bytes in a token (256 bits).
	DefaultSize = 32
	// MinSize keeps tokens at or above 128 bits of entropy.
	MinSize = 16
)

// Token is a freshly issued opaque token.
type Token struct {
	// Value is the raw token handed to the user. It is never persisted.
	Value string
	// Digest is what the store keeps and looks tokens up by.
	Digest    string
	ExpiresAt time.Time
}

// Issuer mints tokens from a cryptographically secure source.
type Issuer struct {
	size   int
	random io.Reader
	now    func() time.Time
}

// Option configures Issuer.
type Option func(*Issuer)

// WithSize sets the number of random bytes per token.
func WithSize(n int) Option {
	return func(i *Issuer) { i.size = n }
}

// WithRandom replaces crypto/rand as the entropy source. Tests only.
func WithRandom(r io.Reader) Option {
	return func(i *Issuer) {
		if r != nil {
			i.random = r
		}
	}
}

// WithClock sets the time source used to compute expiry.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		if now != nil {
			i.now = now
		}
	}
}

// NewIssuer creates an Issuer.
func NewIssuer(opts ...Option) (*Issuer, error) {
	i := &Issuer{
		size:   DefaultSize,
		random: rand.Reader,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.size < MinSize {
		return nil, ErrTooShort
	}
	return i, nil
}

// Issue returns a new token that expires ttl from now.
func (i *Issuer) Issue(ttl time.Duration) (Token, error) {
	if ttl <= 0 {
		return Token{}, ErrInvalidTTL
	}

	buf := make([]byte, i.size)
	if _, err := io.ReadFull(i.random, buf); err != nil {
		return Token{}, errors.Join(ErrEntropyFailure, err)
	}

	value := base64.RawURLEncoding.EncodeToString(buf)
	return Token{
		Value:     value,
		Digest:    Digest(value),
		ExpiresAt: i.now().Add(ttl).UTC(),
	}, nil
}

// Digest returns the hex encoded SHA-256 of a raw token.
func Digest(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
