// Package password hashes and verifies account passwords with bcrypt.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxLength is the number of password bytes bcrypt takes into account.
const MaxLength = 72

var (
	ErrEmptyPassword   = errors.New("password: empty password")
	ErrPasswordTooLong = errors.New("password: longer than 72 bytes")
	ErrMismatch        = errors.New("password: hash and password do not match")
	ErrInvalidCost     = errors.New("password: bcrypt cost out of range")
	ErrMalformedHash   = errors.New("password: malformed hash")
)

// Hasher produces and checks salted password digests.
type Hasher struct {
	cost  int
	dummy []byte
}

// Option configures Hasher.
type Option func(*Hasher)

// WithCost sets the bcrypt work factor. Values outside bcrypt's range are
// rejected by New.
func WithCost(cost int) Option {
	return func(h *Hasher) {
		h.cost = cost
	}
}

// New creates a Hasher. The default work factor is bcrypt.DefaultCost.
func New(opts ...Option) (*Hasher, error) {
	h := &Hasher{cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(h)
	}
	if h.cost < bcrypt.MinCost || h.cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCost, h.cost)
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("pcbuilder-dummy-password"), h.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}
	h.dummy = dummy

	return h, nil
}

// Hash returns the bcrypt digest of raw.
func (h *Hasher) Hash(raw string) (string, error) {
	if raw == "" {
		return "", ErrEmptyPassword
	}
	if len(raw) > MaxLength {
		return "", ErrPasswordTooLong
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(raw), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether raw matches the stored digest. A wrong password
// yields ErrMismatch; an unreadable digest yields ErrMalformedHash.
func (h *Hasher) Verify(raw, digest string) error {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(raw))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrMismatch
	default:
		return errors.Join(ErrMalformedHash, err)
	}
}

// Burn runs a comparison against a fixed digest and discards the result.
// Callers use it when no stored digest exists so that the response time does
// not tell a missing account apart from a wrong password.
func (h *Hasher) Burn(raw string) {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(raw))
}

// Cost returns the configured work factor.
func (h *Hasher) Cost() int {
	return h.cost
}
