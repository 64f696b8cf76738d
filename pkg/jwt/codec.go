package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinKeyLength is the minimum HS256 signing key size in bytes.
const MinKeyLength = 32

// Claims are the session token claims. Subject holds the account email and ID
// holds the token id used for revocation.
type Claims struct {
	jwt.RegisteredClaims
	AccountID int64 `json:"aid"`
}

// Email returns the subject email.
func (c *Claims) Email() string {
	return c.Subject
}

// Expiry returns the expiry instant, or the zero time when absent.
func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Codec signs and verifies session tokens with a process wide key.
type Codec struct {
	key    []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
	newID  func() string
}

// Option configures Codec.
type Option func(*Codec)

// WithTTL sets the session lifetime. The default is 24h.
func WithTTL(ttl time.Duration) Option {
	return func(c *Codec) { c.ttl = ttl }
}

// WithIssuer sets the iss claim written on issue and required on verify.
func WithIssuer(iss string) Option {
	return func(c *Codec) { c.issuer = iss }
}

// WithClock sets the time source for issued-at, expiry and verification.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCodec creates a Codec. The key is copied.
func NewCodec(key []byte, opts ...Option) (*Codec, error) {
	if len(key) < MinKeyLength {
		return nil, ErrWeakSigningKey
	}
	c := &Codec{
		key:   append([]byte(nil), key...),
		ttl:   24 * time.Hour,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.ttl <= 0 {
		return nil, ErrInvalidTTL
	}
	return c, nil
}

// TTL returns the configured session lifetime.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a new session token for the given account.
func (c *Codec) Issue(email string, accountID int64) (string, *Claims, error) {
	now := c.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        c.newID(),
			Subject:   email,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		AccountID: accountID,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, claims, nil
}

// Verify checks signature, issuer and expiry and returns the claims.
// Failures are reported as ErrTokenExpired or ErrTokenInvalid.
func (c *Codec) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrTokenInvalid
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}

	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.key, nil
	}, opts...)
	switch {
	case err == nil && tok.Valid:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, errors.Join(ErrTokenExpired, err)
	case err != nil:
		return nil, errors.Join(ErrTokenInvalid, err)
	default:
		return nil, ErrTokenInvalid
	}

	if claims.Subject == "" || claims.ID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
