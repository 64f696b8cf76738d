// Package account owns the account credential lifecycle: registration with
// email verification, password authentication, password reset and session
// logout.
//
// Service is the entry point. It persists accounts through a Store, hashes
// passwords, mints single-use opaque tokens for verification and reset
// links, and signs session tokens. Mail is sent through a Notifier whose
// failures never roll back account changes.
//
// Opaque tokens are only ever stored as SHA-256 digests. Consuming a token
// is a single atomic Store.Update that re-validates the token, applies the
// effect and clears it, so concurrent consumers of one token see exactly one
// success.
package account

import "time"

// Status is the verification state of an account. It only moves forward.
type Status string

const (
	StatusPendingVerification Status = "pending_verification"
	StatusActive              Status = "active"
)

// Account is a registered user.
type Account struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash string
	Status       Status

	VerificationTokenHash      string
	VerificationTokenExpiresAt time.Time
	ResetTokenHash             string
	ResetTokenExpiresAt        time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActive reports whether the account may log in.
func (a *Account) IsActive() bool {
	return a.Status == StatusActive
}

func (a *Account) clearVerificationToken() {
	a.VerificationTokenHash = ""
	a.VerificationTokenExpiresAt = time.Time{}
}

func (a *Account) clearResetToken() {
	a.ResetTokenHash = ""
	a.ResetTokenExpiresAt = time.Time{}
}

// Registration is the outcome of a successful Register call. DeliveryErr is
// set when the verification mail could not be queued; the account exists
// regardless.
type Registration struct {
	Account     *Account
	DeliveryErr error
}

// Session is an issued session token.
type Session struct {
	Token     string
	AccountID int64
	Email     string
	ExpiresAt time.Time
}

// RegisterInput carries the signup form.
type RegisterInput struct {
	Email    string
	Password string
	Username string
}
