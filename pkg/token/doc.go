// Package token issues opaque single-use tokens for email verification and
// password reset links.
//
// A token is 32 random bytes encoded with base64url (no padding), so it can be
// embedded in a path segment or query string without escaping. Tokens carry no
// structure: they are only meaningful next to the record that stores them.
//
// Stores keep Digest(token), never the raw value. Validate compares a
// presented token against a stored digest and expiry and is a pure function:
//
//	tok, err := issuer.Issue(24 * time.Hour)
//	// persist tok.Digest and tok.ExpiresAt, mail tok.Value
//
//	switch token.Validate(stored, expiresAt, presented, time.Now()) {
//	case token.Valid:
//	case token.Expired:
//	case token.Mismatch:
//	}
package token
