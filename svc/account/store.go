package account

import "context"

// Store persists accounts. Lookups return ErrAccountNotFound when nothing
// matches. Token lookups take the token digest, never the raw token.
type Store interface {
	// InsertIfAbsent atomically creates acc unless its email is taken. On
	// success it assigns acc.ID and returns true. On conflict it returns
	// false and writes nothing.
	InsertIfAbsent(ctx context.Context, acc *Account) (bool, error)

	FindByID(ctx context.Context, id int64) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByVerificationToken(ctx context.Context, digest string) (*Account, error)
	FindByResetToken(ctx context.Context, digest string) (*Account, error)

	// Update loads the account, applies mutate and persists the result as
	// one atomic step. Concurrent updates of the same account are
	// serialized. When mutate returns an error nothing is written and the
	// error is returned unchanged.
	Update(ctx context.Context, id int64, mutate func(*Account) error) error
}
