package account

import (
	"context"
	"embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pcbuilder/configurator/pkg/pg"
)

// Migrations holds the goose migrations for the accounts table.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations.
const MigrationsDir = "migrations"

const updateAttempts = 3

const accountColumns = `id, email, username, password_hash, status,
	verification_token_hash, verification_token_expires_at,
	reset_token_hash, reset_token_expires_at,
	created_at, updated_at`

// PostgresStore is a Store backed by PostgreSQL. Email uniqueness is
// enforced by a unique index and Update runs in a transaction holding a row
// lock.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore returns a Store over the accounts table.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// InsertIfAbsent inserts acc unless its email is taken, relying on the
// accounts_email_key constraint. On success acc.ID and the timestamps are set.
func (s *PostgresStore) InsertIfAbsent(ctx context.Context, acc *Account) (bool, error) {
	now := time.Now().UTC()
	if acc.CreatedAt.IsZero() {
		acc.CreatedAt = now
	}
	acc.UpdatedAt = acc.CreatedAt

	err := s.pool.QueryRow(ctx, `
		INSERT INTO accounts (
			email, username, password_hash, status,
			verification_token_hash, verification_token_expires_at,
			reset_token_hash, reset_token_expires_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (email) DO NOTHING
		RETURNING id`,
		acc.Email, acc.Username, acc.PasswordHash, string(acc.Status),
		nullString(acc.VerificationTokenHash), nullTime(acc.VerificationTokenExpiresAt),
		nullString(acc.ResetTokenHash), nullTime(acc.ResetTokenExpiresAt),
		acc.CreatedAt, acc.UpdatedAt,
	).Scan(&acc.ID)
	switch {
	case err == nil:
		return true, nil
	case pg.IsNotFoundError(err):
		return false, nil
	default:
		return false, fmt.Errorf("failed to insert account: %w", err)
	}
}

// FindByID returns ErrAccountNotFound when no row matches.
func (s *PostgresStore) FindByID(ctx context.Context, id int64) (*Account, error) {
	return s.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

// FindByEmail looks up a normalized email.
func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return s.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
}

// FindByVerificationToken looks up the digest of a verification token.
func (s *PostgresStore) FindByVerificationToken(ctx context.Context, digest string) (*Account, error) {
	return s.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE verification_token_hash = $1`, digest)
}

// FindByResetToken looks up the digest of a password reset token.
func (s *PostgresStore) FindByResetToken(ctx context.Context, digest string) (*Account, error) {
	return s.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE reset_token_hash = $1`, digest)
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*Account, error) {
	acc, err := scanAccount(s.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	return acc, nil
}

// Update loads the account with a row lock, applies mutate and writes the
// result in one transaction. Serialization failures are retried, so mutate
// may run more than once.
func (s *PostgresStore) Update(ctx context.Context, id int64, mutate func(*Account) error) error {
	return pg.RetrySerializable(ctx, updateAttempts, func() error {
		return s.update(ctx, id, mutate)
	})
}

func (s *PostgresStore) update(ctx context.Context, id int64, mutate func(*Account) error) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		acc, err := scanAccount(tx.QueryRow(ctx,
			`SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			if pg.IsNotFoundError(err) {
				return ErrAccountNotFound
			}
			return fmt.Errorf("failed to lock account: %w", err)
		}

		if err := mutate(acc); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE accounts SET
				username = $2,
				password_hash = $3,
				status = $4,
				verification_token_hash = $5,
				verification_token_expires_at = $6,
				reset_token_hash = $7,
				reset_token_expires_at = $8,
				updated_at = now()
			WHERE id = $1`,
			id, acc.Username, acc.PasswordHash, string(acc.Status),
			nullString(acc.VerificationTokenHash), nullTime(acc.VerificationTokenExpiresAt),
			nullString(acc.ResetTokenHash), nullTime(acc.ResetTokenExpiresAt),
		)
		if err != nil {
			return fmt.Errorf("failed to update account: %w", err)
		}
		return nil
	})
}

func scanAccount(row pgx.Row) (*Account, error) {
	var (
		acc                        Account
		status                     string
		verifyHash, resetHash      *string
		verifyExpires, resetExpire *time.Time
	)
	if err := row.Scan(
		&acc.ID, &acc.Email, &acc.Username, &acc.PasswordHash, &status,
		&verifyHash, &verifyExpires,
		&resetHash, &resetExpire,
		&acc.CreatedAt, &acc.UpdatedAt,
	); err != nil {
		return nil, err
	}

	acc.Status = Status(status)
	if verifyHash != nil {
		acc.VerificationTokenHash = *verifyHash
	}
	if verifyExpires != nil {
		acc.VerificationTokenExpiresAt = verifyExpires.UTC()
	}
	if resetHash != nil {
		acc.ResetTokenHash = *resetHash
	}
	if resetExpire != nil {
		acc.ResetTokenExpiresAt = resetExpire.UTC()
	}
	acc.CreatedAt = acc.CreatedAt.UTC()
	acc.UpdatedAt = acc.UpdatedAt.UTC()
	return &acc, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
