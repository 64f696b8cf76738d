package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/pcbuilder/configurator/pkg/jwt"
	"github.com/pcbuilder/configurator/pkg/logger"
	"github.com/pcbuilder/configurator/pkg/password"
	"github.com/pcbuilder/configurator/pkg/sanitizer"
	"github.com/pcbuilder/configurator/pkg/token"
	"github.com/pcbuilder/configurator/pkg/validator"
)

// PasswordHasher is satisfied by *password.Hasher.
type PasswordHasher interface {
	Hash(raw string) (string, error)
	Verify(raw, digest string) error
	Burn(raw string)
}

// TokenIssuer is satisfied by *token.Issuer.
type TokenIssuer interface {
	Issue(ttl time.Duration) (token.Token, error)
}

// SessionCodec is satisfied by *jwt.Codec.
type SessionCodec interface {
	Issue(email string, accountID int64) (string, *jwt.Claims, error)
	Verify(token string) (*jwt.Claims, error)
}

// Service implements the account lifecycle.
type Service struct {
	store       Store
	hasher      PasswordHasher
	tokens      TokenIssuer
	sessions    SessionCodec
	notifier    Notifier
	revocations jwt.RevocationList
	cfg         Config
	log         *slog.Logger
	now         func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger. Logs are discarded by default.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock sets the time source used to check token expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRevocationList enables server side logout. Without it Logout only
// validates the token and the client is expected to discard it.
func WithRevocationList(l jwt.RevocationList) Option {
	return func(s *Service) { s.revocations = l }
}

// NewService wires the account operations. A nil dependency yields
// ErrMissingDependency and an invalid cfg yields ErrInvalidServiceConf.
func NewService(store Store, hasher PasswordHasher, tokens TokenIssuer, sessions SessionCodec, notifier Notifier, cfg Config, opts ...Option) (*Service, error) {
	switch {
	case store == nil:
		return nil, fmt.Errorf("%w: store", ErrMissingDependency)
	case hasher == nil:
		return nil, fmt.Errorf("%w: password hasher", ErrMissingDependency)
	case tokens == nil:
		return nil, fmt.Errorf("%w: token issuer", ErrMissingDependency)
	case sessions == nil:
		return nil, fmt.Errorf("%w: session codec", ErrMissingDependency)
	case notifier == nil:
		return nil, fmt.Errorf("%w: notifier", ErrMissingDependency)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	s := &Service{
		store:    store,
		hasher:   hasher,
		tokens:   tokens,
		sessions: sessions,
		notifier: notifier,
		cfg:      cfg,
		log:      logger.Discard(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("account"))
	return s, nil
}

// Register creates a PendingVerification account and mails the verification
// link. A mail failure is reported in Registration.DeliveryErr and does not
// undo the account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Registration, error) {
	email := sanitizer.NormalizeEmail(in.Email)
	username := sanitizer.StripControl(sanitizer.TrimString(in.Username))

	if err := validator.Apply(append(
		[]validator.Rule{
			validator.ValidEmail("email", email),
			validator.MaxLen("username", username, s.cfg.UsernameMaxLength),
		},
		s.passwordRules("password", in.Password)...,
	)...); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	tok, err := s.tokens.Issue(s.cfg.VerificationTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue verification token: %w", err)
	}

	acc := &Account{
		Email:                      email,
		Username:                   username,
		PasswordHash:               hash,
		Status:                     StatusPendingVerification,
		VerificationTokenHash:      tok.Digest,
		VerificationTokenExpiresAt: tok.ExpiresAt,
		CreatedAt:                  s.now().UTC(),
	}
	inserted, err := s.store.InsertIfAbsent(ctx, acc)
	if err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}
	if !inserted {
		return nil, ErrDuplicateEmail
	}

	s.log.InfoContext(ctx, "account registered",
		logger.Event("account_registered"),
		logger.AccountID(acc.ID),
		logger.Email(acc.Email),
	)

	reg := &Registration{Account: acc}
	if err := s.notifier.SendVerification(ctx, acc.Email, s.verifyLink(tok.Value)); err != nil {
		s.log.WarnContext(ctx, "failed to queue verification email",
			logger.AccountID(acc.ID),
			logger.Error(err),
		)
		reg.DeliveryErr = errors.Join(ErrEmailDeliveryFailure, err)
	}
	return reg, nil
}

// VerifyEmail consumes a verification token and activates the account.
// An expired token is cleared and reported as ErrTokenExpired; a token that
// is unknown or already used is ErrTokenInvalid.
func (s *Service) VerifyEmail(ctx context.Context, rawToken string) (*Account, error) {
	if rawToken == "" {
		return nil, ErrTokenInvalid
	}

	acc, err := s.store.FindByVerificationToken(ctx, token.Digest(rawToken))
	if err != nil {
		return nil, s.tokenLookupErr(err)
	}

	var (
		status  token.Status
		updated Account
	)
	err = s.store.Update(ctx, acc.ID, func(a *Account) error {
		status = token.Validate(a.VerificationTokenHash, a.VerificationTokenExpiresAt, rawToken, s.now())
		switch status {
		case token.Mismatch:
			return ErrTokenInvalid
		case token.Valid:
			a.Status = StatusActive
		}
		a.clearVerificationToken()
		updated = *a
		return nil
	})
	if err != nil {
		return nil, s.tokenLookupErr(err)
	}
	if status == token.Expired {
		return nil, ErrTokenExpired
	}

	s.log.InfoContext(ctx, "email verified",
		logger.Event("email_verified"),
		logger.AccountID(updated.ID),
	)
	return &updated, nil
}

// Authenticate checks credentials. Unknown email, wrong password and an
// unverified account all yield ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, rawPassword string) (*Account, error) {
	email = sanitizer.NormalizeEmail(email)

	acc, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, ErrAccountNotFound) {
		s.hasher.Burn(rawPassword)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}

	if err := s.hasher.Verify(rawPassword, acc.PasswordHash); err != nil {
		if !errors.Is(err, password.ErrMismatch) {
			s.log.ErrorContext(ctx, "stored password hash is unusable",
				logger.AccountID(acc.ID),
				logger.Error(err),
			)
		}
		return nil, ErrInvalidCredentials
	}
	if !acc.IsActive() {
		return nil, ErrInvalidCredentials
	}
	return acc, nil
}

// Login authenticates and issues a session token.
func (s *Service) Login(ctx context.Context, email, rawPassword string) (*Session, error) {
	acc, err := s.Authenticate(ctx, email, rawPassword)
	if err != nil {
		return nil, err
	}

	signed, claims, err := s.sessions.Issue(acc.Email, acc.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	s.log.InfoContext(ctx, "session issued",
		logger.Event("session_issued"),
		logger.AccountID(acc.ID),
		logger.TokenID(claims.ID),
	)
	return &Session{
		Token:     signed,
		AccountID: acc.ID,
		Email:     acc.Email,
		ExpiresAt: claims.Expiry(),
	}, nil
}

// RequestPasswordReset mints a reset token for an Active account and mails
// the reset link. Unless Config.ResetStrict is set, unknown or unverified
// accounts and mail failures are not reported to the caller.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = sanitizer.NormalizeEmail(email)
	if err := validator.Apply(validator.ValidEmail("email", email)); err != nil {
		return err
	}

	acc, err := s.store.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrAccountNotFound):
		return s.resetRefused(ctx, email)
	case err != nil:
		return errors.Join(ErrStoreFailure, err)
	case !acc.IsActive():
		return s.resetRefused(ctx, email)
	}

	tok, err := s.tokens.Issue(s.cfg.ResetTTL)
	if err != nil {
		return fmt.Errorf("failed to issue reset token: %w", err)
	}
	err = s.store.Update(ctx, acc.ID, func(a *Account) error {
		if !a.IsActive() {
			return ErrAccountNotFound
		}
		a.ResetTokenHash = tok.Digest
		a.ResetTokenExpiresAt = tok.ExpiresAt
		return nil
	})
	if errors.Is(err, ErrAccountNotFound) {
		return s.resetRefused(ctx, email)
	}
	if err != nil {
		return errors.Join(ErrStoreFailure, err)
	}

	if err := s.notifier.SendPasswordReset(ctx, acc.Email, s.ResetLink(tok.Value)); err != nil {
		s.log.WarnContext(ctx, "failed to queue password reset email",
			logger.AccountID(acc.ID),
			logger.Error(err),
		)
		if s.cfg.ResetStrict {
			return errors.Join(ErrEmailDeliveryFailure, err)
		}
		return nil
	}

	s.log.InfoContext(ctx, "password reset requested",
		logger.Event("password_reset_requested"),
		logger.AccountID(acc.ID),
	)
	return nil
}

func (s *Service) resetRefused(ctx context.Context, email string) error {
	s.log.DebugContext(ctx, "password reset refused for unknown or unverified account",
		logger.Email(email),
	)
	if s.cfg.ResetStrict {
		return ErrAccountNotFound
	}
	return nil
}

// ResetPassword consumes a reset token and replaces the password hash. The
// account status is left as is.
func (s *Service) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	if err := validator.Apply(s.passwordRules("newPassword", newPassword)...); err != nil {
		return err
	}
	if rawToken == "" {
		return ErrTokenInvalid
	}

	acc, err := s.store.FindByResetToken(ctx, token.Digest(rawToken))
	if err != nil {
		return s.tokenLookupErr(err)
	}

	// Hashing happens outside the store transaction so the row lock is not
	// held for the bcrypt work.
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	var status token.Status
	err = s.store.Update(ctx, acc.ID, func(a *Account) error {
		status = token.Validate(a.ResetTokenHash, a.ResetTokenExpiresAt, rawToken, s.now())
		switch status {
		case token.Mismatch:
			return ErrTokenInvalid
		case token.Valid:
			a.PasswordHash = hash
		}
		a.clearResetToken()
		return nil
	})
	if err != nil {
		return s.tokenLookupErr(err)
	}
	if status == token.Expired {
		return ErrTokenExpired
	}

	s.log.InfoContext(ctx, "password reset",
		logger.Event("password_reset"),
		logger.AccountID(acc.ID),
	)
	return nil
}

// Logout revokes a session token until its natural expiry. Missing,
// malformed or expired tokens need no revocation and are not an error.
func (s *Service) Logout(ctx context.Context, rawSessionToken string) error {
	claims, err := s.sessions.Verify(rawSessionToken)
	if err != nil {
		return nil
	}
	if s.revocations == nil {
		return nil
	}

	if err := s.revocations.Revoke(ctx, claims.ID, claims.Expiry()); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	s.log.InfoContext(ctx, "session revoked",
		logger.Event("session_revoked"),
		logger.AccountID(claims.AccountID),
		logger.TokenID(claims.ID),
	)
	return nil
}

// Account returns the account with the given id.
func (s *Service) Account(ctx context.Context, id int64) (*Account, error) {
	acc, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, err
		}
		return nil, errors.Join(ErrStoreFailure, err)
	}
	return acc, nil
}

func (s *Service) passwordRules(field, raw string) []validator.Rule {
	return []validator.Rule{
		validator.Required(field, raw),
		validator.MinLen(field, raw, s.cfg.PasswordMinLength),
		validator.MaxBytes(field, raw, password.MaxLength),
	}
}

// tokenLookupErr keeps token outcomes as they are and maps a vanished
// account to ErrTokenInvalid.
func (s *Service) tokenLookupErr(err error) error {
	switch {
	case errors.Is(err, ErrTokenInvalid), errors.Is(err, ErrAccountNotFound):
		return ErrTokenInvalid
	case errors.Is(err, ErrTokenExpired):
		return ErrTokenExpired
	default:
		return errors.Join(ErrStoreFailure, err)
	}
}

func (s *Service) verifyLink(raw string) string {
	return strings.TrimRight(s.cfg.VerifyLinkBase, "/") + "/" + url.PathEscape(raw)
}

// ResetLink returns the password reset link for a raw reset token.
func (s *Service) ResetLink(raw string) string {
	sep := "?"
	if strings.Contains(s.cfg.ResetLinkBase, "?") {
		sep = "&"
	}
	return s.cfg.ResetLinkBase + sep + "token=" + url.QueryEscape(raw)
}
