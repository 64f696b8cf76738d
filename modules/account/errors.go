package account

import (
	"errors"
	"net/http"

	"github.com/pcbuilder/configurator/handler"
	"github.com/pcbuilder/configurator/pkg/jwt"
	accountsvc "github.com/pcbuilder/configurator/svc/account"
)

var (
	ErrDuplicateEmail     = handler.HTTPError{Code: http.StatusConflict, Key: "duplicate_email", Message: "An account with this email already exists"}
	ErrInvalidCredentials = handler.HTTPError{Code: http.StatusUnauthorized, Key: "invalid_credentials", Message: "Invalid email or password"}
	ErrInvalidToken       = handler.HTTPError{Code: http.StatusBadRequest, Key: "invalid_token", Message: "Invalid or already used token"}
	ErrExpiredToken       = handler.HTTPError{Code: http.StatusBadRequest, Key: "token_expired", Message: "Token has expired"}
	ErrResetNotAllowed    = handler.HTTPError{Code: http.StatusBadRequest, Key: "account_not_found", Message: "Email not found or account not verified"}
	ErrEmailDelivery      = handler.HTTPError{Code: http.StatusServiceUnavailable, Key: "email_delivery_failed", Message: "Email could not be sent, try again later"}
	ErrSessionRequired    = handler.ErrUnauthorized.WithMessage("Valid session token required")
)

// httpError maps account errors to client errors and keeps the cause for
// logging. Validation errors and unknown errors pass through for
// handler.ErrorToDetail.
func httpError(err error) error {
	var mapped handler.HTTPError
	switch {
	case errors.Is(err, accountsvc.ErrDuplicateEmail):
		mapped = ErrDuplicateEmail
	case errors.Is(err, accountsvc.ErrInvalidCredentials):
		mapped = ErrInvalidCredentials
	case errors.Is(err, accountsvc.ErrTokenExpired):
		mapped = ErrExpiredToken
	case errors.Is(err, accountsvc.ErrTokenInvalid):
		mapped = ErrInvalidToken
	case errors.Is(err, accountsvc.ErrAccountNotFound):
		mapped = ErrResetNotAllowed
	case errors.Is(err, accountsvc.ErrEmailDeliveryFailure):
		mapped = ErrEmailDelivery
	case errors.Is(err, jwt.ErrRevocationUnavailable):
		mapped = handler.ErrServiceUnavailable
	case errors.Is(err, jwt.ErrMissingToken),
		errors.Is(err, jwt.ErrTokenInvalid),
		errors.Is(err, jwt.ErrTokenExpired),
		errors.Is(err, jwt.ErrTokenRevoked):
		mapped = ErrSessionRequired
	default:
		return err
	}
	return errors.Join(mapped, err)
}
