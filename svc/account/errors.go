package account

import "errors"

var (
	ErrDuplicateEmail       = errors.New("account with this email already exists")
	ErrAccountNotFound      = errors.New("account not found")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrTokenInvalid         = errors.New("token is invalid")
	ErrTokenExpired         = errors.New("token has expired")
	ErrEmailDeliveryFailure = errors.New("failed to deliver email")

	ErrStoreFailure       = errors.New("account store failure")
	ErrMissingDependency  = errors.New("account service dependency is missing")
	ErrInvalidServiceConf = errors.New("invalid account service configuration")
)
