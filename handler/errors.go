package handler

import (
	"errors"
	"net/http"
)

// ErrNilResponse is returned when a handler yields a nil Response.
var ErrNilResponse = errors.New("handler returned nil response")

// HTTPError is an error with an HTTP status code and a machine readable key.
// Message is optional; when empty the status text is shown to clients.
type HTTPError struct {
	Code    int
	Key     string
	Message string
}

func (e HTTPError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Key
}

// WithMessage returns a copy of e with a client facing message.
func (e HTTPError) WithMessage(msg string) HTTPError {
	e.Message = msg
	return e
}

func (e HTTPError) publicMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.Code)
}

// NewHTTPError creates an HTTPError.
func NewHTTPError(code int, key string) HTTPError {
	return HTTPError{Code: code, Key: key}
}

var (
	ErrBadRequest          = NewHTTPError(http.StatusBadRequest, "bad_request")
	ErrUnauthorized        = NewHTTPError(http.StatusUnauthorized, "unauthorized")
	ErrUnsupportedMedia    = NewHTTPError(http.StatusUnsupportedMediaType, "unsupported_media_type")
	ErrTooManyRequests     = NewHTTPError(http.StatusTooManyRequests, "too_many_requests")
	ErrInternal            = NewHTTPError(http.StatusInternalServerError, "internal_error")
	ErrServiceUnavailable  = NewHTTPError(http.StatusServiceUnavailable, "service_unavailable")
	ErrRequestBodyTooLarge = NewHTTPError(http.StatusRequestEntityTooLarge, "request_too_large")
)
