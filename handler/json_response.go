package handler

import (
	"encoding/json"
	"errors"
	"maps"
	"net/http"

	"github.com/pcbuilder/configurator/pkg/binder"
	"github.com/pcbuilder/configurator/pkg/validator"
)

// JSONResponse is the response envelope.
type JSONResponse struct {
	Data  any            `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *ErrorDetail   `json:"error,omitempty"`
}

// ErrorDetail describes a failed request.
type ErrorDetail struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Details map[string][]string `json:"details,omitempty"`
}

type jsonResponse struct {
	status int
	header http.Header
	body   JSONResponse
}

func (j *jsonResponse) Render(w http.ResponseWriter, _ *http.Request) error {
	for k, v := range j.header {
		w.Header()[k] = v
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(j.status)
	return json.NewEncoder(w).Encode(j.body)
}

// JSONOption configures a JSON response.
type JSONOption func(*jsonResponse)

// WithJSONStatus overrides the 200 status.
func WithJSONStatus(status int) JSONOption {
	return func(r *jsonResponse) { r.status = status }
}

// WithJSONMeta merges meta into the envelope's meta object.
func WithJSONMeta(meta map[string]any) JSONOption {
	return func(r *jsonResponse) {
		if len(meta) == 0 {
			return
		}
		if r.body.Meta == nil {
			r.body.Meta = make(map[string]any, len(meta))
		}
		maps.Copy(r.body.Meta, meta)
	}
}

// WithJSONHeader sets an extra response header.
func WithJSONHeader(key, value string) JSONOption {
	return func(r *jsonResponse) {
		if r.header == nil {
			r.header = make(http.Header)
		}
		r.header.Set(key, value)
	}
}

// JSON renders v as the envelope's data. An error value is rendered as
// JSONError would.
func JSON(v any, opts ...JSONOption) Response {
	if err, ok := v.(error); ok {
		return JSONError(err, opts...)
	}

	r := &jsonResponse{status: http.StatusOK, body: JSONResponse{Data: v}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// JSONError renders err as the envelope's error with a matching status.
func JSONError(err error, opts ...JSONOption) Response {
	status, detail := ErrorToDetail(err)
	r := &jsonResponse{status: status, body: JSONResponse{Error: detail}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ErrorToDetail maps err to a status code and a client safe description.
func ErrorToDetail(err error) (int, *ErrorDetail) {
	if ve := validator.ExtractValidationErrors(err); ve != nil {
		return http.StatusUnprocessableEntity, &ErrorDetail{
			Code:    "validation_error",
			Message: "Validation failed",
			Details: ve.Fields(),
		}
	}

	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code, &ErrorDetail{Code: httpErr.Key, Message: httpErr.publicMessage()}
	}

	switch {
	case errors.Is(err, binder.ErrRequestBodyTooLarge):
		return ErrRequestBodyTooLarge.Code, &ErrorDetail{Code: ErrRequestBodyTooLarge.Key, Message: "Request body too large"}
	case errors.Is(err, binder.ErrUnsupportedMediaType):
		return ErrUnsupportedMedia.Code, &ErrorDetail{Code: ErrUnsupportedMedia.Key, Message: "Unsupported content type"}
	case errors.Is(err, binder.ErrFailedToParseJSON),
		errors.Is(err, binder.ErrFailedToParseForm),
		errors.Is(err, binder.ErrFailedToParseQuery),
		errors.Is(err, binder.ErrFailedToParsePath):
		return ErrBadRequest.Code, &ErrorDetail{Code: ErrBadRequest.Key, Message: "Malformed request"}
	}

	return http.StatusInternalServerError, &ErrorDetail{
		Code:    ErrInternal.Key,
		Message: "An error occurred processing your request",
	}
}
