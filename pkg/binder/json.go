package binder

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// DefaultMaxJSONSize caps JSON request bodies at 1 MB.
const DefaultMaxJSONSize = 1 << 20

// JSONOption configures the JSON binder.
type JSONOption func(*jsonConfig)

type jsonConfig struct {
	maxSize       int64
	strict        bool
	requireHeader bool
}

// WithMaxJSONSize overrides DefaultMaxJSONSize.
func WithMaxJSONSize(n int64) JSONOption {
	return func(c *jsonConfig) {
		if n > 0 {
			c.maxSize = n
		}
	}
}

// WithStrictJSON rejects unknown fields.
func WithStrictJSON() JSONOption {
	return func(c *jsonConfig) { c.strict = true }
}

// WithRequiredJSON makes the binder fail with ErrUnsupportedMediaType
// instead of ErrBinderNotApplicable when the request is not JSON.
func WithRequiredJSON() JSONOption {
	return func(c *jsonConfig) { c.requireHeader = true }
}

// JSON binds an application/json body. Requests with another content type
// are reported as ErrBinderNotApplicable.
func JSON(opts ...JSONOption) func(r *http.Request, v any) error {
	cfg := jsonConfig{maxSize: DefaultMaxJSONSize}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(r *http.Request, v any) error {
		mediaType := mediaTypeOf(r)
		if mediaType != "application/json" {
			if cfg.requireHeader {
				return fmt.Errorf("%w: got %q, expected application/json", ErrUnsupportedMediaType, mediaType)
			}
			return ErrBinderNotApplicable
		}
		if r.Body == nil || r.Body == http.NoBody {
			return fmt.Errorf("%w: empty body", ErrFailedToParseJSON)
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, cfg.maxSize+1))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrFailedToParseJSON, err)
		}
		if int64(len(body)) > cfg.maxSize {
			return fmt.Errorf("%w: max %d bytes", ErrRequestBodyTooLarge, cfg.maxSize)
		}

		dec := json.NewDecoder(bytes.NewReader(body))
		if cfg.strict {
			dec.DisallowUnknownFields()
		}
		if err := dec.Decode(v); err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("%w: empty body", ErrFailedToParseJSON)
			}
			return fmt.Errorf("%w: %v", ErrFailedToParseJSON, err)
		}
		if dec.More() {
			return fmt.Errorf("%w: unexpected data after JSON value", ErrFailedToParseJSON)
		}

		return nil
	}
}
