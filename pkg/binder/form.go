package binder

import (
	"fmt"
	"net/http"
	"strings"
)

// DefaultMaxMemory is the in-memory limit for multipart forms.
const DefaultMaxMemory = 10 << 20

// Form binds url-encoded and multipart form bodies using the `form` tag.
// Only body values are bound; query parameters are left to Query.
func Form() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		mediaType := mediaTypeOf(r)

		switch {
		case mediaType == "application/x-www-form-urlencoded":
			if err := r.ParseForm(); err != nil {
				return fmt.Errorf("%w: %v", ErrFailedToParseForm, err)
			}
			return bindToStruct(v, "form", r.PostForm, ErrFailedToParseForm)

		case strings.HasPrefix(mediaType, "multipart/form-data"):
			if err := r.ParseMultipartForm(DefaultMaxMemory); err != nil {
				return fmt.Errorf("%w: %v", ErrFailedToParseForm, err)
			}
			if r.MultipartForm == nil {
				return nil
			}
			return bindToStruct(v, "form", r.MultipartForm.Value, ErrFailedToParseForm)

		default:
			return ErrBinderNotApplicable
		}
	}
}

// Query binds URL query parameters using the `query` tag.
func Query() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		if r.URL == nil || r.URL.RawQuery == "" {
			return ErrBinderNotApplicable
		}
		return bindToStruct(v, "query", r.URL.Query(), ErrFailedToParseQuery)
	}
}

// Path binds router path parameters using the `path` tag. The extractor
// reads a named parameter, typically chi.URLParam.
func Path(extractor func(r *http.Request, name string) string) func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		if extractor == nil {
			return fmt.Errorf("%w: no path extractor configured", ErrFailedToParsePath)
		}

		names, err := taggedFields(v, "path")
		if err != nil {
			return fmt.Errorf("%w: %v", ErrFailedToParsePath, err)
		}

		values := make(map[string][]string, len(names))
		for _, name := range names {
			if val := extractor(r, name); val != "" {
				values[name] = []string{val}
			}
		}
		return bindToStruct(v, "path", values, ErrFailedToParsePath)
	}
}

func mediaTypeOf(r *http.Request) string {
	ct := r.Header.Get("Content-Type")
	if idx := strings.IndexByte(ct, ';'); idx != -1 {
		ct = ct[:idx]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}
