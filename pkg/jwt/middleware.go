package jwt

import (
	"errors"
	"net/http"
	"strings"
)

// TokenExtractorFunc extracts a raw token from a request.
type TokenExtractorFunc func(r *http.Request) (string, error)

// ErrorHandlerFunc writes the response for a rejected request.
type ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)

// MiddlewareConfig configures Middleware.
type MiddlewareConfig struct {
	Codec        *Codec
	Revocations  RevocationList     // optional
	Extractor    TokenExtractorFunc // defaults to BearerTokenExtractor
	ErrorHandler ErrorHandlerFunc   // defaults to plain text 401/503
}

// Middleware authenticates requests with a session token and stores the token
// and its claims in the request context. Revoked tokens are rejected with
// ErrTokenRevoked.
func Middleware(cfg MiddlewareConfig) func(next http.Handler) http.Handler {
	if cfg.Codec == nil {
		panic("jwt: middleware requires a codec")
	}
	if cfg.Extractor == nil {
		cfg.Extractor = BearerTokenExtractor
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = defaultErrorHandler
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := cfg.Extractor(r)
			if err != nil {
				cfg.ErrorHandler(w, r, err)
				return
			}

			claims, err := cfg.Codec.Verify(raw)
			if err != nil {
				cfg.ErrorHandler(w, r, err)
				return
			}

			if cfg.Revocations != nil {
				revoked, err := cfg.Revocations.IsRevoked(r.Context(), claims.ID)
				if err != nil {
					cfg.ErrorHandler(w, r, errors.Join(ErrRevocationUnavailable, err))
					return
				}
				if revoked {
					cfg.ErrorHandler(w, r, ErrTokenRevoked)
					return
				}
			}

			ctx := SetToken(r.Context(), raw)
			ctx = SetClaims(ctx, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerTokenExtractor reads "Authorization: Bearer <token>". The scheme is
// matched case-insensitively.
func BearerTokenExtractor(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrMissingToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

func defaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	if errors.Is(err, ErrRevocationUnavailable) {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("WWW-Authenticate", `Bearer realm="pcbuilder"`)
	http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
}
