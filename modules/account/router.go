// Package account mounts the account HTTP API under /api/v1/accounts and the
// /app-redirect page used by password reset mails.
package account

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pcbuilder/configurator/handler"
	"github.com/pcbuilder/configurator/pkg/jwt"
	"github.com/pcbuilder/configurator/pkg/logger"
	"github.com/pcbuilder/configurator/pkg/ratelimiter"
	accountsvc "github.com/pcbuilder/configurator/svc/account"
)

// Service is the account lifecycle used by the handlers. It is satisfied by
// *accountsvc.Service.
type Service interface {
	Register(ctx context.Context, in accountsvc.RegisterInput) (*accountsvc.Registration, error)
	VerifyEmail(ctx context.Context, rawToken string) (*accountsvc.Account, error)
	Login(ctx context.Context, email, rawPassword string) (*accountsvc.Session, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, rawToken, newPassword string) error
	Logout(ctx context.Context, rawSessionToken string) error
	Account(ctx context.Context, id int64) (*accountsvc.Account, error)
	ResetLink(rawToken string) string
}

// RouterOptions configures the account router. Service and Codec are
// required; Revocations and Limiter are optional.
type RouterOptions struct {
	Service     Service
	Codec       *jwt.Codec
	Revocations jwt.RevocationList

	// Limiter throttles signup, login and reset requests per client IP.
	Limiter *ratelimiter.FixedWindow

	Logger *slog.Logger
}

type accountHandlers struct {
	svc          Service
	log          *slog.Logger
	errorHandler handler.ErrorHandler[handler.Context]
}

func newHandlers(svc Service, log *slog.Logger) *accountHandlers {
	if log == nil {
		log = logger.Discard()
	}
	return &accountHandlers{
		svc:          svc,
		log:          log,
		errorHandler: handler.NewErrorHandler(log),
	}
}

// Router returns the /api/v1/accounts routes.
//
// Example:
//
//	r := chi.NewRouter()
//	r.Mount("/api/v1/accounts", account.Router(account.RouterOptions{
//	    Service: svc,
//	    Codec:   codec,
//	}))
func Router(opts RouterOptions) chi.Router {
	if opts.Service == nil || opts.Codec == nil {
		panic("account: router requires a service and a session codec")
	}
	h := newHandlers(opts.Service, opts.Logger)

	throttle := func(scope string) func(http.Handler) http.Handler {
		if opts.Limiter == nil {
			return func(next http.Handler) http.Handler { return next }
		}
		return ratelimiter.Middleware(opts.Limiter, ratelimiter.ByIP("accounts:"+scope),
			ratelimiter.WithLogger(h.log),
			ratelimiter.WithLimitHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_ = handler.JSONError(handler.ErrTooManyRequests).Render(w, r)
			})),
		)
	}

	r := chi.NewRouter()

	r.With(throttle("signup")).Post("/signup", h.signupHandler())
	r.Get("/verify/{token}", h.verifyHandler())
	r.With(throttle("login")).Post("/login", h.loginHandler())
	r.With(throttle("reset")).Post("/reset-password/request", h.requestResetHandler())
	r.Post("/reset-password", h.resetPasswordHandler())
	r.Post("/logout", h.logoutHandler())

	r.Group(func(auth chi.Router) {
		auth.Use(jwt.Middleware(jwt.MiddlewareConfig{
			Codec:        opts.Codec,
			Revocations:  opts.Revocations,
			ErrorHandler: h.authErrorHandler,
		}))
		auth.Get("/me", h.meHandler())
	})

	return r
}

// AppRedirect returns the handler for GET /app-redirect?token=..., a page
// that links to the app's reset deep link.
func AppRedirect(svc Service, log *slog.Logger) http.HandlerFunc {
	if svc == nil {
		panic("account: app redirect requires a service")
	}
	return newHandlers(svc, log).appRedirectHandler()
}
