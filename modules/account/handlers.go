package account

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/pcbuilder/configurator/handler"
	"github.com/pcbuilder/configurator/pkg/binder"
	"github.com/pcbuilder/configurator/pkg/jwt"
	"github.com/pcbuilder/configurator/pkg/logger"
	accountsvc "github.com/pcbuilder/configurator/svc/account"
)

//go:embed templates/*.html
var templatesFS embed.FS

var (
	pageTemplates       = template.Must(template.ParseFS(templatesFS, "templates/*.html"))
	appRedirectTemplate = pageTemplates.Lookup("app_redirect.html")
)

// SignupRequest accepts JSON or form bodies.
type SignupRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Username string `json:"username" form:"username"`
}

// VerifyRequest carries the token from the verification link.
type VerifyRequest struct {
	Token string `path:"token"`
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// PasswordResetRequest accepts the email from the query string, a JSON body
// or a form body. Later sources win.
type PasswordResetRequest struct {
	Email string `json:"email" form:"email" query:"email"`
}

// ResetPasswordRequest is the body of POST /reset-password.
type ResetPasswordRequest struct {
	Token       string `json:"token" form:"token" query:"token"`
	NewPassword string `json:"newPassword" form:"newPassword" query:"newPassword"`
}

type AppRedirectRequest struct {
	Token string `query:"token"`
}

// AccountResponse is the public view of an account.
type AccountResponse struct {
	AccountID int64             `json:"accountId"`
	Email     string            `json:"email"`
	Username  string            `json:"username"`
	Status    accountsvc.Status `json:"status"`
}

// SessionResponse is returned by login.
type SessionResponse struct {
	Token     string    `json:"token"`
	AccountID int64     `json:"accountId"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// MessageResponse is a plain confirmation body.
type MessageResponse struct {
	Message string `json:"message"`
}

func newAccountResponse(acc *accountsvc.Account) AccountResponse {
	return AccountResponse{
		AccountID: acc.ID,
		Email:     acc.Email,
		Username:  acc.Username,
		Status:    acc.Status,
	}
}

// failure renders err through the router's error handler so that it is
// logged with the request.
type failure struct {
	err error
	eh  handler.ErrorHandler[handler.Context]
}

func (f failure) Render(w http.ResponseWriter, r *http.Request) error {
	f.eh(handler.NewContext(w, r), f.err)
	return nil
}

func (h *accountHandlers) fail(err error) handler.Response {
	return failure{err: httpError(err), eh: h.errorHandler}
}

func (h *accountHandlers) signupHandler() http.HandlerFunc {
	return handler.Wrap(h.signup,
		handler.WithBinders[handler.Context, SignupRequest](binder.JSON(), binder.Form()),
		handler.WithErrorHandler[handler.Context, SignupRequest](h.errorHandler),
	)
}

func (h *accountHandlers) signup(ctx handler.Context, req SignupRequest) handler.Response {
	reg, err := h.svc.Register(ctx, accountsvc.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
	})
	if err != nil {
		return h.fail(err)
	}

	opts := []handler.JSONOption{handler.WithJSONStatus(http.StatusCreated)}
	if reg.DeliveryErr != nil {
		opts = append(opts, handler.WithJSONMeta(map[string]any{"warning": "email_delivery_failed"}))
	}
	return handler.JSON(newAccountResponse(reg.Account), opts...)
}

func (h *accountHandlers) verifyHandler() http.HandlerFunc {
	return handler.Wrap(h.verify,
		handler.WithBinders[handler.Context, VerifyRequest](binder.Path(chi.URLParam)),
		handler.WithErrorHandler[handler.Context, VerifyRequest](h.errorHandler),
	)
}

func (h *accountHandlers) verify(ctx handler.Context, req VerifyRequest) handler.Response {
	acc, err := h.svc.VerifyEmail(ctx, req.Token)
	if err != nil {
		return h.fail(err)
	}
	return handler.JSON(newAccountResponse(acc))
}

func (h *accountHandlers) loginHandler() http.HandlerFunc {
	return handler.Wrap(h.login,
		handler.WithBinders[handler.Context, LoginRequest](binder.JSON(), binder.Form()),
		handler.WithErrorHandler[handler.Context, LoginRequest](h.errorHandler),
	)
}

func (h *accountHandlers) login(ctx handler.Context, req LoginRequest) handler.Response {
	sess, err := h.svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return h.fail(err)
	}
	return handler.JSON(SessionResponse{
		Token:     sess.Token,
		AccountID: sess.AccountID,
		Email:     sess.Email,
		ExpiresAt: sess.ExpiresAt,
	})
}

func (h *accountHandlers) requestResetHandler() http.HandlerFunc {
	return handler.Wrap(h.requestReset,
		handler.WithBinders[handler.Context, PasswordResetRequest](binder.Query(), binder.JSON(), binder.Form()),
		handler.WithErrorHandler[handler.Context, PasswordResetRequest](h.errorHandler),
	)
}

func (h *accountHandlers) requestReset(ctx handler.Context, req PasswordResetRequest) handler.Response {
	if err := h.svc.RequestPasswordReset(ctx, req.Email); err != nil {
		return h.fail(err)
	}
	return handler.JSON(MessageResponse{Message: "If the account exists, a password reset link has been sent"})
}

func (h *accountHandlers) resetPasswordHandler() http.HandlerFunc {
	return handler.Wrap(h.resetPassword,
		handler.WithBinders[handler.Context, ResetPasswordRequest](binder.Query(), binder.JSON(), binder.Form()),
		handler.WithErrorHandler[handler.Context, ResetPasswordRequest](h.errorHandler),
	)
}

func (h *accountHandlers) resetPassword(ctx handler.Context, req ResetPasswordRequest) handler.Response {
	if err := h.svc.ResetPassword(ctx, req.Token, req.NewPassword); err != nil {
		return h.fail(err)
	}
	return handler.JSON(MessageResponse{Message: "Password has been reset"})
}

func (h *accountHandlers) logoutHandler() http.HandlerFunc {
	return handler.Wrap(h.logout,
		handler.WithErrorHandler[handler.Context, struct{}](h.errorHandler),
	)
}

// logout always answers 204. A session that could not be revoked is logged
// and expires on its own.
func (h *accountHandlers) logout(ctx handler.Context, _ struct{}) handler.Response {
	raw, err := jwt.BearerTokenExtractor(ctx.Request())
	if err != nil {
		return handler.Empty()
	}
	if err := h.svc.Logout(ctx, raw); err != nil {
		h.log.ErrorContext(ctx, "failed to revoke session",
			logger.Component("account"),
			logger.Error(err),
		)
	}
	return handler.Empty()
}

func (h *accountHandlers) meHandler() http.HandlerFunc {
	return handler.Wrap(h.me,
		handler.WithErrorHandler[handler.Context, struct{}](h.errorHandler),
	)
}

func (h *accountHandlers) me(ctx handler.Context, _ struct{}) handler.Response {
	claims, ok := jwt.GetClaims(ctx)
	if !ok {
		return h.fail(ErrSessionRequired)
	}

	acc, err := h.svc.Account(ctx, claims.AccountID)
	if errors.Is(err, accountsvc.ErrAccountNotFound) {
		return h.fail(ErrSessionRequired)
	}
	if err != nil {
		return h.fail(err)
	}
	return handler.JSON(newAccountResponse(acc))
}

func (h *accountHandlers) authErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	if !errors.Is(err, jwt.ErrRevocationUnavailable) {
		w.Header().Set("WWW-Authenticate", `Bearer realm="pcbuilder"`)
	}
	h.errorHandler(handler.NewContext(w, r), httpError(err))
}

type appRedirectPage struct {
	Link template.URL
}

func (h *accountHandlers) appRedirectHandler() http.HandlerFunc {
	return handler.Wrap(h.appRedirect,
		handler.WithBinders[handler.Context, AppRedirectRequest](binder.Query()),
		handler.WithErrorHandler[handler.Context, AppRedirectRequest](h.errorHandler),
	)
}

func (h *accountHandlers) appRedirect(_ handler.Context, req AppRedirectRequest) handler.Response {
	if req.Token == "" {
		return handler.TemplWithStatus(http.StatusBadRequest, appRedirectComponent(appRedirectPage{}))
	}
	// The link is built from configuration and a query escaped token.
	return handler.Templ(appRedirectComponent(appRedirectPage{
		Link: template.URL(h.svc.ResetLink(req.Token)),
	}))
}

func appRedirectComponent(page appRedirectPage) templ.Component {
	return templ.FromGoHTML(appRedirectTemplate, page)
}
