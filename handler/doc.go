// Package handler provides type-safe HTTP handlers.
//
// A HandlerFunc receives a Context and a request value already decoded by
// the configured binders, and returns a Response:
//
//	type LoginRequest struct {
//		Email    string `json:"email"`
//		Password string `json:"password"`
//	}
//
//	login := handler.HandlerFunc[handler.Context, LoginRequest](
//		func(ctx handler.Context, req LoginRequest) handler.Response {
//			session, err := svc.Login(ctx, req.Email, req.Password)
//			if err != nil {
//				return handler.JSONError(err)
//			}
//			return handler.JSON(session)
//		},
//	)
//
//	r.Post("/login", handler.Wrap(login,
//		handler.WithBinders[handler.Context, LoginRequest](binder.JSON()),
//		handler.WithErrorHandler[handler.Context, LoginRequest](handler.NewErrorHandler(log)),
//	))
//
// # Responses
//
// JSON renders the {data, meta, error} envelope. Errors passed to JSON or
// JSONError are mapped to a status code: HTTPError values carry their own
// code and key, validator.ValidationErrors become 422 with per-field
// details, and anything else is a 500 with a generic message. Empty writes
// a bare status and HTML executes an html/template.
//
// # Errors
//
// Binding failures and render failures are passed to the ErrorHandler.
// NewErrorHandler logs them with the request id and writes a JSON error.
package handler
