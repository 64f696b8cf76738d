// Package binder decodes HTTP requests into typed structs.
//
// Every binder has the signature func(r *http.Request, v any) error and
// reads only its own struct tag. Binders that do not apply to a request,
// such as JSON on a form post, return ErrBinderNotApplicable so a chain of
// binders can be tried in order:
//
//	type ResetRequest struct {
//		Token       string `json:"token" form:"token" query:"token"`
//		NewPassword string `json:"newPassword" form:"newPassword" query:"newPassword"`
//	}
//
//	handler.Wrap(h, handler.WithBinders[handler.Context, ResetRequest](
//		binder.Query(),
//		binder.JSON(),
//		binder.Form(),
//	))
//
// Binders run in order and later ones overwrite fields set by earlier ones,
// so body values take precedence over query values in the example above.
package binder
