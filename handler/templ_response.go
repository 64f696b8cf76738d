package handler

import (
	"bytes"
	"net/http"

	"github.com/a-h/templ"
)

// templResponse wraps a templ component to implement Response.
type templResponse struct {
	status    int
	component templ.Component
}

// Render renders the component into a buffer first so a failing component
// never produces a half written page.
func (t templResponse) Render(w http.ResponseWriter, r *http.Request) error {
	var buf bytes.Buffer
	if err := t.component.Render(r.Context(), &buf); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(t.status)
	_, err := buf.WriteTo(w)
	return err
}

// Templ creates an HTML response from a templ component with status 200.
//
// Components built with templ generate and Go html/template pages wrapped
// with templ.FromGoHTML are both accepted:
//
//	page := templ.FromGoHTML(pages.Lookup("app_redirect.html"), data)
//	return handler.Templ(page)
func Templ(component templ.Component) Response {
	return templResponse{status: http.StatusOK, component: component}
}

// TemplWithStatus is like Templ but writes the given status code.
func TemplWithStatus(status int, component templ.Component) Response {
	return templResponse{status: status, component: component}
}
