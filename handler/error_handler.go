package handler

import (
	"log/slog"
	"net/http"

	"github.com/pcbuilder/configurator/pkg/logger"
	"github.com/pcbuilder/configurator/pkg/requestid"
)

// NewErrorHandler logs the failure and writes a JSON error response.
// Client errors are logged at warn level, server errors at error level.
func NewErrorHandler(log *slog.Logger) ErrorHandler[Context] {
	if log == nil {
		log = logger.Discard()
	}

	return func(ctx Context, err error) {
		r := ctx.Request()
		status, _ := ErrorToDetail(err)

		level := slog.LevelError
		if status < http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		log.LogAttrs(r.Context(), level, "request failed",
			logger.Component("http"),
			logger.RequestID(requestid.FromContext(r.Context())),
			logger.Method(r.Method),
			logger.Path(r.URL.Path),
			logger.Status(status),
			logger.Error(err),
		)

		if renderErr := JSONError(err).Render(ctx.ResponseWriter(), r); renderErr != nil {
			log.LogAttrs(r.Context(), slog.LevelError, "failed to write error response",
				logger.Component("http"),
				logger.Error(renderErr),
			)
		}
	}
}
