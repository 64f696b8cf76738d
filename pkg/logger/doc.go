// Package logger builds *slog.Logger instances for the service.
//
// New applies functional options on top of production defaults (JSON, info
// level, stdout) and wraps the handler with a decorator that pulls
// request-scoped attributes, such as the request id, out of the context on
// every record:
//
//	log := logger.New(
//		logger.WithEnvironment(cfg.Env, "pcbuilder"),
//		logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//
// The attribute helpers in attr.go keep key names consistent across packages.
package logger
