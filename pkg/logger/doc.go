// Package logger builds *slog.Logger instances with functional options and
// keeps attribute names consistent across the service.
//
// New wraps the text or JSON handler with LogHandlerDecorator, which runs every
// registered ContextExtractor on each record. The request id middleware exposes
// one so every line logged while serving a request carries "request_id".
//
//	log := logger.New(
//		append(logger.FromConfig(cfg),
//			logger.WithContextExtractors(requestid.LoggerExtractor()),
//		)...,
//	)
//	log.InfoContext(ctx, "account linked",
//		logger.Provider("github"),
//		logger.UserID(user.ID),
//	)
//
// Error and Errors return an empty attribute for nil errors, so they can be
// passed unconditionally.
package logger
