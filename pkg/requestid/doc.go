// Package requestid attaches a correlation id to every request.
//
// Middleware reuses a client-supplied X-Request-ID when it is short and made of
// [a-zA-Z0-9_-], otherwise it generates a UUID. The id is echoed in the
// response header and stored in the request context.
//
// LoggerExtractor plugs the id into loggers built by pkg/logger:
//
//	log := logger.New(logger.WithContextExtractors(requestid.LoggerExtractor()))
package requestid
