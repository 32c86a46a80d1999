// Package httpserver runs the HTTP front of the service with graceful shutdown
// and exposes liveness and readiness handlers.
//
// Run blocks until the context is cancelled or SIGINT/SIGTERM arrives, then
// gives in-flight requests the shutdown timeout to finish:
//
//	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil {
//		log.Error("server stopped", logger.Error(err))
//	}
//
// ReadinessHandler takes named checks such as pg.Healthcheck and answers 503
// as soon as one of them fails.
package httpserver
