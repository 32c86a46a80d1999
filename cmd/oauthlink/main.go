// Command oauthlink serves the OAuth account-connection endpoints on top of a
// Postgres user table.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/oauthlink/modules/connections"
	"github.com/dmitrymomot/oauthlink/pkg/clientip"
	"github.com/dmitrymomot/oauthlink/pkg/config"
	"github.com/dmitrymomot/oauthlink/pkg/httpserver"
	"github.com/dmitrymomot/oauthlink/pkg/logger"
	"github.com/dmitrymomot/oauthlink/pkg/oauth"
	"github.com/dmitrymomot/oauthlink/pkg/pg"
	"github.com/dmitrymomot/oauthlink/pkg/ratelimiter"
	"github.com/dmitrymomot/oauthlink/pkg/requestid"
	"github.com/dmitrymomot/oauthlink/pkg/session"
	"github.com/dmitrymomot/oauthlink/svc/connect"
	"github.com/dmitrymomot/oauthlink/svc/connect/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad[appConfig]()

	log := logger.New(append(logger.FromConfig(cfg.Log),
		logger.WithContextExtractors(requestid.LoggerExtractor(), clientip.LoggerExtractor()),
	)...)
	logger.SetAsDefault(log)

	if err := run(ctx, cfg, log); err != nil {
		log.Error("oauthlink stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	pool, err := pg.Connect(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.DB.AutoMigrate {
		if err := pg.Migrate(ctx, pool, cfg.DB, store.Migrations, store.MigrationsDir, log); err != nil {
			return err
		}
	}

	users := store.NewPostgres(pool, cfg.Schema)

	sessions, err := session.New(cfg.Session)
	if err != nil {
		return err
	}
	hostAuth := connect.NewCookieSessions(sessions, users, nil)

	registry, err := oauth.NewRegistry(cfg.OAuth)
	if err != nil {
		return err
	}
	exchanger, err := oauth.NewExchanger(cfg.OAuth, registry, oauth.WithLogger(log))
	if err != nil {
		return err
	}

	svc := connect.NewService(users, exchanger, hostAuth, cfg.Schema.ConnectConfig(), connect.WithLogger(log))

	msgs, err := oauth.NewMessages(cfg.messageOverrides())
	if err != nil {
		return err
	}
	module, err := connections.New(cfg.OAuth.FrontendURL, registry, exchanger, svc, hostAuth.CurrentUser,
		connections.WithLogger(log),
		connections.WithMessages(msgs),
	)
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(requestid.Middleware, clientip.NewResolver(cfg.TrustedProxyHeaders...).Middleware, sessions.Middleware)
	r.Get("/health/live", httpserver.LivenessHandler())
	r.Get("/health/ready", httpserver.ReadinessHandler(log,
		httpserver.Check{Name: "postgres", Fn: pg.Healthcheck(pool)},
	))

	var oauthRoutes http.Handler = connections.Router(module)
	if cfg.Limit.Enabled {
		limitStore := ratelimiter.NewMemoryStore()
		go limitStore.RunSweeper(ctx, cfg.Limit, 5*time.Minute)
		bucket, err := ratelimiter.NewBucket(limitStore, cfg.Limit)
		if err != nil {
			return err
		}
		oauthRoutes = chi.Chain(ratelimiter.Middleware(bucket, clientIPKey, log)).Handler(oauthRoutes)
	}
	r.Mount(cfg.MountPath, oauthRoutes)

	return httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log)).Run(ctx, r)
}

func clientIPKey(r *http.Request) string {
	return clientip.FromContext(r.Context())
}
