package main

import (
	"github.com/dmitrymomot/oauthlink/pkg/httpserver"
	"github.com/dmitrymomot/oauthlink/pkg/logger"
	"github.com/dmitrymomot/oauthlink/pkg/oauth"
	"github.com/dmitrymomot/oauthlink/pkg/pg"
	"github.com/dmitrymomot/oauthlink/pkg/ratelimiter"
	"github.com/dmitrymomot/oauthlink/pkg/session"
	"github.com/dmitrymomot/oauthlink/svc/connect/store"
)

type appConfig struct {
	Log     logger.Config
	HTTP    httpserver.Config
	DB      pg.Config
	OAuth   oauth.Config
	Session session.Config
	Schema  store.Schema
	Limit   ratelimiter.Config

	// TrustedProxyHeaders lists the headers carrying the client IP, e.g. "X-Forwarded-For".
	TrustedProxyHeaders []string `env:"HTTP_TRUSTED_PROXY_HEADERS" envSeparator:","`

	// MountPath is where the connections module listens; OAUTH_CALLBACK_URL must point at it.
	MountPath string `env:"OAUTH_MOUNT_PATH" envDefault:"/auth/oauth"`
	// ErrorMessages overrides user-facing messages, e.g. "no_such_account:Sign up first".
	ErrorMessages map[string]string `env:"OAUTH_ERROR_MESSAGES"`
}

func (c appConfig) messageOverrides() map[oauth.Kind]string {
	out := make(map[oauth.Kind]string, len(c.ErrorMessages))
	for k, v := range c.ErrorMessages {
		out[oauth.Kind(k)] = v
	}
	return out
}
