package connections

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/dmitrymomot/oauthlink/handler"
	"github.com/dmitrymomot/oauthlink/pkg/logger"
	"github.com/dmitrymomot/oauthlink/pkg/oauth"
	"github.com/dmitrymomot/oauthlink/svc/connect"
)

// Flows runs the account-connection flows.
type Flows interface {
	Login(ctx context.Context, req connect.Request) (connect.Result, error)
	Signup(ctx context.Context, req connect.Request) (connect.Result, error)
	Link(ctx context.Context, req connect.Request) (connect.Result, error)
	Unlink(ctx context.Context, req connect.Request) (connect.Result, error)
	ListConnections(ctx context.Context, req connect.Request) (connect.Result, error)
}

// AuthURLBuilder builds provider consent URLs.
type AuthURLBuilder interface {
	AuthURL(p oauth.Provider, method, state string) (string, error)
}

// CurrentUserFunc resolves the logged-in user. Anonymous requests return an
// error wrapping connect.ErrNoSession.
type CurrentUserFunc func(r *http.Request) (*connect.UserRecord, error)

// Module is the single HTTP entry point of the engine. Every operation is
// addressed by name through ?method= or a "method" body field.
type Module struct {
	flows       Flows
	urls        AuthURLBuilder
	registry    *oauth.Registry
	currentUser CurrentUserFunc
	messages    oauth.Messages
	frontend    *url.URL
	ops         map[string]operation
	logger      *slog.Logger
}

type Option func(*Module)

func WithLogger(l *slog.Logger) Option {
	return func(m *Module) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithMessages replaces the default error messages.
func WithMessages(msgs oauth.Messages) Option {
	return func(m *Module) {
		m.messages = msgs
	}
}

// New creates the module. frontendURL is the landing page of redirect-mode
// operations when the request carries no usable state.
func New(frontendURL string, registry *oauth.Registry, urls AuthURLBuilder, flows Flows, currentUser CurrentUserFunc, opts ...Option) (*Module, error) {
	frontend, err := url.Parse(frontendURL)
	if err != nil || frontend.Scheme == "" || frontend.Host == "" {
		return nil, fmt.Errorf("%w: invalid frontend url %q", ErrInvalidConfig, frontendURL)
	}
	if registry == nil || urls == nil || flows == nil || currentUser == nil {
		return nil, fmt.Errorf("%w: missing dependency", ErrInvalidConfig)
	}

	m := &Module{
		flows:       flows,
		urls:        urls,
		registry:    registry,
		currentUser: currentUser,
		frontend:    frontend,
		ops:         buildOperations(registry),
		logger:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Handle returns the module as an http.Handler.
func (m *Module) Handle() http.Handler {
	return handler.Wrap(m.Invoke, handler.WithLogger(m.logger))
}
