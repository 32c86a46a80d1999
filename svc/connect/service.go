package connect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/oauthlink/pkg/logger"
	"github.com/dmitrymomot/oauthlink/pkg/oauth"
)

// Service runs the login, signup, link, unlink and list flows. Each call is
// terminal: validate, exchange, classify, mutate, then describe the response.
type Service struct {
	store     Store
	exchanger Exchanger
	sessions  SessionIssuer
	matcher   *Matcher
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time

	counter     CredentialCounter
	afterSignup func(ctx context.Context, user *UserRecord, acc ConnectedAccount) error
	afterLink   func(ctx context.Context, user *UserRecord, acc ConnectedAccount) error
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCredentialCounter replaces the default connections-plus-password count
// used by the last-credential rule.
func WithCredentialCounter(c CredentialCounter) Option {
	return func(s *Service) {
		s.counter = c
	}
}

// WithAfterSignup registers a hook run after a user and connection are created.
// Hook failures are logged and never fail the flow.
func WithAfterSignup(fn func(context.Context, *UserRecord, ConnectedAccount) error) Option {
	return func(s *Service) {
		s.afterSignup = fn
	}
}

// WithAfterLink registers a hook run after a connection is added to an existing user.
func WithAfterLink(fn func(context.Context, *UserRecord, ConnectedAccount) error) Option {
	return func(s *Service) {
		s.afterLink = fn
	}
}

// WithClock overrides the time source for connection timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(store Store, exchanger Exchanger, sessions SessionIssuer, cfg Config, opts ...Option) *Service {
	s := &Service{
		store:     store,
		exchanger: exchanger,
		sessions:  sessions,
		cfg:       cfg,
		logger:    logger.Discard(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.matcher = NewMatcher(store, cfg, s.counter)
	return s
}

// Login authenticates the owner of the provider identity.
func (s *Service) Login(ctx context.Context, req Request) (Result, error) {
	if err := requireCode(req); err != nil {
		return Result{}, err
	}

	info, err := s.exchange(ctx, req)
	if err != nil {
		return Result{}, err
	}

	user, err := s.matcher.CheckLogin(ctx, req.Provider, info)
	if err != nil {
		return Result{}, err
	}

	res, err := s.issueSession(ctx, user)
	if err != nil {
		return Result{}, err
	}

	s.logger.InfoContext(ctx, "user logged in",
		logger.Component("connect"),
		logger.Event("login"),
		logger.Provider(req.Provider.String()),
		logger.UserID(user.ID),
	)
	return res, nil
}

// Signup creates a user and its first connection, then logs the user in.
func (s *Service) Signup(ctx context.Context, req Request) (Result, error) {
	if err := requireCode(req); err != nil {
		return Result{}, err
	}
	if req.CurrentUser != nil {
		return Result{}, oauth.NewError(oauth.KindAlreadyLoggedIn, "", nil)
	}

	info, err := s.exchange(ctx, req)
	if err != nil {
		return Result{}, err
	}

	if err := s.matcher.CheckSignup(ctx, req.CurrentUser, req.Provider, info); err != nil {
		return Result{}, err
	}

	user, err := s.store.CreateUser(ctx, s.newUser(info.Email))
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			return Result{}, oauth.NewError(oauth.KindEmailAlreadyRegistered, "", err)
		}
		return Result{}, fmt.Errorf("create user: %w", err)
	}

	acc, err := s.store.CreateConnection(ctx, s.connection(user.ID, req.Provider, info))
	if err != nil {
		if deleteErr := s.store.DeleteUser(ctx, user.ID); deleteErr != nil {
			s.logger.ErrorContext(ctx, "failed to clean up user after connection save failure",
				logger.Component("connect"),
				logger.UserID(user.ID),
				logger.Provider(req.Provider.String()),
				logger.Error(deleteErr),
			)
		}
		if errors.Is(err, ErrDuplicate) {
			return Result{}, oauth.NewError(oauth.KindProviderAlreadyLinked, "", err)
		}
		return Result{}, fmt.Errorf("create connection: %w", err)
	}

	res, err := s.issueSession(ctx, user)
	if err != nil {
		return Result{}, err
	}

	s.runHook(ctx, "after signup", s.afterSignup, user, *acc)
	s.logger.InfoContext(ctx, "user signed up",
		logger.Component("connect"),
		logger.Event("signup"),
		logger.Provider(req.Provider.String()),
		logger.UserID(user.ID),
	)
	return res, nil
}

// Link attaches the provider identity to the logged-in user.
func (s *Service) Link(ctx context.Context, req Request) (Result, error) {
	if err := requireCode(req); err != nil {
		return Result{}, err
	}
	if req.CurrentUser == nil {
		return Result{}, oauth.NewError(oauth.KindNotLoggedIn, "", nil)
	}

	info, err := s.exchange(ctx, req)
	if err != nil {
		return Result{}, err
	}

	if err := s.matcher.CheckLink(ctx, req.CurrentUser, req.Provider, info); err != nil {
		return Result{}, err
	}

	acc, err := s.store.CreateConnection(ctx, s.connection(req.CurrentUser.ID, req.Provider, info))
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			return Result{}, oauth.NewError(oauth.KindProviderAlreadyLinked, "", err)
		}
		return Result{}, fmt.Errorf("create connection: %w", err)
	}

	s.runHook(ctx, "after link", s.afterLink, req.CurrentUser, *acc)
	s.logger.InfoContext(ctx, "account linked",
		logger.Component("connect"),
		logger.Event("link"),
		logger.Provider(req.Provider.String()),
		logger.UserID(req.CurrentUser.ID),
	)

	return Result{
		Kind:  ResultRedirect,
		Query: url.Values{"linkedAccount": {req.Provider.String()}},
	}, nil
}

// Unlink removes the connection to req.Provider unless it is the user's last credential.
func (s *Service) Unlink(ctx context.Context, req Request) (Result, error) {
	if req.Provider == "" {
		return Result{}, oauth.NewError(oauth.KindMissingParameter, "provider", nil)
	}

	target, err := s.matcher.CheckUnlink(ctx, req.CurrentUser, req.Provider)
	if err != nil {
		return Result{}, err
	}

	removed, err := s.store.DeleteConnection(ctx, req.CurrentUser.ID, target.Provider)
	if errors.Is(err, ErrNotFound) {
		return Result{}, oauth.NewError(oauth.KindNoSuchAccount, req.Provider.String(), err)
	}
	if err != nil {
		return Result{}, fmt.Errorf("delete connection: %w", err)
	}

	s.logger.InfoContext(ctx, "account unlinked",
		logger.Component("connect"),
		logger.Event("unlink"),
		logger.Provider(req.Provider.String()),
		logger.UserID(req.CurrentUser.ID),
	)
	return Result{Kind: ResultJSON, Payload: UnlinkPayload{ProviderRecord: *removed}}, nil
}

// ListConnections returns the logged-in user's connections.
func (s *Service) ListConnections(ctx context.Context, req Request) (Result, error) {
	if req.CurrentUser == nil {
		return Result{}, oauth.NewError(oauth.KindNotLoggedIn, "", nil)
	}

	conns, err := s.store.ListConnections(ctx, req.CurrentUser.ID)
	if err != nil {
		return Result{}, fmt.Errorf("list connections: %w", err)
	}
	if conns == nil {
		conns = []ConnectedAccount{}
	}
	return Result{Kind: ResultJSON, Payload: conns}, nil
}

func requireCode(req Request) error {
	if strings.TrimSpace(req.Code) == "" {
		return oauth.NewError(oauth.KindMissingParameter, "code", nil)
	}
	return nil
}

func (s *Service) exchange(ctx context.Context, req Request) (oauth.UserInfo, error) {
	info, err := s.exchanger.Exchange(ctx, req.Provider, req.Code, req.Operation)
	if err != nil {
		return oauth.UserInfo{}, err
	}
	return info, nil
}

// issueSession runs the host login handler and collects session headers.
func (s *Service) issueSession(ctx context.Context, user *UserRecord) (Result, error) {
	handlerUser, err := s.sessions.LoginHandler(ctx, user)
	if err != nil {
		return Result{}, fmt.Errorf("login handler: %w", err)
	}
	if handlerUser == nil || handlerUser.ID == "" {
		return Result{}, oauth.NewError(oauth.KindNoUserID, "", nil)
	}

	headers, err := s.sessions.SessionHeaders(ctx, handlerUser)
	if err != nil {
		return Result{}, fmt.Errorf("session headers: %w", err)
	}
	return Result{Kind: ResultRedirect, Headers: headers}, nil
}

// newUser picks the username: the email itself when the identity field is
// "email", otherwise localpart_<suffix>.
func (s *Service) newUser(email string) NewUser {
	u := NewUser{Username: email}
	if s.cfg.IdentityField != "email" {
		u.Username = syntheticUsername(email)
	}
	if s.cfg.HasEmailField {
		u.Email = email
	}
	return u
}

func (s *Service) connection(userID string, p oauth.Provider, info oauth.UserInfo) ConnectedAccount {
	return ConnectedAccount{
		Provider:         p,
		ProviderUserID:   info.UID,
		UserID:           userID,
		ProviderUsername: info.ProviderUsername,
		CreatedAt:        s.now().UTC(),
	}
}

func (s *Service) runHook(ctx context.Context, name string, fn func(context.Context, *UserRecord, ConnectedAccount) error, user *UserRecord, acc ConnectedAccount) {
	if fn == nil {
		return
	}
	hookCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := fn(hookCtx, user, acc); err != nil {
		s.logger.ErrorContext(ctx, name+" hook failed",
			logger.Component("connect"),
			logger.UserID(user.ID),
			logger.Provider(acc.Provider.String()),
			logger.Error(err),
		)
	}
}

func syntheticUsername(email string) string {
	local, _, _ := strings.Cut(email, "@")
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return local + "_" + suffix
}
