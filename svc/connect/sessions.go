package connect

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrymomot/oauthlink/pkg/session"
)

// LoginFunc lets the host adjust or veto the user that is about to be logged in.
type LoginFunc func(ctx context.Context, user *UserRecord) (*UserRecord, error)

// CookieSessions is the default SessionIssuer: signed session cookies backed by Store.
type CookieSessions struct {
	mgr   *session.Manager
	store Store
	login LoginFunc
}

var _ SessionIssuer = (*CookieSessions)(nil)

// NewCookieSessions wraps mgr. A nil login accepts the user unchanged.
func NewCookieSessions(mgr *session.Manager, store Store, login LoginFunc) *CookieSessions {
	if login == nil {
		login = func(_ context.Context, u *UserRecord) (*UserRecord, error) { return u, nil }
	}
	return &CookieSessions{mgr: mgr, store: store, login: login}
}

func (s *CookieSessions) LoginHandler(ctx context.Context, user *UserRecord) (*UserRecord, error) {
	return s.login(ctx, user)
}

func (s *CookieSessions) SessionHeaders(_ context.Context, user *UserRecord) (http.Header, error) {
	return s.mgr.Headers(user.ID)
}

// CurrentUser resolves the logged-in user of r. Anonymous requests, invalid
// cookies and deleted users all yield ErrNoSession.
func (s *CookieSessions) CurrentUser(r *http.Request) (*UserRecord, error) {
	id, ok := session.UserIDFromContext(r.Context())
	if !ok {
		var err error
		if id, err = s.mgr.UserID(r); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoSession, err)
		}
	}

	user, err := s.store.FindUserByID(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: user %s no longer exists", ErrNoSession, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load session user: %w", err)
	}
	return user, nil
}
