package connect_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/oauthlink/pkg/session"
	"github.com/dmitrymomot/oauthlink/svc/connect"
	"github.com/dmitrymomot/oauthlink/svc/connect/store"
)

func newCookieSessions(t *testing.T, login connect.LoginFunc) (*connect.CookieSessions, *store.Memory) {
	t.Helper()

	mgr, err := session.New(session.Config{Secret: "0123456789abcdef0123456789abcdef"})
	require.NoError(t, err)
	s := store.NewMemory()
	return connect.NewCookieSessions(mgr, s, login), s
}

func TestCookieSessions_RoundTrip(t *testing.T) {
	t.Parallel()

	sessions, s := newCookieSessions(t, nil)
	me := s.SeedUser("me@x.com", "", true)

	user, err := sessions.LoginHandler(t.Context(), me)
	require.NoError(t, err)
	assert.Equal(t, me, user)

	h, err := sessions.SessionHeaders(t.Context(), me)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Cookie", h.Get("Set-Cookie"))

	current, err := sessions.CurrentUser(r)
	require.NoError(t, err)
	assert.Equal(t, me.ID, current.ID)
}

func TestCookieSessions_Anonymous(t *testing.T) {
	t.Parallel()

	sessions, _ := newCookieSessions(t, nil)

	_, err := sessions.CurrentUser(httptest.NewRequest(http.MethodGet, "/", nil))
	require.ErrorIs(t, err, connect.ErrNoSession)
}

func TestCookieSessions_DeletedUser(t *testing.T) {
	t.Parallel()

	sessions, s := newCookieSessions(t, nil)
	me := s.SeedUser("me@x.com", "", true)
	h, err := sessions.SessionHeaders(t.Context(), me)
	require.NoError(t, err)
	require.NoError(t, s.DeleteUser(t.Context(), me.ID))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Cookie", h.Get("Set-Cookie"))

	_, err = sessions.CurrentUser(r)
	require.ErrorIs(t, err, connect.ErrNoSession)
}

func TestCookieSessions_LoginVeto(t *testing.T) {
	t.Parallel()

	banned := errors.New("banned")
	sessions, s := newCookieSessions(t, func(context.Context, *connect.UserRecord) (*connect.UserRecord, error) {
		return nil, banned
	})
	me := s.SeedUser("me@x.com", "", true)

	_, err := sessions.LoginHandler(t.Context(), me)
	require.ErrorIs(t, err, banned)
}
