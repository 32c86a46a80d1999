package connect_test

import (
	"context"
	"net/http"

	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/oauthlink/pkg/oauth"
	"github.com/dmitrymomot/oauthlink/svc/connect"
)

// MockExchanger is a mock implementation of connect.Exchanger.
type MockExchanger struct {
	mock.Mock
}

func (m *MockExchanger) Exchange(ctx context.Context, p oauth.Provider, code, method string) (oauth.UserInfo, error) {
	args := m.Called(ctx, p, code, method)
	return args.Get(0).(oauth.UserInfo), args.Error(1)
}

// MockSessions is a mock implementation of connect.SessionIssuer.
type MockSessions struct {
	mock.Mock
}

func (m *MockSessions) LoginHandler(ctx context.Context, user *connect.UserRecord) (*connect.UserRecord, error) {
	args := m.Called(ctx, user)
	if fn, ok := args.Get(0).(func(context.Context, *connect.UserRecord) *connect.UserRecord); ok {
		return fn(ctx, user), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*connect.UserRecord), args.Error(1)
}

func (m *MockSessions) SessionHeaders(ctx context.Context, user *connect.UserRecord) (http.Header, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(http.Header), args.Error(1)
}

// passthroughSessions logs in whoever it is given and returns a fixed cookie.
func passthroughSessions() *MockSessions {
	s := &MockSessions{}
	s.On("LoginHandler", mock.Anything, mock.Anything).Return(
		func(_ context.Context, u *connect.UserRecord) *connect.UserRecord { return u },
		nil,
	).Maybe()
	s.On("SessionHeaders", mock.Anything, mock.Anything).Return(
		http.Header{"Set-Cookie": {"session=abc; Path=/; HttpOnly"}}, nil,
	).Maybe()
	return s
}
