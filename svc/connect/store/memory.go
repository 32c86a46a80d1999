package store

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrymomot/oauthlink/pkg/oauth"
	"github.com/dmitrymomot/oauthlink/svc/connect"
)

// Memory is an in-process Store that enforces the same uniqueness rules as the
// Postgres schema. Returned records are copies.
type Memory struct {
	mu    sync.RWMutex
	users map[string]connect.UserRecord
	conns []connect.ConnectedAccount
}

var _ connect.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{users: make(map[string]connect.UserRecord)}
}

// SeedUser inserts a user directly, as a password signup of the host would.
func (m *Memory) SeedUser(username, email string, hasPassword bool) *connect.UserRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	u := connect.UserRecord{ID: uuid.NewString(), Username: username, Email: email, HasPassword: hasPassword}
	m.users[u.ID] = u
	return &u
}

func (m *Memory) FindUserByID(_ context.Context, id string) (*connect.UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, connect.ErrNotFound
	}
	return &u, nil
}

func (m *Memory) FindUserByUsername(_ context.Context, username string) (*connect.UserRecord, error) {
	return m.findUser(func(u connect.UserRecord) bool { return strings.EqualFold(u.Username, username) })
}

func (m *Memory) FindUserByEmail(_ context.Context, email string) (*connect.UserRecord, error) {
	if email == "" {
		return nil, connect.ErrNotFound
	}
	return m.findUser(func(u connect.UserRecord) bool { return strings.EqualFold(u.Email, email) })
}

func (m *Memory) findUser(match func(connect.UserRecord) bool) (*connect.UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, connect.ErrNotFound
}

func (m *Memory) CreateUser(_ context.Context, nu connect.NewUser) (*connect.UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == nu.Username || (nu.Email != "" && u.Email == nu.Email) {
			return nil, connect.ErrDuplicate
		}
	}

	u := connect.UserRecord{ID: uuid.NewString(), Username: nu.Username, Email: nu.Email}
	m.users[u.ID] = u
	return &u, nil
}

// DeleteUser removes the user and its connections.
func (m *Memory) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return connect.ErrNotFound
	}
	delete(m.users, id)
	m.conns = slices.DeleteFunc(m.conns, func(c connect.ConnectedAccount) bool { return c.UserID == id })
	return nil
}

func (m *Memory) FindConnection(_ context.Context, p oauth.Provider, providerUserID string) (*connect.ConnectedAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.conns {
		if c.Provider == p && c.ProviderUserID == providerUserID {
			return &c, nil
		}
	}
	return nil, connect.ErrNotFound
}

func (m *Memory) ListConnections(_ context.Context, userID string) ([]connect.ConnectedAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []connect.ConnectedAccount{}
	for _, c := range m.conns {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *Memory) CreateConnection(_ context.Context, acc connect.ConnectedAccount) (*connect.ConnectedAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[acc.UserID]; !ok {
		return nil, connect.ErrNotFound
	}
	for _, c := range m.conns {
		sameIdentity := c.Provider == acc.Provider && c.ProviderUserID == acc.ProviderUserID
		sameSlot := c.UserID == acc.UserID && c.Provider == acc.Provider
		if sameIdentity || sameSlot {
			return nil, connect.ErrDuplicate
		}
	}
	m.conns = append(m.conns, acc)
	return &acc, nil
}

func (m *Memory) DeleteConnection(_ context.Context, userID string, p oauth.Provider) (*connect.ConnectedAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, c := range m.conns {
		if c.UserID == userID && c.Provider == p {
			m.conns = slices.Delete(m.conns, i, i+1)
			return &c, nil
		}
	}
	return nil, connect.ErrNotFound
}

// SetPassword toggles the has-password flag of a seeded user.
func (m *Memory) SetPassword(id string, has bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u, ok := m.users[id]; ok {
		u.HasPassword = has
		m.users[id] = u
	}
}
