package connect

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrymomot/oauthlink/pkg/oauth"
)

// Matcher resolves identities and classifies each flow's situation.
// The classification rules are the account-takeover guard rails; keep them exact.
type Matcher struct {
	store   Store
	cfg     Config
	counter CredentialCounter
}

// NewMatcher creates a matcher over store. A nil counter falls back to CountConnectionsAndPassword.
func NewMatcher(store Store, cfg Config, counter CredentialCounter) *Matcher {
	if counter == nil {
		counter = CountConnectionsAndPassword
	}
	return &Matcher{store: store, cfg: cfg, counter: counter}
}

// FindByProviderIdentity returns the connection for (provider, uid) and its owner.
// A miss returns nil, nil, nil. The owner may be nil when the connection is dangling.
func (m *Matcher) FindByProviderIdentity(ctx context.Context, p oauth.Provider, uid string) (*ConnectedAccount, *UserRecord, error) {
	conn, err := m.store.FindConnection(ctx, p, uid)
	if errors.Is(err, ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("find connection: %w", err)
	}

	user, err := m.store.FindUserByID(ctx, conn.UserID)
	if errors.Is(err, ErrNotFound) {
		return conn, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("find connection owner: %w", err)
	}
	return conn, user, nil
}

// FindByEmail checks the username field first, then the email field when the schema has one.
func (m *Matcher) FindByEmail(ctx context.Context, email string) (*UserRecord, error) {
	if email == "" {
		return nil, nil
	}

	user, err := m.store.FindUserByUsername(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("find user by username: %w", err)
	}

	if !m.cfg.HasEmailField {
		return nil, nil
	}
	user, err = m.store.FindUserByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return user, nil
}

// CheckSignup proceeds only when there is no session, no connection for the
// identity and no user with the email.
func (m *Matcher) CheckSignup(ctx context.Context, current *UserRecord, p oauth.Provider, info oauth.UserInfo) error {
	if current != nil {
		return oauth.NewError(oauth.KindAlreadyLoggedIn, "", nil)
	}

	conn, _, err := m.FindByProviderIdentity(ctx, p, info.UID)
	if err != nil {
		return err
	}
	if conn != nil {
		return oauth.NewError(oauth.KindProviderAlreadyLinked, "", nil)
	}

	existing, err := m.FindByEmail(ctx, info.Email)
	if err != nil {
		return err
	}
	if existing != nil {
		return oauth.NewError(oauth.KindEmailAlreadyRegistered, "", nil)
	}
	return nil
}

// CheckLogin authorizes login by provider identity only. An email match never logs anyone in.
func (m *Matcher) CheckLogin(ctx context.Context, p oauth.Provider, info oauth.UserInfo) (*UserRecord, error) {
	_, user, err := m.FindByProviderIdentity(ctx, p, info.UID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, oauth.NewError(oauth.KindNoSuchAccount, "", nil)
	}
	return user, nil
}

// CheckLink requires a session, an unclaimed provider identity and no other
// user owning the provider email.
func (m *Matcher) CheckLink(ctx context.Context, current *UserRecord, p oauth.Provider, info oauth.UserInfo) error {
	if current == nil {
		return oauth.NewError(oauth.KindNotLoggedIn, "", nil)
	}

	conn, _, err := m.FindByProviderIdentity(ctx, p, info.UID)
	if err != nil {
		return err
	}
	if conn != nil {
		return oauth.NewError(oauth.KindProviderAlreadyLinked, "", nil)
	}

	owner, err := m.FindByEmail(ctx, info.Email)
	if err != nil {
		return err
	}
	if owner != nil && owner.ID != current.ID {
		return oauth.NewError(oauth.KindEmailConflict, "", nil)
	}
	return nil
}

// CheckUnlink returns the connection to remove after making sure the user keeps
// at least one way to authenticate.
func (m *Matcher) CheckUnlink(ctx context.Context, current *UserRecord, p oauth.Provider) (*ConnectedAccount, error) {
	if current == nil {
		return nil, oauth.NewError(oauth.KindNotLoggedIn, "", nil)
	}

	conns, err := m.store.ListConnections(ctx, current.ID)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}

	var target *ConnectedAccount
	for i := range conns {
		if conns[i].Provider == p {
			target = &conns[i]
			break
		}
	}
	if target == nil {
		return nil, oauth.NewError(oauth.KindNoSuchAccount, p.String(), nil)
	}

	if m.counter(current, conns) <= 1 {
		return nil, oauth.NewError(oauth.KindLastCredential, "", nil)
	}
	return target, nil
}
