package connect

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/dmitrymomot/oauthlink/pkg/oauth"
)

// UserRecord is the slice of the host user schema the engine relies on.
type UserRecord struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email,omitempty"`
	HasPassword bool   `json:"-"`
}

// ConnectedAccount is one persisted link between a local user and a provider identity.
// Unique on (UserID, Provider) and on (Provider, ProviderUserID).
type ConnectedAccount struct {
	Provider         oauth.Provider `json:"provider"`
	ProviderUserID   string         `json:"providerUserId"`
	UserID           string         `json:"userId"`
	ProviderUsername string         `json:"providerUsername"`
	CreatedAt        time.Time      `json:"createdAt"`
}

// NewUser is the input of Store.CreateUser. Email is empty when the schema has no email field.
type NewUser struct {
	Username string
	Email    string
}

// Store is the data-access boundary. Lookups that miss return ErrNotFound;
// uniqueness violations return ErrDuplicate.
type Store interface {
	FindUserByID(ctx context.Context, id string) (*UserRecord, error)
	FindUserByUsername(ctx context.Context, username string) (*UserRecord, error)
	FindUserByEmail(ctx context.Context, email string) (*UserRecord, error)
	CreateUser(ctx context.Context, u NewUser) (*UserRecord, error)
	DeleteUser(ctx context.Context, id string) error

	FindConnection(ctx context.Context, provider oauth.Provider, providerUserID string) (*ConnectedAccount, error)
	ListConnections(ctx context.Context, userID string) ([]ConnectedAccount, error)
	CreateConnection(ctx context.Context, acc ConnectedAccount) (*ConnectedAccount, error)
	DeleteConnection(ctx context.Context, userID string, provider oauth.Provider) (*ConnectedAccount, error)
}

// Exchanger resolves an authorization code into a provider identity.
type Exchanger interface {
	Exchange(ctx context.Context, provider oauth.Provider, code, method string) (oauth.UserInfo, error)
}

// SessionIssuer is the host authentication subsystem.
type SessionIssuer interface {
	// LoginHandler lets the host adjust the user that is about to be logged in.
	// The returned user must carry an id.
	LoginHandler(ctx context.Context, user *UserRecord) (*UserRecord, error)
	// SessionHeaders returns the headers (cookies) that establish a session for user.
	SessionHeaders(ctx context.Context, user *UserRecord) (http.Header, error)
}

// CredentialCounter returns how many ways user can authenticate right now.
// Unlinking is allowed only while the count is above one.
type CredentialCounter func(user *UserRecord, conns []ConnectedAccount) int

// CountConnectionsAndPassword counts every connected provider plus a password.
func CountConnectionsAndPassword(user *UserRecord, conns []ConnectedAccount) int {
	n := len(conns)
	if user.HasPassword {
		n++
	}
	return n
}

// Config describes the host user schema.
type Config struct {
	// IdentityField is the name of the username field. When it is literally
	// "email", new users get their email as username.
	IdentityField string
	// HasEmailField reports whether users have an email field separate from the username.
	HasEmailField bool
}

// Request is built once per inbound request and never mutated by the flows.
type Request struct {
	Operation   string
	Provider    oauth.Provider
	Code        string
	State       string
	CurrentUser *UserRecord
}

// ResultKind tells the response shaper how to deliver a Result.
type ResultKind string

const (
	ResultRedirect ResultKind = "redirect"
	ResultJSON     ResultKind = "json"
)

// Result is the outcome of a successful flow.
type Result struct {
	Kind ResultKind
	// Query holds parameters appended to the redirect target.
	Query url.Values
	// Headers are copied onto the response, typically Set-Cookie.
	Headers http.Header
	Payload any
}

// UnlinkPayload is the JSON body of a successful unlink.
type UnlinkPayload struct {
	ProviderRecord ConnectedAccount `json:"providerRecord"`
}
