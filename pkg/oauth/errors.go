package oauth

import (
	"errors"
	"strings"
)

// Setup errors returned while building the registry or exchanger.
var (
	ErrUnknownProvider   = errors.New("oauth: unknown provider")
	ErrUnknownFlow       = errors.New("oauth: unknown flow")
	ErrMissingClientID   = errors.New("oauth: provider client id is not configured")
	ErrMissingSigningKey = errors.New("oauth: provider client assertion requires team id, key id and private key")
	ErrInvalidSigningKey = errors.New("oauth: invalid client assertion private key")
	ErrInvalidCapability = errors.New("oauth: invalid provider capability")
	ErrUnknownErrorKind  = errors.New("oauth: unknown error kind")
	ErrUnresolvedMessage = errors.New("oauth: no message configured for error kind")
)

// Causes wrapped inside ProviderExchange errors.
var (
	errMissingIDToken   = errors.New("token response has no id_token")
	errMissingSubject   = errors.New("provider returned no subject")
	errMissingEmail     = errors.New("provider returned no email")
	errInvalidIssuer    = errors.New("id token issuer is not accepted")
	errEmailNotVerified = errors.New("provider reports the email as unverified")
	errNoVerifiedEmail  = errors.New("no verified email on provider account")
	errUnexpectedStatus = errors.New("unexpected provider status")
)

// Kind classifies every error the engine reports to callers.
type Kind string

const (
	KindMissingParameter       Kind = "missing_parameter"
	KindProviderDisabled       Kind = "provider_disabled"
	KindConfiguration          Kind = "configuration"
	KindProviderExchange       Kind = "provider_exchange"
	KindInsufficientScope      Kind = "insufficient_scope"
	KindAlreadyLoggedIn        Kind = "already_logged_in"
	KindNoSuchAccount          Kind = "no_such_account"
	KindEmailAlreadyRegistered Kind = "email_already_registered"
	KindProviderAlreadyLinked  Kind = "provider_already_linked"
	KindEmailConflict          Kind = "email_conflict"
	KindNotLoggedIn            Kind = "not_logged_in"
	KindLastCredential         Kind = "last_credential"
	KindNoUserID               Kind = "no_user_id"
)

// Kinds lists every error kind.
var Kinds = []Kind{
	KindMissingParameter,
	KindProviderDisabled,
	KindConfiguration,
	KindProviderExchange,
	KindInsufficientScope,
	KindAlreadyLoggedIn,
	KindNoSuchAccount,
	KindEmailAlreadyRegistered,
	KindProviderAlreadyLinked,
	KindEmailConflict,
	KindNotLoggedIn,
	KindLastCredential,
	KindNoUserID,
}

// Error is a classified engine error. Detail is safe to show to the end user;
// Err carries the underlying cause for logs only.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

// NewError builds a classified error.
func NewError(kind Kind, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("oauth: ")
	b.WriteString(string(e.Kind))
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the bare sentinel of the same kind,
// so errors.Is(err, ErrNoSuchAccount) works for any detail or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Detail == "" && t.Err == nil
}

// Sentinels for errors.Is checks.
var (
	ErrMissingParameter       = &Error{Kind: KindMissingParameter}
	ErrProviderDisabled       = &Error{Kind: KindProviderDisabled}
	ErrConfiguration          = &Error{Kind: KindConfiguration}
	ErrProviderExchange       = &Error{Kind: KindProviderExchange}
	ErrInsufficientScope      = &Error{Kind: KindInsufficientScope}
	ErrAlreadyLoggedIn        = &Error{Kind: KindAlreadyLoggedIn}
	ErrNoSuchAccount          = &Error{Kind: KindNoSuchAccount}
	ErrEmailAlreadyRegistered = &Error{Kind: KindEmailAlreadyRegistered}
	ErrProviderAlreadyLinked  = &Error{Kind: KindProviderAlreadyLinked}
	ErrEmailConflict          = &Error{Kind: KindEmailConflict}
	ErrNotLoggedIn            = &Error{Kind: KindNotLoggedIn}
	ErrLastCredential         = &Error{Kind: KindLastCredential}
	ErrNoUserID               = &Error{Kind: KindNoUserID}
)

// KindOf extracts the kind of a classified error anywhere in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
