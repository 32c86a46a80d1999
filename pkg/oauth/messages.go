package oauth

import (
	"errors"
	"fmt"
)

var defaultMessages = map[Kind]string{
	KindMissingParameter:       "A required parameter is missing",
	KindProviderDisabled:       "This sign-in provider is not enabled",
	KindConfiguration:          "Sign-in is not configured correctly",
	KindProviderExchange:       "Unable to complete sign-in with the provider",
	KindInsufficientScope:      "The provider did not grant the permissions required to sign in",
	KindAlreadyLoggedIn:        "You are already logged in",
	KindNoSuchAccount:          "No account is connected to this provider account. Sign up first",
	KindEmailAlreadyRegistered: "An account with this email already exists. Log in and link the provider from your settings",
	KindProviderAlreadyLinked:  "This provider account is already linked to a user",
	KindEmailConflict:          "There is already an account using this email",
	KindNotLoggedIn:            "You must be logged in to do that",
	KindLastCredential:         "You cannot disconnect your only way to log in. Set a password or link another provider first",
	KindNoUserID:               "The login handler must return a user with an id",
}

// Messages resolves user-facing text for error kinds.
// Caller overrides win; built-in defaults are the fallback.
type Messages struct {
	overrides map[Kind]string
}

// NewMessages validates overrides. Unknown kinds are a setup error so typos surface at startup.
func NewMessages(overrides map[Kind]string) (Messages, error) {
	m := Messages{overrides: make(map[Kind]string, len(overrides))}
	for k, v := range overrides {
		if _, ok := defaultMessages[k]; !ok {
			return Messages{}, fmt.Errorf("%w: %q", ErrUnknownErrorKind, k)
		}
		m.overrides[k] = v
	}
	return m, nil
}

// Lookup returns the message for kind, or ErrUnresolvedMessage when neither tier has one.
func (m Messages) Lookup(kind Kind) (string, error) {
	if msg := m.overrides[kind]; msg != "" {
		return msg, nil
	}
	if msg := defaultMessages[kind]; msg != "" {
		return msg, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnresolvedMessage, kind)
}

// For renders the user-facing message of a classified error, including its detail.
// Unclassified errors are reported as ErrUnresolvedMessage so callers never leak internals.
func (m Messages) For(err error) (string, error) {
	var e *Error
	if !errors.As(err, &e) {
		return "", errors.Join(ErrUnresolvedMessage, err)
	}
	msg, lookupErr := m.Lookup(e.Kind)
	if lookupErr != nil {
		return "", lookupErr
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg, nil
}
