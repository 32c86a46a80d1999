package session

import "errors"

var (
	// ErrMissingSecret indicates the signing secret is empty
	ErrMissingSecret = errors.New("session.missing_secret")

	// ErrSecretTooShort indicates the signing secret is under 32 bytes
	ErrSecretTooShort = errors.New("session.secret_too_short")

	// ErrSessionNotFound indicates no session cookie was sent
	ErrSessionNotFound = errors.New("session.not_found")

	// ErrInvalidSession indicates the session token failed verification
	ErrInvalidSession = errors.New("session.invalid")

	// ErrSessionExpired indicates the session has expired
	ErrSessionExpired = errors.New("session.expired")

	// ErrTokenGeneration indicates token generation failed
	ErrTokenGeneration = errors.New("session.token_generation_failed")
)
