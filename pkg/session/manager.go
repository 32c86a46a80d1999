package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const minSecretLength = 32

// Manager issues and verifies stateless session cookies. The cookie value is
// an HS256 JWT whose subject is the user id.
type Manager struct {
	cfg Config
	key []byte
	now func() time.Time
}

// Option is a functional option for configuring the Manager
type Option func(*Manager)

// WithClock overrides the time source used for issuing and verifying tokens.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// New creates a Manager. Empty config fields fall back to DefaultConfig.
func New(cfg Config, opts ...Option) (*Manager, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}
	if len(cfg.Secret) < minSecretLength {
		return nil, fmt.Errorf("%w: have %d bytes, need at least %d", ErrSecretTooShort, len(cfg.Secret), minSecretLength)
	}

	def := DefaultConfig()
	if cfg.CookieName == "" {
		cfg.CookieName = def.CookieName
	}
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.Issuer == "" {
		cfg.Issuer = def.Issuer
	}

	m := &Manager{cfg: cfg, key: []byte(cfg.Secret), now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Cookie returns a session cookie for userID.
func (m *Manager) Cookie(userID string) (*http.Cookie, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: empty user id", ErrTokenGeneration)
	}

	now := m.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    m.cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.cfg.TTL)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return nil, errors.Join(ErrTokenGeneration, err)
	}

	return m.cookie(token, int(m.cfg.TTL.Seconds())), nil
}

// ClearCookie returns a cookie that removes the session.
func (m *Manager) ClearCookie() *http.Cookie {
	c := m.cookie("", -1)
	c.Expires = time.Unix(0, 0)
	return c
}

// Headers returns the Set-Cookie header that establishes a session for userID.
func (m *Manager) Headers(userID string) (http.Header, error) {
	c, err := m.Cookie(userID)
	if err != nil {
		return nil, err
	}
	h := http.Header{}
	h.Add("Set-Cookie", c.String())
	return h, nil
}

// UserID verifies the request's session cookie and returns its user id.
func (m *Manager) UserID(r *http.Request) (string, error) {
	c, err := r.Cookie(m.cfg.CookieName)
	if err != nil || c.Value == "" {
		return "", ErrSessionNotFound
	}

	var claims jwt.RegisteredClaims
	_, err = jwt.ParseWithClaims(c.Value, &claims,
		func(*jwt.Token) (any, error) { return m.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", ErrSessionExpired
	case err != nil:
		return "", errors.Join(ErrInvalidSession, err)
	case claims.Subject == "":
		return "", ErrInvalidSession
	}
	return claims.Subject, nil
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    value,
		Path:     "/",
		Domain:   m.cfg.Domain,
		MaxAge:   maxAge,
		Secure:   m.cfg.SecureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode, // CSRF protection
	}
}
