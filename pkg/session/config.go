package session

import "time"

// Config holds session cookie configuration.
type Config struct {
	// CookieName is the name of the session cookie (default: "sid")
	CookieName string `env:"SESSION_COOKIE_NAME" envDefault:"sid"`

	// Secret signs session tokens. At least 32 bytes.
	Secret string `env:"SESSION_SECRET,required"`

	TTL    time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	Issuer string        `env:"SESSION_ISSUER" envDefault:"oauthlink"`
	Domain string        `env:"SESSION_COOKIE_DOMAIN"`

	// SecureCookies enables the Secure flag on session cookies (recommended for production)
	SecureCookies bool `env:"SESSION_SECURE_COOKIES" envDefault:"false"`
}

// DefaultConfig returns default session configuration without a secret.
func DefaultConfig() Config {
	return Config{
		CookieName: "sid",
		TTL:        30 * 24 * time.Hour,
		Issuer:     "oauthlink",
	}
}
