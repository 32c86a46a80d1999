package oauth

import "time"

// ProviderConfig holds the credentials and optional endpoint overrides of one provider.
// Endpoint overrides exist for tests and self-hosted proxies; empty values keep the registry defaults.
type ProviderConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`

	// Client assertion signing material (Apple).
	TeamID     string `env:"TEAM_ID"`
	KeyID      string `env:"KEY_ID"`
	PrivateKey string `env:"PRIVATE_KEY"`

	AuthURL    string   `env:"AUTH_URL"`
	TokenURL   string   `env:"TOKEN_URL"`
	ProfileURL string   `env:"PROFILE_URL"`
	EmailsURL  string   `env:"EMAILS_URL"`
	JWKSURL    string   `env:"JWKS_URL"`
	Scopes     []string `env:"SCOPES" envSeparator:","`
}

// Config is the single configuration struct of the exchange layer.
type Config struct {
	// CallbackURL is the public URL of the mounted handler; providers redirect here with ?method=<operation>.
	CallbackURL string `env:"OAUTH_CALLBACK_URL,required"`
	// FrontendURL is where redirect-mode operations land when no usable state is supplied.
	FrontendURL string `env:"OAUTH_FRONTEND_URL,required"`

	EnabledProviders   []string      `env:"OAUTH_ENABLED_PROVIDERS" envSeparator:"," envDefault:"google"`
	ProviderTimeout    time.Duration `env:"OAUTH_PROVIDER_TIMEOUT" envDefault:"10s"`
	VerifyIDTokens     bool          `env:"OAUTH_VERIFY_ID_TOKENS" envDefault:"true"`
	ClientAssertionTTL time.Duration `env:"OAUTH_CLIENT_ASSERTION_TTL" envDefault:"5m"`

	Google ProviderConfig `envPrefix:"OAUTH_GOOGLE_"`
	Apple  ProviderConfig `envPrefix:"OAUTH_APPLE_"`
	GitHub ProviderConfig `envPrefix:"OAUTH_GITHUB_"`
}

// Provider returns the credentials block of p.
func (c Config) Provider(p Provider) ProviderConfig {
	switch p {
	case ProviderGoogle:
		return c.Google
	case ProviderApple:
		return c.Apple
	case ProviderGitHub:
		return c.GitHub
	default:
		return ProviderConfig{}
	}
}
