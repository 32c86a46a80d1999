package oauth

import (
	"fmt"
	"net/http"
	"slices"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
)

// Capability is the static description of one provider.
type Capability struct {
	Strategy Strategy
	// Verbs maps every flow the provider takes part in to the HTTP verb the callback must use.
	Verbs             map[Flow]string
	RedirectSupported bool

	// ClientAssertion replaces the static client secret with a freshly signed token on every exchange.
	ClientAssertion   bool
	AssertionAudience string

	// ResponseMode is passed as response_mode on the authorization URL when set.
	ResponseMode string
	Endpoint     oauth2.Endpoint

	ProfileURL string
	EmailsURL  string

	JWKSURL string
	Issuers []string

	Scopes         []string
	RequiredScopes []string
	// ScopeImplies expands broad grants into the narrower scopes they cover.
	ScopeImplies map[string][]string
	AuthParams   map[string]string
}

func (c Capability) validate() error {
	switch c.Strategy {
	case StrategyOIDC:
		if len(c.Issuers) == 0 {
			return fmt.Errorf("%w: oidc strategy requires issuers", ErrInvalidCapability)
		}
	case StrategyOAuth2:
		if c.ProfileURL == "" {
			return fmt.Errorf("%w: oauth2 strategy requires a profile url", ErrInvalidCapability)
		}
	default:
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidCapability, c.Strategy)
	}
	if c.Endpoint.TokenURL == "" {
		return fmt.Errorf("%w: token url is empty", ErrInvalidCapability)
	}
	return nil
}

// DefaultCapabilities returns a fresh copy of the built-in provider table.
func DefaultCapabilities() map[Provider]Capability {
	callbackVerbs := func(callback string) map[Flow]string {
		return map[Flow]string{
			FlowLogin:  callback,
			FlowSignup: callback,
			FlowLink:   callback,
			FlowUnlink: http.MethodDelete,
		}
	}

	googleEndpoint := google.Endpoint
	googleEndpoint.AuthStyle = oauth2.AuthStyleInParams
	githubEndpoint := github.Endpoint
	githubEndpoint.AuthStyle = oauth2.AuthStyleInParams

	return map[Provider]Capability{
		ProviderApple: {
			Strategy:          StrategyOIDC,
			Verbs:             callbackVerbs(http.MethodPost),
			RedirectSupported: true,
			ClientAssertion:   true,
			AssertionAudience: "https://appleid.apple.com",
			ResponseMode:      "form_post",
			Endpoint: oauth2.Endpoint{
				AuthURL:   "https://appleid.apple.com/auth/authorize",
				TokenURL:  "https://appleid.apple.com/auth/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
			JWKSURL: "https://appleid.apple.com/auth/keys",
			Issuers: []string{"https://appleid.apple.com"},
			Scopes:  []string{"name", "email"},
		},
		ProviderGoogle: {
			Strategy:          StrategyOIDC,
			Verbs:             callbackVerbs(http.MethodGet),
			RedirectSupported: true,
			Endpoint:          googleEndpoint,
			JWKSURL:           "https://www.googleapis.com/oauth2/v3/certs",
			Issuers:           []string{"accounts.google.com", "https://accounts.google.com"},
			Scopes:            []string{"openid", "email", "profile"},
			AuthParams: map[string]string{
				"access_type": "offline",
				"prompt":      "consent",
			},
		},
		ProviderGitHub: {
			Strategy:          StrategyOAuth2,
			Verbs:             callbackVerbs(http.MethodGet),
			RedirectSupported: true,
			Endpoint:          githubEndpoint,
			ProfileURL:        "https://api.github.com/user",
			EmailsURL:         "https://api.github.com/user/emails",
			Scopes:            []string{"read:user", "user:email"},
			RequiredScopes:    []string{"read:user", "user:email"},
			ScopeImplies: map[string][]string{
				"user": {"read:user", "user:email"},
			},
		},
	}
}

// Registry is the immutable provider lookup table built once from Config.
type Registry struct {
	caps    map[Provider]Capability
	enabled map[Provider]bool
}

// NewRegistry builds the registry from the default capability table, applying endpoint
// overrides from cfg. Enabled providers must be known and carry a client id.
func NewRegistry(cfg Config) (*Registry, error) {
	return NewRegistryWithCapabilities(cfg, DefaultCapabilities())
}

// NewRegistryWithCapabilities is NewRegistry over a caller-supplied capability table.
func NewRegistryWithCapabilities(cfg Config, caps map[Provider]Capability) (*Registry, error) {
	r := &Registry{
		caps:    make(map[Provider]Capability, len(caps)),
		enabled: make(map[Provider]bool, len(cfg.EnabledProviders)),
	}

	for p, c := range caps {
		c = applyOverrides(c, cfg.Provider(p))
		if err := c.validate(); err != nil {
			return nil, fmt.Errorf("provider %s: %w", p, err)
		}
		r.caps[p] = c
	}

	for _, name := range cfg.EnabledProviders {
		p, err := ParseProvider(name)
		if err != nil {
			return nil, err
		}
		if _, ok := r.caps[p]; !ok {
			return nil, fmt.Errorf("%w: %s has no registered capability", ErrUnknownProvider, p)
		}
		if cfg.Provider(p).ClientID == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingClientID, p)
		}
		r.enabled[p] = true
	}

	return r, nil
}

func applyOverrides(c Capability, pc ProviderConfig) Capability {
	if pc.AuthURL != "" {
		c.Endpoint.AuthURL = pc.AuthURL
	}
	if pc.TokenURL != "" {
		c.Endpoint.TokenURL = pc.TokenURL
	}
	if pc.ProfileURL != "" {
		c.ProfileURL = pc.ProfileURL
	}
	if pc.EmailsURL != "" {
		c.EmailsURL = pc.EmailsURL
	}
	if pc.JWKSURL != "" {
		c.JWKSURL = pc.JWKSURL
	}
	if len(pc.Scopes) > 0 {
		c.Scopes = slices.Clone(pc.Scopes)
	}
	return c
}

// Enabled reports whether p is switched on.
func (r *Registry) Enabled(p Provider) bool {
	return r.enabled[p]
}

// EnabledProviders lists enabled providers in the order of Providers.
func (r *Registry) EnabledProviders() []Provider {
	out := make([]Provider, 0, len(r.enabled))
	for _, p := range Providers {
		if r.enabled[p] {
			out = append(out, p)
		}
	}
	return out
}

// Capability returns the static record of p. A provider with no registered
// strategy is a configuration error.
func (r *Registry) Capability(p Provider) (Capability, error) {
	c, ok := r.caps[p]
	if !ok {
		return Capability{}, NewError(KindConfiguration, "", fmt.Errorf("no strategy registered for provider %q", p))
	}
	return c, nil
}

// Verb returns the HTTP verb p requires for flow, or false when p does not take part in it.
func (r *Registry) Verb(p Provider, flow Flow) (string, bool) {
	c, ok := r.caps[p]
	if !ok {
		return "", false
	}
	v, ok := c.Verbs[flow]
	return v, ok
}
