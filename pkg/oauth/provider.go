package oauth

import (
	"fmt"
	"strings"
)

// Provider identifies an external identity provider.
type Provider string

// Supported providers.
const (
	ProviderApple  Provider = "apple"
	ProviderGoogle Provider = "google"
	ProviderGitHub Provider = "github"
)

// Providers lists every supported provider in a stable order.
var Providers = []Provider{ProviderApple, ProviderGoogle, ProviderGitHub}

func (p Provider) String() string {
	return string(p)
}

// ParseProvider converts a raw request value into a Provider.
// Matching is case-insensitive; unknown values yield ErrUnknownProvider.
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Providers {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
}

// Flow is one of the account-connection flows a provider takes part in.
type Flow string

const (
	FlowLogin  Flow = "login"
	FlowSignup Flow = "signup"
	FlowLink   Flow = "link"
	FlowUnlink Flow = "unlink"
)

// ParseFlow converts a raw request value into a redirect-capable Flow.
func ParseFlow(s string) (Flow, error) {
	switch f := Flow(strings.ToLower(strings.TrimSpace(s))); f {
	case FlowLogin, FlowSignup, FlowLink:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFlow, s)
	}
}

// Strategy describes how a provider's profile is obtained after token exchange.
type Strategy string

const (
	// StrategyOIDC reads the profile from the identity token returned by the token endpoint.
	StrategyOIDC Strategy = "oidc"
	// StrategyOAuth2 fetches the profile from a separate user endpoint with the access token.
	StrategyOAuth2 Strategy = "oauth2"
)
