package oauth

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/dmitrymomot/oauthlink/pkg/logger"
)

// Exchanger turns authorization codes into UserInfo. It is safe for concurrent use.
// Exchanges are never retried: authorization codes are single-use.
type Exchanger struct {
	cfg      Config
	registry *Registry

	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time

	signingKeys map[Provider]*ecdsa.PrivateKey
	verifiers   map[Provider]*oidc.IDTokenVerifier
}

// ExchangerOption configures an Exchanger.
type ExchangerOption func(*Exchanger)

// WithHTTPClient sets the client used for token, profile and JWKS calls.
func WithHTTPClient(c *http.Client) ExchangerOption {
	return func(e *Exchanger) {
		if c != nil {
			e.httpClient = c
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) ExchangerOption {
	return func(e *Exchanger) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock overrides the time source used for client assertions and token expiry checks.
func WithClock(now func() time.Time) ExchangerOption {
	return func(e *Exchanger) {
		if now != nil {
			e.now = now
		}
	}
}

// NewExchanger validates signing material of enabled providers up front so a bad
// key fails at startup rather than on the first login.
func NewExchanger(cfg Config, registry *Registry, opts ...ExchangerOption) (*Exchanger, error) {
	e := &Exchanger{
		cfg:         cfg,
		registry:    registry,
		httpClient:  &http.Client{},
		logger:      logger.Discard(),
		now:         time.Now,
		signingKeys: make(map[Provider]*ecdsa.PrivateKey),
		verifiers:   make(map[Provider]*oidc.IDTokenVerifier),
	}
	for _, opt := range opts {
		opt(e)
	}

	for _, p := range registry.EnabledProviders() {
		c, err := registry.Capability(p)
		if err != nil {
			return nil, err
		}
		pc := cfg.Provider(p)

		if c.ClientAssertion {
			if pc.TeamID == "" || pc.KeyID == "" || pc.PrivateKey == "" {
				return nil, fmt.Errorf("%w: %s", ErrMissingSigningKey, p)
			}
			key, err := parseSigningKey(pc.PrivateKey)
			if err != nil {
				return nil, fmt.Errorf("provider %s: %w", p, err)
			}
			e.signingKeys[p] = key
		}

		if c.Strategy == StrategyOIDC && cfg.VerifyIDTokens && c.JWKSURL != "" {
			e.verifiers[p] = e.newVerifier(c, pc.ClientID)
		}
	}

	return e, nil
}

// RedirectURI is the callback URL providers return to for the given operation.
// The same value is sent on the authorization URL and at exchange time.
func (e *Exchanger) RedirectURI(method string) string {
	u, err := url.Parse(e.cfg.CallbackURL)
	if err != nil {
		return e.cfg.CallbackURL
	}
	q := u.Query()
	q.Set("method", method)
	u.RawQuery = q.Encode()
	return u.String()
}

// AuthURL builds the provider consent URL for the given callback operation.
func (e *Exchanger) AuthURL(p Provider, method, state string) (string, error) {
	if !e.registry.Enabled(p) {
		return "", NewError(KindProviderDisabled, p.String(), nil)
	}
	c, err := e.registry.Capability(p)
	if err != nil {
		return "", err
	}

	conf := e.oauth2Config(p, c, method, "")
	opts := make([]oauth2.AuthCodeOption, 0, len(c.AuthParams)+1)
	for k, v := range c.AuthParams {
		opts = append(opts, oauth2.SetAuthURLParam(k, v))
	}
	if c.ResponseMode != "" {
		opts = append(opts, oauth2.SetAuthURLParam("response_mode", c.ResponseMode))
	}
	return conf.AuthCodeURL(state, opts...), nil
}

// Exchange trades code for the provider identity of the user.
// Timeouts and every provider-side failure surface as ProviderExchange errors.
func (e *Exchanger) Exchange(ctx context.Context, p Provider, code, method string) (UserInfo, error) {
	if strings.TrimSpace(code) == "" {
		return UserInfo{}, NewError(KindMissingParameter, "code", nil)
	}
	if !e.registry.Enabled(p) {
		return UserInfo{}, NewError(KindProviderDisabled, p.String(), nil)
	}
	c, err := e.registry.Capability(p)
	if err != nil {
		return UserInfo{}, err
	}

	if e.cfg.ProviderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.ProviderTimeout)
		defer cancel()
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)

	secret := e.cfg.Provider(p).ClientSecret
	if c.ClientAssertion {
		secret, err = e.clientAssertion(p, c)
		if err != nil {
			return UserInfo{}, NewError(KindConfiguration, "", err)
		}
	}

	conf := e.oauth2Config(p, c, method, secret)
	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		e.logger.WarnContext(ctx, "token exchange failed",
			logger.Provider(p.String()),
			logger.Error(err),
		)
		return UserInfo{}, NewError(KindProviderExchange, "", err)
	}

	var info UserInfo
	switch c.Strategy {
	case StrategyOIDC:
		info, err = e.userInfoFromIDToken(ctx, p, c, tok)
	case StrategyOAuth2:
		// a response without a scope field grants nothing
		if missing := missingScopes(c, grantedScopes(tok)); len(missing) > 0 {
			return UserInfo{}, NewError(KindInsufficientScope, strings.Join(missing, ", "), nil)
		}
		info, err = e.userInfoFromProfile(ctx, p, c, conf.Client(ctx, tok))
	default:
		err = NewError(KindConfiguration, "", fmt.Errorf("unknown strategy %q for provider %q", c.Strategy, p))
	}
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = NewError(KindProviderExchange, "", errors.Join(ctx.Err(), err))
		}
		e.logger.WarnContext(ctx, "provider profile resolution failed",
			logger.Provider(p.String()),
			logger.Error(err),
		)
		return UserInfo{}, err
	}

	return info.normalize()
}

func (e *Exchanger) oauth2Config(p Provider, c Capability, method, secret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     e.cfg.Provider(p).ClientID,
		ClientSecret: secret,
		RedirectURL:  e.RedirectURI(method),
		Scopes:       c.Scopes,
		Endpoint:     c.Endpoint,
	}
}
