package connections

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/dmitrymomot/oauthlink/handler"
	"github.com/dmitrymomot/oauthlink/pkg/logger"
	"github.com/dmitrymomot/oauthlink/pkg/oauth"
	"github.com/dmitrymomot/oauthlink/svc/connect"
)

// Invoke resolves the operation, checks its verb, runs it and shapes the outcome.
// Unknown operations and verb mismatches are a bare 404 and touch nothing.
func (m *Module) Invoke(r *http.Request) handler.Response {
	ctx := r.Context()

	p, parseErr := parseParams(r)
	op, ok := m.ops[p.Method]
	if !ok || !op.accepts(r.Method, p.Relayed) {
		return handler.NotFound()
	}
	if parseErr != nil {
		m.logger.WarnContext(ctx, "malformed request body",
			logger.Component("connections"),
			logger.Operation(op.name),
			logger.Error(parseErr),
		)
		return m.failure(ctx, op, p.State, oauth.NewError(oauth.KindMissingParameter, "", parseErr))
	}

	// A cross-site form_post carries no SameSite=Lax cookie. Replay it as a
	// same-site GET so the session reaches the flow.
	if op.relaysFormPost() && r.Method == http.MethodPost {
		return handler.Redirect(relayURL(r, p))
	}

	req := connect.Request{
		Operation: op.name,
		Provider:  op.provider,
		Code:      p.Code,
		State:     p.State,
	}
	if op.action != actionAuthURLs {
		user, err := m.resolveUser(r)
		if err != nil {
			return m.failure(ctx, op, p.State, err)
		}
		req.CurrentUser = user
	}

	res, err := m.run(ctx, op, req, p)
	if err != nil {
		return m.failure(ctx, op, p.State, err)
	}
	return m.success(op, p.State, res)
}

func relayURL(r *http.Request, p params) string {
	q := url.Values{"method": {p.Method}, relayParam: {"1"}}
	if p.Code != "" {
		q.Set("code", p.Code)
	}
	if p.State != "" {
		q.Set("state", p.State)
	}
	return (&url.URL{Path: r.URL.Path, RawQuery: q.Encode()}).String()
}

func (m *Module) resolveUser(r *http.Request) (*connect.UserRecord, error) {
	user, err := m.currentUser(r)
	if errors.Is(err, connect.ErrNoSession) {
		return nil, nil
	}
	return user, err
}

func (m *Module) run(ctx context.Context, op operation, req connect.Request, p params) (connect.Result, error) {
	switch op.action {
	case actionLogin:
		return m.flows.Login(ctx, req)
	case actionSignup:
		return m.flows.Signup(ctx, req)
	case actionLink:
		return m.flows.Link(ctx, req)
	case actionUnlink:
		if p.Provider == "" {
			return connect.Result{}, oauth.NewError(oauth.KindMissingParameter, "provider", nil)
		}
		provider, err := oauth.ParseProvider(p.Provider)
		if err != nil {
			return connect.Result{}, oauth.NewError(oauth.KindMissingParameter, "provider", err)
		}
		req.Provider = provider
		return m.flows.Unlink(ctx, req)
	case actionList:
		return m.flows.ListConnections(ctx, req)
	case actionAuthURLs:
		return m.authURLs(p)
	default:
		return connect.Result{}, oauth.NewError(oauth.KindConfiguration, "", errors.New("operation has no action"))
	}
}

// authURLs returns {provider: consent URL} for every enabled provider taking part in the requested flow.
func (m *Module) authURLs(p params) (connect.Result, error) {
	if p.Flow == "" {
		return connect.Result{}, oauth.NewError(oauth.KindMissingParameter, "flow", nil)
	}
	flow, err := oauth.ParseFlow(p.Flow)
	if err != nil {
		return connect.Result{}, oauth.NewError(oauth.KindMissingParameter, "flow", err)
	}

	urls := make(map[oauth.Provider]string)
	for _, provider := range m.registry.EnabledProviders() {
		name := OperationName(flow, provider)
		if _, ok := m.ops[name]; !ok {
			continue
		}
		u, err := m.urls.AuthURL(provider, name, p.State)
		if err != nil {
			return connect.Result{}, err
		}
		urls[provider] = u
	}
	return connect.Result{Kind: connect.ResultJSON, Payload: urls}, nil
}
