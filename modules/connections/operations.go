package connections

import (
	"net/http"
	"strings"

	"github.com/dmitrymomot/oauthlink/pkg/oauth"
)

// Operation names that do not depend on a provider.
const (
	OpUnlinkAccount        = "unlinkAccount"
	OpGetConnectedAccounts = "getConnectedAccounts"
	OpGetOAuthURLs         = "getOAuthUrls"
)

type action int

const (
	actionLogin action = iota
	actionSignup
	actionLink
	actionUnlink
	actionList
	actionAuthURLs
)

// operation is one entry of the dispatch table.
type operation struct {
	name     string
	action   action
	provider oauth.Provider
	verb     string
	// redirect operations report both success and failure by redirecting the browser.
	redirect bool
}

// relaysFormPost reports whether the provider posts the callback cross-site.
func (op operation) relaysFormPost() bool {
	return op.redirect && op.verb == http.MethodPost
}

// accepts reports whether verb may invoke op. The GET replay of a form_post
// callback is accepted only when it carries the relay marker.
func (op operation) accepts(verb string, relayed bool) bool {
	if verb == op.verb {
		return true
	}
	return relayed && verb == http.MethodGet && op.relaysFormPost()
}

var flowActions = map[oauth.Flow]action{
	oauth.FlowLogin:  actionLogin,
	oauth.FlowSignup: actionSignup,
	oauth.FlowLink:   actionLink,
}

// OperationName returns the callback operation for flow and p, e.g. loginWithGoogle
// or linkAppleAccount.
func OperationName(flow oauth.Flow, p oauth.Provider) string {
	title := strings.ToUpper(p.String()[:1]) + p.String()[1:]
	switch flow {
	case oauth.FlowLogin:
		return "loginWith" + title
	case oauth.FlowSignup:
		return "signupWith" + title
	case oauth.FlowLink:
		return "link" + title + "Account"
	default:
		return ""
	}
}

// buildOperations derives the table from the registry so provider callbacks use
// the verb each provider posts back with.
func buildOperations(registry *oauth.Registry) map[string]operation {
	ops := map[string]operation{
		OpUnlinkAccount:        {name: OpUnlinkAccount, action: actionUnlink, verb: http.MethodDelete},
		OpGetConnectedAccounts: {name: OpGetConnectedAccounts, action: actionList, verb: http.MethodGet},
		OpGetOAuthURLs:         {name: OpGetOAuthURLs, action: actionAuthURLs, verb: http.MethodGet},
	}
	if v, ok := verbFor(registry, oauth.FlowUnlink); ok {
		op := ops[OpUnlinkAccount]
		op.verb = v
		ops[OpUnlinkAccount] = op
	}

	for _, p := range oauth.Providers {
		for flow, act := range flowActions {
			verb, ok := registry.Verb(p, flow)
			if !ok {
				continue
			}
			name := OperationName(flow, p)
			ops[name] = operation{name: name, action: act, provider: p, verb: verb, redirect: true}
		}
	}
	return ops
}

// verbFor returns the verb shared by every provider for a provider-agnostic flow.
func verbFor(registry *oauth.Registry, flow oauth.Flow) (string, bool) {
	verb := ""
	for _, p := range oauth.Providers {
		v, ok := registry.Verb(p, flow)
		if !ok {
			continue
		}
		if verb != "" && v != verb {
			return "", false
		}
		verb = v
	}
	return verb, verb != ""
}
