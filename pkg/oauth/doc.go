// Package oauth exchanges provider authorization codes for a provider-neutral
// UserInfo and describes what each supported provider can do.
//
// Three protocol variants are covered by one code path:
//
//   - Google: the token endpoint returns an identity token; the profile comes from its claims.
//   - Apple: like Google, but the client authenticates with a freshly signed ES256
//     client assertion and the provider posts the code back (response_mode=form_post).
//   - GitHub: the token endpoint returns an access token only; the profile comes from
//     the user endpoint, with a fallback to the emails endpoint.
//
// # Registry
//
// The Registry is an immutable table built once from Config:
//
//	reg, err := oauth.NewRegistry(cfg)
//	if err != nil {
//		// unknown provider names or missing client ids
//	}
//	verb, _ := reg.Verb(oauth.ProviderApple, oauth.FlowLogin) // http.MethodPost
//
// Adding a provider means one registry entry plus one branch in the profile mapping.
//
// # Exchange
//
//	ex, err := oauth.NewExchanger(cfg, reg, oauth.WithLogger(log))
//	info, err := ex.Exchange(ctx, oauth.ProviderGoogle, code, "loginWithGoogle")
//
// Every call runs under Config.ProviderTimeout. Identity tokens are verified against
// the provider JWKS when Config.VerifyIDTokens is set; otherwise they are only decoded.
//
// # Errors
//
// All request-time failures are *Error values classified by Kind. Use errors.Is with
// the kind sentinels (ErrProviderExchange, ErrNoSuchAccount, ...) and Messages to
// resolve user-facing text with optional overrides.
package oauth
