package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

type idTokenClaims struct {
	Email         string        `json:"email"`
	EmailVerified emailVerified `json:"email_verified"`
	jwt.RegisteredClaims
}

// emailVerified accepts the claim as a JSON bool (Google) or a string (Apple).
// An absent claim stays unset and is not treated as a refusal.
type emailVerified struct {
	set   bool
	value bool
}

func (v *emailVerified) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch x := raw.(type) {
	case nil:
		*v = emailVerified{}
	case bool:
		*v = emailVerified{set: true, value: x}
	case string:
		parsed, err := strconv.ParseBool(x)
		if err != nil {
			return fmt.Errorf("email_verified: %w", err)
		}
		*v = emailVerified{set: true, value: parsed}
	default:
		return fmt.Errorf("email_verified: unexpected type %T", raw)
	}
	return nil
}

// newVerifier checks signature, audience and expiry against the provider JWKS.
// Providers publish more than one issuer spelling, so the issuer is matched
// against Capability.Issuers after verification.
func (e *Exchanger) newVerifier(c Capability, clientID string) *oidc.IDTokenVerifier {
	keys := oidc.NewRemoteKeySet(oidc.ClientContext(context.Background(), e.httpClient), c.JWKSURL)
	return oidc.NewVerifier("", keys, &oidc.Config{
		ClientID:        clientID,
		SkipIssuerCheck: true,
		Now:             e.now,
	})
}

// userInfoFromIDToken reads the identity token returned next to the access token.
func (e *Exchanger) userInfoFromIDToken(ctx context.Context, p Provider, c Capability, tok *oauth2.Token) (UserInfo, error) {
	raw, _ := tok.Extra("id_token").(string)
	if raw == "" {
		return UserInfo{}, NewError(KindProviderExchange, "", errMissingIDToken)
	}

	claims, err := e.parseIDToken(ctx, p, c, raw)
	if err != nil {
		return UserInfo{}, NewError(KindProviderExchange, "", fmt.Errorf("%s id token: %w", p, err))
	}
	if claims.EmailVerified.set && !claims.EmailVerified.value {
		return UserInfo{}, NewError(KindProviderExchange, "", errEmailNotVerified)
	}

	return UserInfo{
		UID:              claims.Subject,
		Email:            claims.Email,
		ProviderUsername: claims.Email,
	}, nil
}

func (e *Exchanger) parseIDToken(ctx context.Context, p Provider, c Capability, raw string) (*idTokenClaims, error) {
	claims := &idTokenClaims{}

	verifier, verify := e.verifiers[p]
	if !verify {
		if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
			return nil, err
		}
		return claims, nil
	}

	idToken, err := verifier.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(c.Issuers, idToken.Issuer) {
		return nil, fmt.Errorf("%w: %q", errInvalidIssuer, idToken.Issuer)
	}
	if err := idToken.Claims(claims); err != nil {
		return nil, err
	}
	claims.Subject = idToken.Subject
	return claims, nil
}
