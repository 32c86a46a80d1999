package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
)

type githubUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Email string `json:"email"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// userInfoFromProfile calls the profile endpoint with the access token and maps
// the provider-specific payload. Each provider on the oauth2 path gets one branch here.
func (e *Exchanger) userInfoFromProfile(ctx context.Context, p Provider, c Capability, client *http.Client) (UserInfo, error) {
	switch p {
	case ProviderGitHub:
		var u githubUser
		if err := getJSON(ctx, client, c.ProfileURL, &u); err != nil {
			return UserInfo{}, NewError(KindProviderExchange, "", fmt.Errorf("fetch github user: %w", err))
		}
		email := u.Email
		if email == "" && c.EmailsURL != "" {
			var emails []githubEmail
			if err := getJSON(ctx, client, c.EmailsURL, &emails); err != nil {
				return UserInfo{}, NewError(KindProviderExchange, "", fmt.Errorf("fetch github emails: %w", err))
			}
			email = pickGitHubEmail(emails)
			if email == "" {
				return UserInfo{}, NewError(KindProviderExchange, "", errNoVerifiedEmail)
			}
		}
		var uid string
		if u.ID != 0 {
			uid = strconv.FormatInt(u.ID, 10)
		}
		return UserInfo{UID: uid, Email: email, ProviderUsername: u.Login}, nil
	default:
		return UserInfo{}, NewError(KindConfiguration, "", fmt.Errorf("no profile mapping for provider %q", p))
	}
}

// pickGitHubEmail prefers the primary verified address, then any verified one.
func pickGitHubEmail(emails []githubEmail) string {
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email
		}
	}
	return ""
}

func getJSON(ctx context.Context, client *http.Client, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d", errUnexpectedStatus, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// grantedScopes reads the scope field of the token response. Providers separate
// scopes with commas or spaces.
func grantedScopes(tok *oauth2.Token) []string {
	raw, _ := tok.Extra("scope").(string)
	return strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' })
}

// missingScopes returns the required scopes not covered by granted, honouring implied scopes.
func missingScopes(c Capability, granted []string) []string {
	have := make(map[string]bool, len(granted))
	for _, s := range granted {
		have[s] = true
		for _, implied := range c.ScopeImplies[s] {
			have[implied] = true
		}
	}
	var missing []string
	for _, s := range c.RequiredScopes {
		if !have[s] {
			missing = append(missing, s)
		}
	}
	return missing
}
