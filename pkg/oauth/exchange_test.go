package oauth_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/oauthlink/pkg/oauth"
)

// providerStub is a fake of all three providers' token, profile and key endpoints.
type providerStub struct {
	t *testing.T

	rsaKey *rsa.PrivateKey
	ecKey  *ecdsa.PrivateKey
	ecPEM  string

	googleSub    string
	googleEmail  string
	googleIssuer string
	googleAud    string
	omitIDToken  bool
	// emailVerified is sent as the email_verified claim when non-nil.
	emailVerified any

	githubScope  string
	githubEmail  string
	githubEmails []map[string]any

	tokenCalls atomic.Int32
	lastForm   atomic.Value
	delay      time.Duration
}

func newProviderStub(t *testing.T) *providerStub {
	t.Helper()

	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(ecKey)
	require.NoError(t, err)

	return &providerStub{
		t:            t,
		rsaKey:       rsaKey,
		ecKey:        ecKey,
		ecPEM:        string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})),
		googleSub:    "g1",
		googleEmail:  "a@x.com",
		googleIssuer: "https://accounts.google.com",
		googleAud:    "google-client",
		githubScope:  "read:user,user:email",
	}
}

func (s *providerStub) idToken(sub, email, iss, aud string, exp time.Time) string {
	claims := jwt.MapClaims{
		"sub":   sub,
		"email": email,
		"iss":   iss,
		"aud":   aud,
		"exp":   exp.Unix(),
		"iat":   time.Now().Unix(),
	}
	if s.emailVerified != nil {
		claims["email_verified"] = s.emailVerified
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = "k1"
	signed, err := tok.SignedString(s.rsaKey)
	require.NoError(s.t, err)
	return signed
}

func (s *providerStub) handler() http.Handler {
	mux := http.NewServeMux()

	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	token := func(build func(url.Values) (int, map[string]any)) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			s.tokenCalls.Add(1)
			if s.delay > 0 {
				select {
				case <-r.Context().Done():
					return
				case <-time.After(s.delay):
				}
			}
			if err := r.ParseForm(); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_request"})
				return
			}
			s.lastForm.Store(r.PostForm)
			if r.PostForm.Get("code") != "good" {
				writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_grant"})
				return
			}
			status, body := build(r.PostForm)
			writeJSON(w, status, body)
		}
	}

	mux.HandleFunc("POST /google/token", token(func(url.Values) (int, map[string]any) {
		body := map[string]any{"access_token": "ya29", "token_type": "Bearer"}
		if !s.omitIDToken {
			body["id_token"] = s.idToken(s.googleSub, s.googleEmail, s.googleIssuer, s.googleAud, time.Now().Add(time.Hour))
		}
		return http.StatusOK, body
	}))

	mux.HandleFunc("GET /google/certs", func(w http.ResponseWriter, r *http.Request) {
		pub := s.rsaKey.PublicKey
		writeJSON(w, http.StatusOK, map[string]any{"keys": []map[string]string{{
			"kty": "RSA",
			"kid": "k1",
			"alg": "RS256",
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}}})
	})

	mux.HandleFunc("POST /apple/token", token(func(form url.Values) (int, map[string]any) {
		assertion, err := jwt.ParseWithClaims(form.Get("client_secret"), &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
			return &s.ecKey.PublicKey, nil
		}, jwt.WithValidMethods([]string{"ES256"}))
		if err != nil {
			return http.StatusUnauthorized, map[string]any{"error": "invalid_client"}
		}
		claims := assertion.Claims.(*jwt.RegisteredClaims)
		if claims.Issuer != "TEAM" || claims.Subject != "com.example.web" || assertion.Header["kid"] != "KEY" {
			return http.StatusUnauthorized, map[string]any{"error": "invalid_client"}
		}
		return http.StatusOK, map[string]any{
			"access_token": "apple-at",
			"token_type":   "Bearer",
			"id_token":     s.idToken("apple-sub", "b@x.com", "https://appleid.apple.com", "com.example.web", time.Now().Add(time.Hour)),
		}
	}))

	mux.HandleFunc("POST /github/token", token(func(url.Values) (int, map[string]any) {
		body := map[string]any{"access_token": "gho", "token_type": "bearer"}
		if s.githubScope != "" {
			body["scope"] = s.githubScope
		}
		return http.StatusOK, body
	}))

	mux.HandleFunc("GET /github/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer gho" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": 42, "login": "octocat", "email": s.githubEmail})
	})

	mux.HandleFunc("GET /github/emails", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.githubEmails)
	})

	return mux
}

func newExchanger(t *testing.T, stub *providerStub, mutate func(*oauth.Config)) *oauth.Exchanger {
	t.Helper()

	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)

	cfg := oauth.Config{
		CallbackURL:      "https://app.example.com/api/oauth",
		FrontendURL:      "https://app.example.com",
		EnabledProviders: []string{"google", "apple", "github"},
		ProviderTimeout:  2 * time.Second,
		VerifyIDTokens:   true,
		Google: oauth.ProviderConfig{
			ClientID:     "google-client",
			ClientSecret: "google-secret",
			TokenURL:     srv.URL + "/google/token",
			JWKSURL:      srv.URL + "/google/certs",
		},
		Apple: oauth.ProviderConfig{
			ClientID:   "com.example.web",
			TeamID:     "TEAM",
			KeyID:      "KEY",
			PrivateKey: stub.ecPEM,
			TokenURL:   srv.URL + "/apple/token",
			JWKSURL:    srv.URL + "/google/certs",
		},
		GitHub: oauth.ProviderConfig{
			ClientID:     "github-client",
			ClientSecret: "github-secret",
			TokenURL:     srv.URL + "/github/token",
			ProfileURL:   srv.URL + "/github/user",
			EmailsURL:    srv.URL + "/github/emails",
		},
	}
	if mutate != nil {
		mutate(&cfg)
	}

	reg, err := oauth.NewRegistry(cfg)
	require.NoError(t, err)
	ex, err := oauth.NewExchanger(cfg, reg, oauth.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return ex
}

func TestExchanger_Preconditions(t *testing.T) {
	t.Parallel()

	t.Run("empty code is a missing parameter", func(t *testing.T) {
		t.Parallel()

		stub := newProviderStub(t)
		ex := newExchanger(t, stub, nil)

		_, err := ex.Exchange(t.Context(), oauth.ProviderGoogle, "  ", "loginWithGoogle")
		require.ErrorIs(t, err, oauth.ErrMissingParameter)
		assert.Zero(t, stub.tokenCalls.Load())
	})

	t.Run("disabled provider", func(t *testing.T) {
		t.Parallel()

		stub := newProviderStub(t)
		ex := newExchanger(t, stub, func(c *oauth.Config) { c.EnabledProviders = []string{"google"} })

		_, err := ex.Exchange(t.Context(), oauth.ProviderGitHub, "good", "loginWithGithub")
		require.ErrorIs(t, err, oauth.ErrProviderDisabled)
		assert.Zero(t, stub.tokenCalls.Load())
	})

	t.Run("apple without signing key fails at construction", func(t *testing.T) {
		t.Parallel()

		cfg := oauth.Config{
			EnabledProviders: []string{"apple"},
			Apple:            oauth.ProviderConfig{ClientID: "com.example.web"},
		}
		reg, err := oauth.NewRegistry(cfg)
		require.NoError(t, err)

		_, err = oauth.NewExchanger(cfg, reg)
		require.ErrorIs(t, err, oauth.ErrMissingSigningKey)
	})

	t.Run("apple with malformed key fails at construction", func(t *testing.T) {
		t.Parallel()

		cfg := oauth.Config{
			EnabledProviders: []string{"apple"},
			Apple:            oauth.ProviderConfig{ClientID: "c", TeamID: "T", KeyID: "K", PrivateKey: "not a key"},
		}
		reg, err := oauth.NewRegistry(cfg)
		require.NoError(t, err)

		_, err = oauth.NewExchanger(cfg, reg)
		require.ErrorIs(t, err, oauth.ErrInvalidSigningKey)
	})
}

func TestExchanger_OIDC(t *testing.T) {
	t.Parallel()

	t.Run("verified google id token", func(t *testing.T) {
		t.Parallel()

		stub := newProviderStub(t)
		ex := newExchanger(t, stub, nil)

		info, err := ex.Exchange(t.Context(), oauth.ProviderGoogle, "good", "signupWithGoogle")
		require.NoError(t, err)
		assert.Equal(t, oauth.UserInfo{UID: "g1", Email: "a@x.com", ProviderUsername: "a@x.com"}, info)

		form := stub.lastForm.Load().(url.Values)
		assert.Equal(t, "google-client", form.Get("client_id"))
		assert.Equal(t, "google-secret", form.Get("client_secret"))
		assert.Equal(t, "authorization_code", form.Get("grant_type"))
		assert.Equal(t, "https://app.example.com/api/oauth?method=signupWithGoogle", form.Get("redirect_uri"))
	})

	t.Run("wrong audience is rejected when verifying", func(t *testing.T) {
		t.Parallel()

		stub := newProviderStub(t)
		stub.googleAud = "someone-else"
		ex := newExchanger(t, stub, nil)

		_, err := ex.Exchange(t.Context(), oauth.ProviderGoogle, "good", "loginWithGoogle")
		require.ErrorIs(t, err, oauth.ErrProviderExchange)
	})

	t.Run("wrong issuer is rejected when verifying", func(t *testing.T) {
		t.Parallel()

		stub := newProviderStub(t)
		stub.googleIssuer = "https://evil.example.com"
		ex := newExchanger(t, stub, nil)

		_, err := ex.Exchange(t.Context(), oauth.ProviderGoogle, "good", "loginWithGoogle")
		require.ErrorIs(t, err, oauth.ErrProviderExchange)
	})

	t.Run("decode only when verification is off", func(t *testing.T) {
		t.Parallel()

		stub := newProviderStub(t)
		stub.googleAud = "someone-else"
		ex := newExchanger(t, stub, func(c *oauth.Config) { c.VerifyIDTokens = false })

		info, err := ex.Exchange(t.Context(), oauth.ProviderGoogle, "good", "loginWithGoogle")
		require.NoError(t, err)
		assert.Equal(t, "g1", info.UID)
	})

	t.Run("missing id token", func(t *testing.T) {
		t.Parallel()

		stub := newProviderStub(t)
		stub.omitIDToken = true
		ex := newExchanger(t, stub, nil)

		_, err := ex.Exchange(t.Context(), oauth.ProviderGoogle, "good", "loginWithGoogle")
		require.ErrorIs(t, err, oauth.ErrProviderExchange)
	})

	t.Run("missing email yields no partial result", func(t *testing.T) {
		t.Parallel()

		stub := newProviderStub(t)
		stub.googleEmail = ""
		ex := newExchanger(t, stub, nil)

		info, err := ex.Exchange(t.Context(), oauth.ProviderGoogle, "good", "loginWithGoogle")
		require.ErrorIs(t, err, oauth.ErrProviderExchange)
		assert.Zero(t, info)
	})

	t.Run("invalid code", func(t *testing.T) {
		t.Parallel()

		stub := newProviderStub(t)
		ex := newExchanger(t, stub, nil)

		info, err := ex.Exchange(t.Context(), oauth.ProviderGoogle, "expired", "loginWithGoogle")
		require.ErrorIs(t, err, oauth.ErrProviderExchange)
		assert.Zero(t, info)
	})

	t.Run("email_verified claim", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name     string
			provider oauth.Provider
			claim    any
			verify   bool
			wantErr  bool
		}{
			{name: "google bool true", provider: oauth.ProviderGoogle, claim: true, verify: true},
			{name: "google bool false", provider: oauth.ProviderGoogle, claim: false, verify: true, wantErr: true},
			{name: "apple string true", provider: oauth.ProviderApple, claim: "true", verify: true},
			{name: "apple string false", provider: oauth.ProviderApple, claim: "false", verify: true, wantErr: true},
			{name: "unverified rejected without signature check", provider: oauth.ProviderGoogle, claim: "false", wantErr: true},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				stub := newProviderStub(t)
				stub.emailVerified = tt.claim
				ex := newExchanger(t, stub, func(c *oauth.Config) { c.VerifyIDTokens = tt.verify })

				info, err := ex.Exchange(t.Context(), tt.provider, "good", "loginWith"+tt.provider.String())
				if tt.wantErr {
					require.ErrorIs(t, err, oauth.ErrProviderExchange)
					assert.Zero(t, info)
					return
				}
				require.NoError(t, err)
				assert.NotEmpty(t, info.Email)
			})
		}
	})

	t.Run("apple signs a fresh client assertion", func(t *testing.T) {
		t.Parallel()

		stub := newProviderStub(t)
		ex := newExchanger(t, stub, nil)

		info, err := ex.Exchange(t.Context(), oauth.ProviderApple, "good", "loginWithApple")
		require.NoError(t, err)
		assert.Equal(t, "apple-sub", info.UID)
		assert.Equal(t, "b@x.com", info.Email)
		first := stub.lastForm.Load().(url.Values).Get("client_secret")

		_, err = ex.Exchange(t.Context(), oauth.ProviderApple, "good", "loginWithApple")
		require.NoError(t, err)
		second := stub.lastForm.Load().(url.Values).Get("client_secret")

		assert.NotEmpty(t, first)
		assert.NotEmpty(t, second)
		assert.Equal(t, int32(2), stub.tokenCalls.Load())
	})
}

func TestExchanger_OAuth2(t *testing.T) {
	t.Parallel()

	t.Run("public profile email", func(t *testing.T) {
		t.Parallel()

		stub := newProviderStub(t)
		stub.githubEmail = "octo@x.com"
		ex := newExchanger(t, stub, nil)

		info, err := ex.Exchange(t.Context(), oauth.ProviderGitHub, "good", "loginWithGithub")
		require.NoError(t, err)
		assert.Equal(t, oauth.UserInfo{UID: "42", Email: "octo@x.com", ProviderUsername: "octocat"}, info)
	})

	t.Run("falls back to primary verified email", func(t *testing.T) {
		t.Parallel()

		stub := newProviderStub(t)
		stub.githubEmails = []map[string]any{
			{"email": "old@x.com", "primary": false, "verified": true},
			{"email": "main@x.com", "primary": true, "verified": true},
		}
		ex := newExchanger(t, stub, nil)

		info, err := ex.Exchange(t.Context(), oauth.ProviderGitHub, "good", "loginWithGithub")
		require.NoError(t, err)
		assert.Equal(t, "main@x.com", info.Email)
	})

	t.Run("no verified email", func(t *testing.T) {
		t.Parallel()

		stub := newProviderStub(t)
		stub.githubEmails = []map[string]any{{"email": "x@x.com", "primary": true, "verified": false}}
		ex := newExchanger(t, stub, nil)

		_, err := ex.Exchange(t.Context(), oauth.ProviderGitHub, "good", "loginWithGithub")
		require.ErrorIs(t, err, oauth.ErrProviderExchange)
	})

	t.Run("insufficient scope", func(t *testing.T) {
		t.Parallel()

		stub := newProviderStub(t)
		stub.githubScope = "read:user"
		ex := newExchanger(t, stub, nil)

		_, err := ex.Exchange(t.Context(), oauth.ProviderGitHub, "good", "loginWithGithub")
		require.ErrorIs(t, err, oauth.ErrInsufficientScope)
	})

	t.Run("missing scope field is an empty grant", func(t *testing.T) {
		t.Parallel()

		stub := newProviderStub(t)
		stub.githubScope = ""
		stub.githubEmail = "octo@x.com"
		ex := newExchanger(t, stub, nil)

		_, err := ex.Exchange(t.Context(), oauth.ProviderGitHub, "good", "loginWithGithub")
		require.ErrorIs(t, err, oauth.ErrInsufficientScope)
		assert.Contains(t, err.Error(), "user:email")
	})

	t.Run("broad scope covers required scopes", func(t *testing.T) {
		t.Parallel()

		stub := newProviderStub(t)
		stub.githubScope = "user"
		stub.githubEmail = "octo@x.com"
		ex := newExchanger(t, stub, nil)

		_, err := ex.Exchange(t.Context(), oauth.ProviderGitHub, "good", "loginWithGithub")
		require.NoError(t, err)
	})

	t.Run("timeout surfaces as provider exchange error", func(t *testing.T) {
		t.Parallel()

		stub := newProviderStub(t)
		stub.delay = time.Second
		ex := newExchanger(t, stub, func(c *oauth.Config) { c.ProviderTimeout = 20 * time.Millisecond })

		_, err := ex.Exchange(t.Context(), oauth.ProviderGitHub, "good", "loginWithGithub")
		require.ErrorIs(t, err, oauth.ErrProviderExchange)
	})
}

func TestExchanger_AuthURL(t *testing.T) {
	t.Parallel()

	stub := newProviderStub(t)
	ex := newExchanger(t, stub, nil)

	t.Run("google requests offline access", func(t *testing.T) {
		t.Parallel()

		raw, err := ex.AuthURL(oauth.ProviderGoogle, "loginWithGoogle", "https://app.example.com/login")
		require.NoError(t, err)

		u, err := url.Parse(raw)
		require.NoError(t, err)
		q := u.Query()
		assert.Equal(t, "google-client", q.Get("client_id"))
		assert.Equal(t, "offline", q.Get("access_type"))
		assert.Equal(t, "consent", q.Get("prompt"))
		assert.Equal(t, "https://app.example.com/login", q.Get("state"))
		assert.Equal(t, "https://app.example.com/api/oauth?method=loginWithGoogle", q.Get("redirect_uri"))
	})

	t.Run("apple uses form_post", func(t *testing.T) {
		t.Parallel()

		raw, err := ex.AuthURL(oauth.ProviderApple, "signupWithApple", "")
		require.NoError(t, err)

		u, err := url.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, "form_post", u.Query().Get("response_mode"))
		assert.Equal(t, "name email", u.Query().Get("scope"))
	})
}
