package connections

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		target  string
		body    string
		base64  bool
		want    params
		wantErr bool
	}{
		{
			name:   "query only",
			target: "/?method=loginWithGoogle&code=abc&state=%2Fhome",
			want:   params{Method: "loginWithGoogle", Code: "abc", State: "/home"},
		},
		{
			name:   "json body",
			target: "/",
			body:   `{"method":"unlinkAccount","provider":"apple","extra":{"a":1}}`,
			want:   params{Method: "unlinkAccount", Provider: "apple"},
		},
		{
			name:   "form body with method in query",
			target: "/?method=linkAppleAccount",
			body:   "code=xyz&state=%2Fsettings&user=%7B%22name%22%3A%7B%7D%7D",
			want:   params{Method: "linkAppleAccount", Code: "xyz", State: "/settings"},
		},
		{
			name:   "query wins over body",
			target: "/?method=getConnectedAccounts",
			body:   `{"method":"unlinkAccount"}`,
			want:   params{Method: "getConnectedAccounts"},
		},
		{
			name:   "base64 form",
			target: "/",
			body:   base64.StdEncoding.EncodeToString([]byte("method=getOAuthUrls&flow=signup")),
			base64: true,
			want:   params{Method: "getOAuthUrls", Flow: "signup"},
		},
		{
			name:   "json array carries nothing",
			target: "/?method=getConnectedAccounts",
			body:   `["method"]`,
			want:   params{Method: "getConnectedAccounts"},
		},
		{
			name:   "relay marker",
			target: "/?method=loginWithApple&code=xyz&relayed=1",
			want:   params{Method: "loginWithApple", Code: "xyz", Relayed: true},
		},
		{
			name:    "malformed form keeps readable values",
			target:  "/?method=linkAppleAccount&state=%2Fsettings",
			body:    "code=xyz&user=%zz",
			want:    params{Method: "linkAppleAccount", Code: "xyz", State: "/settings"},
			wantErr: true,
		},
		{
			name:    "broken base64",
			target:  "/",
			body:    "%%%",
			base64:  true,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest(http.MethodPost, tt.target, strings.NewReader(tt.body))
			if tt.base64 {
				r.Header.Set("Content-Transfer-Encoding", "base64")
			}
			got, err := parseParams(r)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
