package connections

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const maxBodySize = 1 << 20

// relayParam marks the GET hop that replays a form_post callback.
const relayParam = "relayed"

// params is the flat parameter bag of one request. Query values win over body values.
type params struct {
	Method   string
	Code     string
	State    string
	Provider string
	Flow     string
	Relayed  bool
}

// parseParams reads the query string and the body. Bodies may be JSON, a
// urlencoded form (Apple form_post) or either of those base64-encoded, flagged
// with Content-Transfer-Encoding: base64. A malformed body is reported together
// with whatever parameters could still be read.
func parseParams(r *http.Request) (params, error) {
	values := url.Values{}

	var bodyErr error
	if r.Body != nil && r.Body != http.NoBody {
		var body url.Values
		body, bodyErr = readBody(r)
		if body != nil {
			values = body
		}
	}

	for k, vs := range r.URL.Query() {
		if len(vs) > 0 && vs[0] != "" {
			values.Set(k, vs[0])
		}
	}

	return params{
		Method:   strings.TrimSpace(values.Get("method")),
		Code:     strings.TrimSpace(values.Get("code")),
		State:    strings.TrimSpace(values.Get("state")),
		Provider: strings.TrimSpace(values.Get("provider")),
		Flow:     strings.TrimSpace(values.Get("flow")),
		Relayed:  values.Get(relayParam) == "1",
	}, bodyErr
}

func readBody(r *http.Request) (url.Values, error) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return url.Values{}, nil
	}

	if strings.EqualFold(r.Header.Get("Content-Transfer-Encoding"), "base64") {
		decoded, err := base64.StdEncoding.DecodeString(string(raw))
		if err != nil {
			return nil, fmt.Errorf("decode base64 body: %w", err)
		}
		raw = bytes.TrimSpace(decoded)
	}

	if json.Valid(raw) {
		return jsonValues(raw), nil
	}
	values, err := url.ParseQuery(string(raw))
	if err != nil {
		return values, fmt.Errorf("parse form body: %w", err)
	}
	return values, nil
}

// jsonValues flattens the top-level scalar fields of a JSON object.
func jsonValues(raw []byte) url.Values {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		// valid JSON that is not an object carries no parameters
		return url.Values{}
	}

	values := url.Values{}
	for k, v := range obj {
		switch val := v.(type) {
		case string:
			values.Set(k, val)
		case float64, bool:
			values.Set(k, fmt.Sprint(val))
		}
	}
	return values
}
