package clientip

import (
	"net"
	"net/http"
	"strings"
)

// DefaultHeaders are the proxy headers consulted by Resolver, in order.
var DefaultHeaders = []string{"CF-Connecting-IP", "X-Forwarded-For", "X-Real-IP"}

// Resolver finds the client address of a request. Proxy headers are only
// trusted when listed; the remote address is the fallback.
type Resolver struct {
	headers []string
}

// NewResolver trusts the given headers. No headers means only RemoteAddr is used.
func NewResolver(headers ...string) *Resolver {
	return &Resolver{headers: headers}
}

// IP returns the normalized client IP or "" when none can be parsed.
func (res *Resolver) IP(r *http.Request) string {
	for _, h := range res.headers {
		if ip := rightmost(r.Header.Values(h)); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return normalize(r.RemoteAddr)
	}
	return normalize(host)
}

// rightmost returns the last valid address of a possibly repeated, comma
// separated header. Each proxy appends the peer it saw, so entries to the left
// of the trusted proxy's own are client supplied.
func rightmost(values []string) string {
	for i := len(values) - 1; i >= 0; i-- {
		parts := strings.Split(values[i], ",")
		for j := len(parts) - 1; j >= 0; j-- {
			if ip := normalize(parts[j]); ip != "" {
				return ip
			}
		}
	}
	return ""
}

func normalize(s string) string {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil {
		return ""
	}
	return ip.String()
}
