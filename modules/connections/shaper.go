package connections

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrymomot/oauthlink/handler"
	"github.com/dmitrymomot/oauthlink/pkg/logger"
	"github.com/dmitrymomot/oauthlink/pkg/oauth"
	"github.com/dmitrymomot/oauthlink/svc/connect"
)

// Query parameters appended to redirect targets.
const (
	QueryError         = "oAuthError"
	QueryLinkedAccount = "linkedAccount"
)

const genericMessage = "Something went wrong. Please try again"

func (m *Module) success(op operation, state string, res connect.Result) handler.Response {
	if op.redirect || res.Kind == connect.ResultRedirect {
		return handler.WithHeaders(handler.Redirect(m.returnURL(state, res.Query)), res.Headers)
	}
	return handler.WithHeaders(handler.JSON(res.Payload), res.Headers)
}

// failure turns err into a redirect carrying oAuthError for redirect operations
// and into a JSON error body otherwise. Errors without a kind never leak their text.
func (m *Module) failure(ctx context.Context, op operation, state string, err error) handler.Response {
	attrs := []any{
		logger.Component("connections"),
		logger.Operation(op.name),
		logger.Provider(op.provider.String()),
		logger.Error(err),
	}

	kind, classified := oauth.KindOf(err)
	if !classified {
		m.logger.ErrorContext(ctx, "operation failed", attrs...)
		if op.redirect {
			return handler.Redirect(m.returnURL(state, url.Values{QueryError: {genericMessage}}))
		}
		return handler.JSONError(genericMessage, handler.WithJSONStatus(http.StatusInternalServerError))
	}

	attrs = append(attrs, logger.Kind(string(kind)))
	msg, lookupErr := m.messages.For(err)
	if lookupErr != nil {
		m.logger.ErrorContext(ctx, "no message for error kind", append(attrs, slog.String("lookup_error", lookupErr.Error()))...)
		if op.redirect {
			return handler.Redirect(m.returnURL(state, url.Values{QueryError: {genericMessage}}))
		}
		return handler.JSONError(genericMessage, handler.WithJSONStatus(http.StatusInternalServerError))
	}

	level := slog.LevelInfo
	if isSetupKind(kind) {
		level = slog.LevelError
	}
	m.logger.Log(ctx, level, "operation rejected", attrs...)

	if op.redirect {
		return handler.Redirect(m.returnURL(state, url.Values{QueryError: {msg}}))
	}
	return handler.JSONError(msg)
}

func isSetupKind(k oauth.Kind) bool {
	switch k {
	case oauth.KindConfiguration, oauth.KindProviderDisabled, oauth.KindNoUserID:
		return true
	default:
		return false
	}
}

// returnURL appends q to the state URL, or to the frontend URL when state is
// missing or points elsewhere.
func (m *Module) returnURL(state string, q url.Values) string {
	u := m.safeState(state)
	values := u.Query()
	for k, vs := range q {
		values[k] = vs
	}
	u.RawQuery = values.Encode()
	return u.String()
}

// safeState accepts root-relative paths and absolute URLs on the frontend host.
func (m *Module) safeState(state string) *url.URL {
	fallback := *m.frontend
	if state == "" {
		return &fallback
	}

	u, err := url.Parse(state)
	if err != nil {
		return &fallback
	}

	if !u.IsAbs() {
		if !strings.HasPrefix(state, "/") || strings.HasPrefix(state, "//") || strings.HasPrefix(state, "/\\") || u.Host != "" {
			return &fallback
		}
		return m.frontend.ResolveReference(u)
	}

	if (u.Scheme != "http" && u.Scheme != "https") || !strings.EqualFold(u.Host, m.frontend.Host) {
		return &fallback
	}
	return u
}
