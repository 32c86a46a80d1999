package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/oauthlink/pkg/logger"
)

// Response renders itself to an http.ResponseWriter.
// Implementations should set headers, status code, and write body.
type Response interface {
	Render(w http.ResponseWriter, r *http.Request) error
}

// HandlerFunc handles a request and describes the response to send.
type HandlerFunc func(r *http.Request) Response

// ErrorHandler handles errors from rendering.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// WrapOption configures Wrap.
type WrapOption func(*wrapConfig)

type wrapConfig struct {
	errorHandler ErrorHandler
	logger       *slog.Logger
}

// WithErrorHandler sets a custom error handler.
func WithErrorHandler(h ErrorHandler) WrapOption {
	return func(c *wrapConfig) {
		if h != nil {
			c.errorHandler = h
		}
	}
}

// WithLogger sets the logger used by the default error handler.
func WithLogger(l *slog.Logger) WrapOption {
	return func(c *wrapConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// Wrap converts a HandlerFunc to http.HandlerFunc.
func Wrap(h HandlerFunc, opts ...WrapOption) http.HandlerFunc {
	cfg := &wrapConfig{logger: logger.Discard()}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.errorHandler == nil {
		cfg.errorHandler = defaultErrorHandler(cfg.logger)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		resp := h(r)
		if resp == nil {
			cfg.errorHandler(w, r, ErrNilResponse)
			return
		}
		if err := resp.Render(w, r); err != nil {
			cfg.errorHandler(w, r, err)
		}
	}
}

// defaultErrorHandler logs the error and responds with the HTTPError status when
// available, 500 otherwise. Internal error text is never sent to the client.
func defaultErrorHandler(log *slog.Logger) ErrorHandler {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		status := StatusOf(err)
		level := slog.LevelWarn
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		log.Log(context.WithoutCancel(r.Context()), level, "response failed",
			logger.Component("handler"),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			logger.Error(err),
		)
		http.Error(w, http.StatusText(status), status)
	}
}

// withHeaders copies extra headers onto the response before rendering.
type withHeaders struct {
	Response
	headers http.Header
}

func (h withHeaders) Render(w http.ResponseWriter, r *http.Request) error {
	for k, vs := range h.headers {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	return h.Response.Render(w, r)
}

// WithHeaders returns resp with headers added before it renders, such as Set-Cookie.
func WithHeaders(resp Response, headers http.Header) Response {
	if len(headers) == 0 {
		return resp
	}
	return withHeaders{Response: resp, headers: headers}
}
