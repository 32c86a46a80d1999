package ratelimiter

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dmitrymomot/oauthlink/handler"
	"github.com/dmitrymomot/oauthlink/pkg/logger"
)

// KeyFunc picks the bucket of a request. An empty key skips limiting.
type KeyFunc func(r *http.Request) string

// Middleware limits requests per key and answers 429 with a JSON error body
// once the bucket is empty. Store failures let the request through.
func Middleware(b *Bucket, key KeyFunc, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = logger.Discard()
	}
	log = log.With(logger.Component("ratelimiter"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}

			res, err := b.Allow(r.Context(), k)
			if err != nil {
				log.ErrorContext(r.Context(), "rate limit check failed", logger.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(0, res.Remaining)))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed() {
				w.Header().Set("Retry-After", strconv.Itoa(int(b.RetryAfter(res).Seconds())))
				log.WarnContext(r.Context(), "rate limit exceeded", slog.String("key", k))
				resp := handler.JSONError(http.StatusText(http.StatusTooManyRequests),
					handler.WithJSONStatus(http.StatusTooManyRequests))
				if err := resp.Render(w, r); err != nil {
					log.ErrorContext(r.Context(), "failed to render response", logger.Error(err))
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
