// Package ratelimiter throttles callers with a token bucket.
//
// The OAuth endpoints are keyed by client IP so a single address cannot hammer
// the provider token endpoints through this service:
//
//	store := ratelimiter.NewMemoryStore()
//	go store.RunSweeper(ctx, cfg, time.Minute)
//	bucket, err := ratelimiter.NewBucket(store, cfg)
//	r.Use(ratelimiter.Middleware(bucket, func(r *http.Request) string {
//		return clientip.FromContext(r.Context())
//	}, log))
package ratelimiter
