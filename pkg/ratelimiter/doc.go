// Package ratelimiter implements fixed window request throttling.
//
// A FixedWindow allows Limit hits per key in each Window. Counters live in a
// Store: MemoryStore for a single instance, RedisStore when several
// instances share the limit. Middleware keys requests by client IP and
// answers 429 with a Retry-After header once the window is exhausted:
//
//	limiter, _ := ratelimiter.NewFixedWindow(ratelimiter.NewMemoryStore(), 5, time.Minute)
//	r.With(ratelimiter.Middleware(limiter, ratelimiter.ByIP("login"))).Post("/login", login)
package ratelimiter
