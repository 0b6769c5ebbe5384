// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements an in-memory token-bucket rate limiter with per-client
// buckets, per-route costs and opportunistic garbage collection.
//
// Routes differ a lot in how much upstream work they trigger: a single gist
// read is one GitHub call, while the favorites listing fans out to one call
// per mark. Costs let an operator charge such routes more tokens so a client
// cannot exhaust the shared GitHub quota through the expensive endpoint.
//
// Notes:
//   - The limiter is process-local. For horizontally scaled deployments,
//     prefer a distributed limiter to enforce global limits.
//   - A route with cost 0 is exempt (health checks, metrics scraping).
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// keyFunc selects the identity used to key a rate-limit bucket.
type keyFunc func(*gin.Context) string

// KeyByClientIP keys buckets by the client address as resolved by Gin
// (honoring trusted proxies). Keys are prefixed ("ip:203.0.113.7").
func KeyByClientIP() keyFunc {
	return func(c *gin.Context) string {
		return "ip:" + c.ClientIP()
	}
}

// visitor holds a single rate limiter and the last time it was seen.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter implements a per-key token-bucket rate limiter.
//
// Buckets are created on demand; idle buckets are evicted after a TTL during
// lookups to keep memory bounded. Safe for concurrent use.
type RateLimiter struct {
	rps      rate.Limit
	burst    int
	keyFn    keyFunc
	mu       sync.Mutex
	visitors map[string]*visitor

	// costs maps a Gin route pattern (c.FullPath()) to the tokens it
	// consumes. Unlisted routes cost 1.
	costs map[string]int

	ttl      time.Duration
	cleanupN uint64
}

// NewRateLimiter constructs a RateLimiter with the given tokens-per-second
// and burst size, keyed by keyFn.
//
//   - rps:   tokens replenished per second (0 allows no requests; use >0).
//   - burst: maximum burst size; values <= 0 are coerced to 1.
//   - keyFn: function that maps a request to a bucket identity.
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		keyFn:    keyFn,
		visitors: make(map[string]*visitor),
		costs:    make(map[string]int),
		ttl:      10 * time.Minute,
	}
}

// SetCost charges route (a Gin pattern such as "/api/v1/favorites") cost
// tokens per request. cost 0 exempts the route; negative values are ignored.
// Costs above the burst are charged as the full burst.
func (rl *RateLimiter) SetCost(route string, cost int) *RateLimiter {
	if cost < 0 {
		return rl
	}
	rl.mu.Lock()
	rl.costs[route] = cost
	rl.mu.Unlock()
	return rl
}

func (rl *RateLimiter) costFor(c *gin.Context) int {
	rl.mu.Lock()
	cost, ok := rl.costs[c.FullPath()]
	rl.mu.Unlock()
	if !ok {
		return 1
	}
	if cost > rl.burst {
		return rl.burst
	}
	return cost
}

// getVisitor returns (and updates) the limiter for key, creating it if absent.
// It also performs opportunistic GC of idle entries after ~5000 lookups.
//
// GC runs before touching the requested visitor so an idle bucket can be
// evicted even when it's the one being fetched.
func (rl *RateLimiter) getVisitor(key string) *rate.Limiter {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.cleanupN++
	if rl.cleanupN >= 5000 {
		for k, vv := range rl.visitors {
			if now.Sub(vv.lastSeen) >= rl.ttl {
				delete(rl.visitors, k)
			}
		}
		rl.cleanupN = 0
	}

	if v, ok := rl.visitors[key]; ok {
		v.lastSeen = now
		return v.limiter
	}

	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.visitors[key] = &visitor{limiter: lim, lastSeen: now}
	return lim
}

// Handler returns a Gin middleware that enforces per-key limits.
//
// Denied requests get:
//
//	HTTP/1.1 429 Too Many Requests
//	Retry-After: 1
//	{
//	  "request_id": "<uuid>",
//	  "code":       "too_many_requests",
//	  "message":    "rate limit exceeded"
//	}
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		cost := rl.costFor(c)
		if cost == 0 {
			c.Next()
			return
		}

		lim := rl.getVisitor(rl.keyFn(c))
		if lim.AllowN(time.Now(), cost) {
			c.Next()
			return
		}

		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get(requestIDHeader),
			"code":       "too_many_requests",
			"message":    "rate limit exceeded",
		})
	}
}
