// ratelimit.go implements per-client sliding-window rate limiting.
//
// The window is a true sliding window over request timestamps, not a fixed
// bucket: a request is admitted iff fewer than limit requests from the same
// client were admitted within the trailing window. State lives behind the
// Store interface so a single instance can use in-process memory while a
// multi-instance deployment shares state through Redis.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/cloud-deploy-platform/cloud-deploy-platform/internal/telemetry"
)

// RateLimitStore admits or rejects one request for a client key at a given
// instant. Implementations must be safe for concurrent use and must prune,
// check, and record atomically per key, so that under concurrency the quota
// can never be exceeded.
type RateLimitStore interface {
	Admit(ctx context.Context, key string, now time.Time) (bool, error)
}

// ---------------------------------------------------------------------------
// In-memory store
// ---------------------------------------------------------------------------

// MemoryRateLimitStore keeps per-client admitted-request timestamps in process
// memory. Suitable for single-instance deployments.
type MemoryRateLimitStore struct {
	mu      sync.Mutex
	clients map[string][]time.Time
	limit   int
	window  time.Duration
	done    chan struct{}
}

// NewMemoryRateLimitStore creates an in-memory store admitting at most limit
// requests per client within the trailing window. A background janitor drops
// clients whose whole history has aged out, so idle clients do not leak memory.
func NewMemoryRateLimitStore(limit int, window time.Duration) *MemoryRateLimitStore {
	s := &MemoryRateLimitStore{
		clients: make(map[string][]time.Time),
		limit:   limit,
		window:  window,
		done:    make(chan struct{}),
	}
	go s.janitor()
	return s
}

// Admit records and admits the request if the client is under quota.
// Prune, check, and append happen under one lock acquisition, so two
// concurrent requests at the quota boundary can never both be admitted.
func (s *MemoryRateLimitStore) Admit(_ context.Context, key string, now time.Time) (bool, error) {
	cutoff := now.Add(-s.window)

	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.clients[key]

	// Drop timestamps that have slid out of the window. History is in
	// insertion order, so the first still-valid entry marks the keep point.
	keep := 0
	for keep < len(history) && !history[keep].After(cutoff) {
		keep++
	}
	history = history[keep:]

	if len(history) >= s.limit {
		s.clients[key] = history
		return false, nil
	}

	s.clients[key] = append(history, now)
	return true, nil
}

// janitor periodically drops clients with no requests inside the window
func (s *MemoryRateLimitStore) janitor() {
	ticker := time.NewTicker(s.window)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-s.window)
			s.mu.Lock()
			for key, history := range s.clients {
				if len(history) == 0 || !history[len(history)-1].After(cutoff) {
					delete(s.clients, key)
				}
			}
			s.mu.Unlock()
		}
	}
}

// Stop terminates the janitor goroutine
func (s *MemoryRateLimitStore) Stop() {
	close(s.done)
}

// ---------------------------------------------------------------------------
// Redis store
// ---------------------------------------------------------------------------

// admitScript atomically prunes, counts, and conditionally records one request
// in a per-client sorted set keyed by timestamp. Running it as a single Lua
// script gives the same atomicity the in-memory store gets from its mutex.
//
// KEYS[1] = client key
// ARGV[1] = now (unix micros), ARGV[2] = window (micros), ARGV[3] = limit
var admitScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
if redis.call('ZCARD', key) >= limit then
	return 0
end
redis.call('ZADD', key, now, now .. '-' .. redis.call('INCR', key .. ':seq'))
redis.call('PEXPIRE', key, math.ceil(window / 1000) + 1000)
redis.call('PEXPIRE', key .. ':seq', math.ceil(window / 1000) + 1000)
return 1
`)

// RedisRateLimitStore shares sliding-window state across instances through a
// Redis sorted set per client.
type RedisRateLimitStore struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

// NewRedisRateLimitStore creates a Redis-backed store admitting at most limit
// requests per client within the trailing window
func NewRedisRateLimitStore(client *redis.Client, limit int, window time.Duration) *RedisRateLimitStore {
	return &RedisRateLimitStore{
		client: client,
		limit:  limit,
		window: window,
		prefix: "ratelimit:",
	}
}

// Admit records and admits the request if the client is under quota
func (s *RedisRateLimitStore) Admit(ctx context.Context, key string, now time.Time) (bool, error) {
	res, err := admitScript.Run(ctx, s.client,
		[]string{s.prefix + key},
		now.UnixMicro(),
		s.window.Microseconds(),
		s.limit,
	).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

// rateLimitExemptPaths are never rate limited so orchestrator liveness probes
// cannot starve themselves out
var rateLimitExemptPaths = map[string]bool{
	"/health": true,
}

// RateLimitMiddleware enforces the per-client quota before any further work
// happens for the request. Clients are keyed by IP address. If the store
// errors (e.g. Redis briefly unreachable) the request is admitted: degraded
// rate limiting is preferable to a self-inflicted outage.
func RateLimitMiddleware(store RateLimitStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rateLimitExemptPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		ok, err := store.Admit(c.Request.Context(), c.ClientIP(), time.Now())
		if err != nil {
			slog.Warn("rate limit store unavailable, admitting request", "error", err)
			c.Next()
			return
		}

		if !ok {
			telemetry.RateLimitRejectionsTotal.Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded",
			})
			return
		}

		c.Next()
	}
}
