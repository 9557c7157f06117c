package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/juhojo/blabbermouth/pkg/clientip"
	"github.com/redis/go-redis/v9"
)

const (
	RateLimitWindow      = 2 * time.Minute
	RateLimitMaxRequests = 120
	RateLimitKeyPrefix   = "blabbermouth:ratelimit:"
)

// RedisRateLimiter is a fixed-window per-IP counter shared by all instances.
// Redis failures let the request through.
type RedisRateLimiter struct {
	client redis.UniversalClient
	limit  int
	window time.Duration
	log    *slog.Logger
}

func NewRedisRateLimiter(client redis.UniversalClient, limit int, window time.Duration, log *slog.Logger) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, limit: limit, window: window, log: log}
}

func (l *RedisRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		key := RateLimitKeyPrefix + clientip.RealClientIP(r)

		pipe := l.client.TxPipeline()
		incr := pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, l.window)
		ttl := pipe.TTL(ctx, key)
		if _, err := pipe.Exec(ctx); err != nil {
			l.log.Warn("rate limit check failed", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		count := int(incr.Val())
		reset := ttl.Val()
		if reset < 0 {
			reset = l.window
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(l.limit-count, 0)))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(reset).Unix(), 10))

		if count > l.limit {
			w.Header().Set("Retry-After", fmt.Sprint(int(reset.Seconds())))
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}
