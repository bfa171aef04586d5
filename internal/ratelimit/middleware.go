package ratelimit

import (
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/digicoders-git/ksmedical-backend/internal/common"
)

// NewStore wires a limiter store backed by Redis.
func NewStore(rdb *redis.Client) (limiter.Store, error) {
	return limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{
		Prefix: "ratelimit",
	})
}

// New builds a limiter allowing burst requests per period.
func New(store limiter.Store, period time.Duration, burst int64) *limiter.Limiter {
	rate := limiter.Rate{Period: period, Limit: burst}
	return limiter.New(store, rate, limiter.WithTrustForwardHeader(true))
}

// Middleware enforces the per-client rate limit keyed by remote IP. A Redis
// outage fails open.
func Middleware(l *limiter.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx, err := l.Get(r.Context(), l.GetIPKey(r))
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", ctx.Limit))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", ctx.Remaining))
			w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", ctx.Reset))
			if ctx.Reached {
				common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
