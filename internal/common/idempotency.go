package common

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const idemNamespace = "idem:"

// Idem rejects repeated writes carrying the same Idempotency-Key header.
// The first request claims the key in Redis; replays inside the TTL get a
// 409 with the IDEMPOTENT_REPLAY code.
type Idem struct {
	R   *redis.Client
	TTL time.Duration
}

func (i Idem) redisKey(header string) string {
	sum := sha256.Sum256([]byte(header))
	return idemNamespace + hex.EncodeToString(sum[:])
}

// Middleware enforces idempotency on the wrapped handler. Requests without
// the header pass through untouched.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Idempotency-Key")
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		key := i.redisKey(header)
		claimed, err := i.R.SetNX(r.Context(), key, "locked", i.TTL).Result()
		if err != nil {
			JSONError(w, http.StatusInternalServerError, "INTERNAL", "idempotency store error", map[string]any{"error": err.Error()})
			return
		}
		if !claimed {
			JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "duplicate request", nil)
			return
		}
		defer func() {
			// keep the key expiring even if the handler panics
			_ = i.R.Expire(context.Background(), key, i.TTL).Err()
		}()
		next.ServeHTTP(w, r)
	})
}
