package common_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/digicoders-git/ksmedical-backend/internal/common"
)

func newIdem(t *testing.T) common.Idem {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return common.Idem{R: client, TTL: time.Minute}
}

func idemHandler(calls *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.WriteHeader(http.StatusCreated)
	})
}

func TestIdempotencyFirstRequestPasses(t *testing.T) {
	idem := newIdem(t)
	calls := 0
	h := idem.Middleware(idemHandler(&calls))

	req := httptest.NewRequest(http.MethodPost, "/orders", nil)
	req.Header.Set("Idempotency-Key", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, 1, calls)
}

func TestIdempotencyReplayConflicts(t *testing.T) {
	idem := newIdem(t)
	calls := 0
	h := idem.Middleware(idemHandler(&calls))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/orders", nil)
		req.Header.Set("Idempotency-Key", "abc-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if i == 0 {
			require.Equal(t, http.StatusCreated, rec.Code)
			continue
		}
		require.Equal(t, http.StatusConflict, rec.Code)
		require.JSONEq(t, `{"error":{"code":"IDEMPOTENT_REPLAY","message":"duplicate request"}}`, rec.Body.String())
	}
	require.Equal(t, 1, calls)
}

func TestIdempotencyDistinctKeysBothPass(t *testing.T) {
	idem := newIdem(t)
	calls := 0
	h := idem.Middleware(idemHandler(&calls))

	for _, key := range []string{"key-a", "key-b"} {
		req := httptest.NewRequest(http.MethodPost, "/orders", nil)
		req.Header.Set("Idempotency-Key", key)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	require.Equal(t, 2, calls)
}

func TestIdempotencyNoHeaderSkipsCheck(t *testing.T) {
	idem := newIdem(t)
	calls := 0
	h := idem.Middleware(idemHandler(&calls))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/orders", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	require.Equal(t, 2, calls)
}
