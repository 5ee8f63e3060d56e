package middleware

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"roombook/pkg/logger"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logger.Logger {
	return logger.New(logger.Config{Output: io.Discard, Level: logger.ERROR})
}

func countingHandler(calls *int32, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = fmt.Fprintf(w, `{"call":%d}`, n)
	})
}

func postWithKey(user, key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{}`))
	req.Header.Set("Idempotency-Key", key)
	req.Header.Set(HeaderUserID, user)
	return req
}

func runIdempotencyReplay(t *testing.T, store IdempotencyStore) {
	t.Helper()
	var calls int32
	h := Idempotency(store, "")(countingHandler(&calls, http.StatusCreated))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, postWithKey("u1", "k1"))
	require.Equal(t, http.StatusCreated, first.Code)

	second := httptest.NewRecorder()
	h.ServeHTTP(second, postWithKey("u1", "k1"))
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))

	other := httptest.NewRecorder()
	h.ServeHTTP(other, postWithKey("u2", "k1"))
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls), "same key from another user must not replay")
}

func TestIdempotency_InMemoryReplaysSuccess(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Minute)
	defer store.Stop()

	runIdempotencyReplay(t, store)
}

func TestIdempotency_RedisReplaysSuccess(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedisIdempotencyStore(client, time.Minute, quietLogger())
	runIdempotencyReplay(t, store)

	keys := mr.Keys()
	require.Len(t, keys, 2)
	assert.True(t, strings.HasPrefix(keys[0], redisIdempotencyPrefix))

	mr.FastForward(2 * time.Minute)
	_, found := store.Get(t.Context(), "u1|POST|/api/v1/bookings|k1")
	assert.False(t, found, "entry should expire with the TTL")
}

func TestIdempotency_DoesNotCacheFailures(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Minute)
	defer store.Stop()

	var calls int32
	h := Idempotency(store, "")(countingHandler(&calls, http.StatusConflict))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, postWithKey("u1", "k1"))
		assert.Equal(t, http.StatusConflict, rec.Code)
	}
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestIdempotency_IgnoresReads(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Minute)
	defer store.Stop()

	var calls int32
	h := Idempotency(store, "")(countingHandler(&calls, http.StatusOK))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms", nil)
		req.Header.Set("Idempotency-Key", "k1")
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}
