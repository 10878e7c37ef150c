package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, cfg RateLimiterConfig, limits ...RateLimit) (*RateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	rl := NewRateLimiter(client, zerolog.Nop(), cfg)
	// Stay inside one window bucket regardless of wall time.
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time {
		now = now.Add(time.Millisecond)
		return now
	}
	if len(limits) > 0 {
		rl.WithLimits(limits)
	}
	return rl, mr
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func doRequest(h http.Handler, method, target, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	req.RemoteAddr = ip + ":40000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiterRejectsOverLimit(t *testing.T) {
	rl, _ := newTestLimiter(t, RateLimiterConfig{},
		RateLimit{http.MethodGet, "/typing", 3, time.Minute, participantIPKey})
	h := rl.Middleware(okHandler)

	target := "/typing?user_kind=client&user_id=10&other_kind=agent&other_id=5"
	for i := 0; i < 3; i++ {
		rec := doRequest(h, http.MethodGet, target, "10.0.0.1")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
		assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := doRequest(h, http.MethodGet, target, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, rec.Body.String())

	// Another participant on the same IP has its own budget.
	rec = doRequest(h, http.MethodGet, "/typing?user_kind=agent&user_id=5", "10.0.0.1")
	assert.Equal(t, http.StatusOK, rec.Code)

	// Naming the same participant from another address does not spend its budget.
	rec = doRequest(h, http.MethodGet, target, "10.0.0.9")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(h, http.MethodGet, target, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Unlimited routes pass straight through.
	rec = doRequest(h, http.MethodGet, "/health", "10.0.0.1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestRateLimiterWhitelist(t *testing.T) {
	rl, _ := newTestLimiter(t, RateLimiterConfig{Whitelist: []string{"192.168.0.0/16", "10.9.9.9", "not-a-cidr/99"}},
		RateLimit{http.MethodPost, "/messages", 1, time.Minute, ipKey})
	h := rl.Middleware(okHandler)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, doRequest(h, http.MethodPost, "/messages", "192.168.1.20").Code)
		assert.Equal(t, http.StatusOK, doRequest(h, http.MethodPost, "/messages", "10.9.9.9").Code)
	}

	assert.Equal(t, http.StatusOK, doRequest(h, http.MethodPost, "/messages", "172.16.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(h, http.MethodPost, "/messages", "172.16.0.1").Code)
}

func TestRateLimiterAutoBlock(t *testing.T) {
	rl, mr := newTestLimiter(t, RateLimiterConfig{AutoBlockEnabled: true},
		RateLimit{http.MethodPost, "/messages", 1, time.Minute, ipKey})
	h := rl.Middleware(okHandler)

	doRequest(h, http.MethodPost, "/messages", "10.0.0.2")
	for i := 0; i < violationThreshold; i++ {
		assert.Equal(t, http.StatusTooManyRequests, doRequest(h, http.MethodPost, "/messages", "10.0.0.2").Code)
	}

	assert.True(t, mr.Exists("blocked:ip:10.0.0.2"))
	rec := doRequest(h, http.MethodGet, "/conversations", "10.0.0.2")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rl.blocker.Unblock(context.Background(), "10.0.0.2")
	assert.Equal(t, http.StatusOK, doRequest(h, http.MethodGet, "/conversations", "10.0.0.2").Code)
}

func TestRateLimiterWithoutRedis(t *testing.T) {
	rl := NewRateLimiter(nil, zerolog.Nop(), RateLimiterConfig{})
	h := rl.Middleware(okHandler)

	for i := 0; i < 200; i++ {
		require.Equal(t, http.StatusOK, doRequest(h, http.MethodGet, "/typing", "10.0.0.3").Code)
	}
}

func TestRealIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.1.1:5555"
	assert.Equal(t, "10.1.1.1", RealIP(req))

	req.Header.Set("X-Real-IP", "10.2.2.2")
	assert.Equal(t, "10.2.2.2", RealIP(req))

	req.Header.Set("X-Forwarded-For", "10.3.3.3, 10.4.4.4")
	assert.Equal(t, "10.3.3.3", RealIP(req))
}

