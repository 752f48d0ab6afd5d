package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type stubLimiter struct {
	counts map[string]int64
	fail   bool
}

func (s *stubLimiter) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	if s.fail {
		return false, 0, errors.New("redis down")
	}
	if s.counts == nil {
		s.counts = map[string]int64{}
	}
	s.counts[scope]++
	return s.counts[scope] <= limit, s.counts[scope], nil
}

func TestRateLimitBlocksOverBudget(t *testing.T) {
	policy := RateLimitPolicy{Name: "login", Limit: 2, Window: time.Minute}
	handler := RateLimit(policy, &stubLimiter{}, authTestLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		req.RemoteAddr = "10.0.0.9:4444"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	if code := send(); code != http.StatusOK {
		t.Fatalf("first request expected 200 got %d", code)
	}
	if code := send(); code != http.StatusOK {
		t.Fatalf("second request expected 200 got %d", code)
	}
	if code := send(); code != http.StatusTooManyRequests {
		t.Fatalf("third request expected 429 got %d", code)
	}
}

func TestRateLimitScopesByClientIP(t *testing.T) {
	policy := RateLimitPolicy{Name: "login", Limit: 1, Window: time.Minute}
	limiter := &stubLimiter{}
	handler := RateLimit(policy, limiter, authTestLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(forwarded string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		req.Header.Set("X-Forwarded-For", forwarded)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	if code := send("1.2.3.4"); code != http.StatusOK {
		t.Fatalf("expected 200 got %d", code)
	}
	if code := send("1.2.3.4, 9.9.9.9"); code != http.StatusTooManyRequests {
		t.Fatalf("same first hop must share the budget, got %d", code)
	}
	if code := send("5.6.7.8"); code != http.StatusOK {
		t.Fatalf("different client must get its own budget, got %d", code)
	}
}

func TestRateLimitFailsOpenOnLimiterError(t *testing.T) {
	policy := RateLimitPolicy{Name: "login", Limit: 1, Window: time.Minute}
	handler := RateLimit(policy, &stubLimiter{fail: true}, authTestLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("limiter outage must fail open, got %d", w.Code)
	}
}
