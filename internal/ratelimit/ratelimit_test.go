package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/keithlinneman/jslearn-web/internal/httpmw"
)

func newLimiter(t *testing.T, opts ...Option) *IPLimiter {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return New(ctx, opts...)
}

func TestAllow_BurstThenDeny(t *testing.T) {
	var first, denied []string
	l := newLimiter(t,
		WithRate(0.001, 2),
		WithOnFirstDenied(func(ip string) { first = append(first, ip) }),
		WithOnDenied(func(ip string) { denied = append(denied, ip) }),
	)

	for i := 0; i < 2; i++ {
		if !l.allow("1.2.3.4") {
			t.Fatalf("request %d within burst denied", i)
		}
	}
	for i := 0; i < 3; i++ {
		if l.allow("1.2.3.4") {
			t.Fatal("request over burst allowed")
		}
	}
	if len(first) != 1 || len(denied) != 3 {
		t.Fatalf("first=%v denied=%v", first, denied)
	}
	// other IPs have their own bucket
	if !l.allow("5.6.7.8") {
		t.Fatal("second IP denied")
	}
}

func TestAllow_Capacity(t *testing.T) {
	var capped []string
	l := newLimiter(t, WithMaxVisitors(2), WithOnCapacity(func(ip string) { capped = append(capped, ip) }))
	l.allow("a")
	l.allow("b")
	if l.allow("c") {
		t.Fatal("new IP allowed past capacity")
	}
	if !l.allow("a") {
		t.Fatal("known IP should still be served at capacity")
	}
	if len(capped) != 1 || capped[0] != "c" || l.Len() != 2 {
		t.Fatalf("capped=%v len=%d", capped, l.Len())
	}
}

func TestEvict(t *testing.T) {
	l := newLimiter(t, WithTTL(time.Minute))
	l.allow("old")
	l.evict(time.Now().Add(2 * time.Minute))
	if l.Len() != 0 {
		t.Fatalf("Len = %d after eviction", l.Len())
	}
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{10, "1"},
		{0.5, "2"},
		{0.1, "10"},
	}
	for _, tt := range tests {
		l := newLimiter(t, WithRate(tt.rate, 1))
		if got := l.retryAfter(); got != tt.want {
			t.Errorf("rate %v: Retry-After = %q, want %q", tt.rate, got, tt.want)
		}
	}
}

func TestMiddleware(t *testing.T) {
	l := newLimiter(t, WithRate(0.001, 1))
	h := httpmw.ClientIP(l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	do := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/download/1", nil)
		req.RemoteAddr = "198.51.100.7:4444"
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := do(); rec.Code != http.StatusOK {
		t.Fatalf("first: status = %d", rec.Code)
	}
	rec := do()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second: status = %d, want 429", rec.Code)
	}
	if rec.Body.String() != `{"error":"Too many requests"}` {
		t.Fatalf("body = %q", rec.Body.String())
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("Retry-After missing")
	}
}

func TestAllow_Concurrent(t *testing.T) {
	l := newLimiter(t, WithRate(1000, 1000))
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				l.allow("9.9.9.9")
			}
		}()
	}
	wg.Wait()
}
