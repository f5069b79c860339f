package ratelimit

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/keithlinneman/jslearn-web/internal/httpmw"
)

const (
	defaultPerSecond   = 10
	defaultBurst       = 30
	defaultTTL         = 5 * time.Minute
	defaultMaxVisitors = 50_000
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	// logged is set on first denial and resets when the entry is evicted
	logged bool
}

// IPLimiter holds a token bucket per client IP. Idle entries are evicted
// after ttl by a background goroutine that stops with the context passed
// to New.
type IPLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor

	perSecond   rate.Limit
	burst       int
	ttl         time.Duration
	maxVisitors int

	// OnFirstDenied runs once per visitor on its first denial, for logging.
	OnFirstDenied func(ip string)
	// OnDenied runs on every denial, for counters.
	OnDenied func(ip string)
	// OnCapacity runs when a new IP is refused because the table is full.
	OnCapacity func(ip string)
}

type Option func(*IPLimiter)

// WithRate sets the refill rate and bucket size. WithRate(10, 50) allows a
// burst of 50 requests, then 10 per second.
func WithRate(perSecond float64, burst int) Option {
	return func(l *IPLimiter) {
		l.perSecond = rate.Limit(perSecond)
		l.burst = burst
	}
}

func WithTTL(d time.Duration) Option {
	return func(l *IPLimiter) { l.ttl = d }
}

// WithMaxVisitors bounds the number of tracked IPs.
func WithMaxVisitors(n int) Option {
	return func(l *IPLimiter) { l.maxVisitors = n }
}

func WithOnFirstDenied(fn func(ip string)) Option {
	return func(l *IPLimiter) { l.OnFirstDenied = fn }
}

func WithOnDenied(fn func(ip string)) Option {
	return func(l *IPLimiter) { l.OnDenied = fn }
}

func WithOnCapacity(fn func(ip string)) Option {
	return func(l *IPLimiter) { l.OnCapacity = fn }
}

func New(ctx context.Context, opts ...Option) *IPLimiter {
	l := &IPLimiter{
		visitors:    make(map[string]*visitor),
		perSecond:   defaultPerSecond,
		burst:       defaultBurst,
		ttl:         defaultTTL,
		maxVisitors: defaultMaxVisitors,
	}
	for _, o := range opts {
		o(l)
	}
	if l.ttl <= 0 {
		l.ttl = defaultTTL
	}
	go l.cleanup(ctx)
	return l
}

// Len reports the number of tracked visitors.
func (l *IPLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// allow reports whether ip may proceed. Hooks run after the lock is released.
func (l *IPLimiter) allow(ip string) bool {
	l.mu.Lock()
	v, exists := l.visitors[ip]
	if !exists {
		if l.maxVisitors > 0 && len(l.visitors) >= l.maxVisitors {
			l.mu.Unlock()
			if l.OnCapacity != nil {
				l.OnCapacity(ip)
			}
			if l.OnDenied != nil {
				l.OnDenied(ip)
			}
			return false
		}
		v = &visitor{limiter: rate.NewLimiter(l.perSecond, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	allowed := v.limiter.Allow()
	first := !allowed && !v.logged
	if first {
		v.logged = true
	}
	l.mu.Unlock()

	if allowed {
		return true
	}
	if first && l.OnFirstDenied != nil {
		l.OnFirstDenied(ip)
	}
	if l.OnDenied != nil {
		l.OnDenied(ip)
	}
	return false
}

func (l *IPLimiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(l.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.evict(now)
		}
	}
}

func (l *IPLimiter) evict(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.ttl {
			delete(l.visitors, ip)
		}
	}
}

// retryAfter is the time for one token to refill, in whole seconds.
func (l *IPLimiter) retryAfter() string {
	if l.perSecond <= 0 {
		return "60"
	}
	return strconv.Itoa(int(math.Max(1, math.Ceil(1/float64(l.perSecond)))))
}

// Middleware answers 429 with the site's JSON error shape when the client
// IP (resolved by httpmw.ClientIP) is over its limit.
func (l *IPLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(httpmw.ClientIPFromContext(r.Context())) {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.Header().Set("Retry-After", l.retryAfter())
			w.Header().Set("Cache-Control", "no-store")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"Too many requests"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
