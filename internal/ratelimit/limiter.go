package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"runner-service/internal/apperr"
	"runner-service/internal/httpx"
	"runner-service/internal/metrics"
)

const (
	defaultIdle    = 3 * time.Minute
	defaultSweepAt = 1024
	defaultPerMin  = 10
	defaultBurst   = 10
)

// DefaultPrefixes are the unauthenticated paths guarded against brute force.
var DefaultPrefixes = []string{"/api/login", "/api/registerUser", "/api/forgot-password"}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps one token bucket per client IP.
type Limiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idle     time.Duration
	sweepAt  int
	prefixes []string
	now      func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

func WithClock(now func() time.Time) Option { return func(l *Limiter) { l.now = now } }

func WithPrefixes(prefixes ...string) Option { return func(l *Limiter) { l.prefixes = prefixes } }

// WithSweepThreshold sets the map size above which idle visitors are dropped.
func WithSweepThreshold(n int) Option { return func(l *Limiter) { l.sweepAt = n } }

// New allows perMinute requests per IP with the given burst.
func New(perMinute, burst int, opts ...Option) *Limiter {
	if perMinute <= 0 {
		perMinute = defaultPerMin
	}
	if burst <= 0 {
		burst = defaultBurst
	}
	l := &Limiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
		idle:     defaultIdle,
		sweepAt:  defaultSweepAt,
		prefixes: DefaultPrefixes,
		now:      time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Allow reports whether a request from ip may proceed now.
func (l *Limiter) Allow(ip string) bool {
	now := l.now()

	l.mu.Lock()
	v, ok := l.visitors[ip]
	if !ok {
		if len(l.visitors) >= l.sweepAt {
			l.sweep(now)
		}
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	l.mu.Unlock()

	return v.limiter.AllowN(now, 1)
}

// sweep drops visitors idle for longer than l.idle. Callers hold l.mu.
func (l *Limiter) sweep(now time.Time) {
	for ip, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.idle {
			delete(l.visitors, ip)
		}
	}
}

// Len reports how many visitors are tracked.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

func (l *Limiter) guarded(path string) bool {
	for _, p := range l.prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// Middleware rejects requests on guarded paths once the caller's IP runs dry.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.guarded(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.burst))
		if !l.Allow(ClientIP(r)) {
			metrics.RateLimited.WithLabelValues(r.URL.Path).Inc()
			httpx.Fail(w, r, nil, apperr.ErrRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP is the first X-Forwarded-For entry, else the host of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
