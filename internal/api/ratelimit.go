package api

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures the per-IP request limiter.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	CleanupInterval   time.Duration // Idle visitors are forgotten after twice this
}

// DefaultRateLimitConfig allows a controller posting input at 60 Hz with
// room for the polling endpoints.
var DefaultRateLimitConfig = RateLimitConfig{
	RequestsPerSecond: 120,
	Burst:             240,
	CleanupInterval:   5 * time.Minute,
}

// RateLimitStats counts limiter decisions.
type RateLimitStats struct {
	Allowed  uint64 `json:"allowed"`
	Rejected uint64 `json:"rejected"`
	Visitors int    `json:"visitors"`
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter applies one token bucket per client IP.
type IPRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	config   RateLimitConfig

	allowed  atomic.Uint64
	rejected atomic.Uint64

	stop     chan struct{}
	stopOnce sync.Once
}

// NewIPRateLimiter creates the limiter and starts its idle-visitor sweep.
func NewIPRateLimiter(cfg RateLimitConfig) *IPRateLimiter {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultRateLimitConfig.CleanupInterval
	}
	rl := &IPRateLimiter{
		visitors: make(map[string]*visitor),
		config:   cfg,
		stop:     make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

// Stop ends the sweep goroutine. Safe to call twice.
func (rl *IPRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Allow reports whether ip may make another request now.
func (rl *IPRateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.Burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	allowed := v.limiter.Allow()
	rl.mu.Unlock()

	if allowed {
		rl.allowed.Add(1)
	} else {
		rl.rejected.Add(1)
	}
	return allowed
}

// Middleware rejects requests over the limit with 429.
func (rl *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(GetClientIP(r)) {
			RecordConnectionRejected("rate_limit")
			w.Header().Set("Retry-After", "1")
			writeError(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetStats returns the decision counters.
func (rl *IPRateLimiter) GetStats() RateLimitStats {
	rl.mu.Lock()
	n := len(rl.visitors)
	rl.mu.Unlock()
	return RateLimitStats{
		Allowed:  rl.allowed.Load(),
		Rejected: rl.rejected.Load(),
		Visitors: n,
	}
}

func (rl *IPRateLimiter) sweepLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			rl.sweep(now.Add(-2 * rl.config.CleanupInterval))
		}
	}
}

// sweep forgets visitors idle since before cutoff.
func (rl *IPRateLimiter) sweep(cutoff time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, ip)
		}
	}
}

// GetClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then
// the connection address. Forwarded headers are only trustworthy behind a
// proxy that overwrites them.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ConnLimiter caps concurrent sockets per IP.
type ConnLimiter struct {
	mu       sync.Mutex
	open     map[string]int
	maxPerIP int
	rejected atomic.Uint64
}

// NewConnLimiter creates a limiter allowing maxPerIP open sockets per IP.
func NewConnLimiter(maxPerIP int) *ConnLimiter {
	return &ConnLimiter{open: make(map[string]int), maxPerIP: maxPerIP}
}

// Acquire reserves a slot for ip. Every successful Acquire needs a Release.
func (cl *ConnLimiter) Acquire(ip string) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cl.open[ip] >= cl.maxPerIP {
		cl.rejected.Add(1)
		return false
	}
	cl.open[ip]++
	return true
}

// Release frees a slot reserved by Acquire.
func (cl *ConnLimiter) Release(ip string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	switch n := cl.open[ip]; {
	case n > 1:
		cl.open[ip] = n - 1
	case n == 1:
		delete(cl.open, ip)
	}
}

// Count returns the open sockets for ip.
func (cl *ConnLimiter) Count(ip string) int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.open[ip]
}

// Rejected returns how many Acquire calls were refused.
func (cl *ConnLimiter) Rejected() uint64 { return cl.rejected.Load() }

// OriginChecker matches browser origins against configured patterns. A
// pattern may end in ":*" to accept any port.
type OriginChecker struct {
	exact    map[string]bool
	prefixes []string
}

// DefaultOrigins allows local front ends on any port.
var DefaultOrigins = []string{
	"http://localhost:*",
	"http://127.0.0.1:*",
}

// NewOriginChecker builds a checker. Empty input uses DefaultOrigins.
func NewOriginChecker(origins []string) *OriginChecker {
	if len(origins) == 0 {
		origins = DefaultOrigins
	}
	oc := &OriginChecker{exact: make(map[string]bool, len(origins))}
	for _, o := range origins {
		if prefix, ok := strings.CutSuffix(o, ":*"); ok {
			oc.prefixes = append(oc.prefixes, prefix+":")
			oc.exact[prefix] = true
			continue
		}
		oc.exact[o] = true
	}
	return oc
}

// Allowed checks if an origin is accepted. Requests without an Origin header
// come from non-browser clients and are allowed.
func (oc *OriginChecker) Allowed(origin string) bool {
	if origin == "" || oc.exact[origin] {
		return true
	}
	for _, p := range oc.prefixes {
		if port, ok := strings.CutPrefix(origin, p); ok && port != "" && !strings.ContainsAny(port, "/.") {
			return true
		}
	}
	return false
}
