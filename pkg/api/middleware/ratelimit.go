package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig contains rate-limiting configuration.
type RateLimitConfig struct {
	// Window is the accounting window. Default: 1m
	Window time.Duration `mapstructure:"window" yaml:"window"`

	// MaxRequests is the per-IP request budget per window on the general
	// API surface. Default: 300
	MaxRequests int `mapstructure:"max_requests" validate:"omitempty,min=1" yaml:"max_requests"`

	// UploadMaxRequests is the stricter per-IP budget per window on the
	// upload endpoints. Default: 30
	UploadMaxRequests int `mapstructure:"upload_max_requests" validate:"omitempty,min=1" yaml:"upload_max_requests"`
}

// ApplyDefaults fills in missing configuration with default values.
func (c *RateLimitConfig) ApplyDefaults() {
	if c.Window == 0 {
		c.Window = time.Minute
	}
	if c.MaxRequests == 0 {
		c.MaxRequests = 300
	}
	if c.UploadMaxRequests == 0 {
		c.UploadMaxRequests = 30
	}
}

// RateLimiter keeps one token bucket per client IP.
//
// Buckets refill at max/window and allow a burst of one full window. Idle
// entries are pruned opportunistically so the map cannot grow without bound.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	window   time.Duration
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// pruneThreshold is the visitor count above which stale entries get swept.
const pruneThreshold = 1024

// NewRateLimiter creates a per-IP limiter allowing max requests per window.
func NewRateLimiter(window time.Duration, max int) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(float64(max) / window.Seconds()),
		burst:    max,
		window:   window,
	}
}

// Handler rejects requests exceeding the client's budget with 429.
func (l *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(clientIP(r)) {
			w.Header().Set("Retry-After", strconv.Itoa(int(l.window.Seconds())))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error": "Too many requests",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *RateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[ip]
	if !ok {
		if len(l.visitors) > pruneThreshold {
			l.prune()
		}
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter.Allow()
}

// prune drops visitors idle for more than three windows. Caller holds mu.
func (l *RateLimiter) prune() {
	cutoff := time.Now().Add(-3 * l.window)
	for ip, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, ip)
		}
	}
}

// clientIP extracts the client address set by the RealIP middleware.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
