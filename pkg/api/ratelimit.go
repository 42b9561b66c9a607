package api

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ipRateLimiter keeps one token bucket per client IP. Buckets are created on
// first sight and pruned when idle longer than the window.
type ipRateLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*ipBucket
	limit    rate.Limit
	burst    int
	window   time.Duration
	lastScan time.Time
}

type ipBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newIPRateLimiter allows max requests per window for each client IP
func newIPRateLimiter(max int, window time.Duration) *ipRateLimiter {
	return &ipRateLimiter{
		buckets: make(map[string]*ipBucket),
		limit:   rate.Limit(float64(max) / window.Seconds()),
		burst:   max,
		window:  window,
	}
}

// allow consumes one token for the client IP if one is available
func (l *ipRateLimiter) allow(ip string) bool {
	return l.bucket(ip).Allow()
}

// refund returns a token to the client's bucket. Failed requests do not
// count against the limit, so their token goes back.
func (l *ipRateLimiter) refund(ip string) {
	l.bucket(ip).AllowN(time.Now(), -1)
}

func (l *ipRateLimiter) bucket(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	bucket, ok := l.buckets[ip]
	if !ok {
		bucket = &ipBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[ip] = bucket
	}
	bucket.lastSeen = now
	l.pruneLocked(now)
	return bucket.limiter
}

// pruneLocked drops buckets idle longer than the window, at most once per
// window so the scan cost stays off the hot path
func (l *ipRateLimiter) pruneLocked(now time.Time) {
	if now.Sub(l.lastScan) < l.window {
		return
	}
	l.lastScan = now
	for ip, bucket := range l.buckets {
		if now.Sub(bucket.lastSeen) > l.window {
			delete(l.buckets, ip)
		}
	}
}

// statusRecorder captures the response status so rate limiting can refund
// failed requests
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// rateLimitMiddleware enforces a per-IP limit. Requests that end with a 4xx
// or 5xx response get their token back: only successful requests count.
func rateLimitMiddleware(limiter *ipRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if !limiter.allow(ip) {
				respondError(w, NewError(http.StatusTooManyRequests, CodeRateLimitExceeded,
					"Too many requests, please slow down"))
				return
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.status >= http.StatusBadRequest {
				limiter.refund(ip)
			}
		})
	}
}

// clientIP extracts the client address, honoring proxy headers when present
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.IndexByte(xff, ','); idx > 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
