package ratelimiter

import (
	"net"
	"net/http"
	"strings"
	"time"
)

const defaultSourceKey = "X-RateLimit-Key"

// Limiter is what the HTTP middleware needs from a rate limiter.
type Limiter interface {
	Allow(sourceKey string) bool
	GetSourceKey(r *http.Request) string
	Remaining(sourceKey string) int
	GetMaxBurst() int
}

type Options struct {
	MaxRatePerSecond int
	MaxBurst         int
	Store            Store
	CacheTTL         time.Duration
	SourceHeaderKey  string
}

// HTTPLimiter applies one token bucket per request source.
type HTTPLimiter struct {
	bucket          *TokenBucket
	sourceHeaderKey string
}

func New(options Options) *HTTPLimiter {
	if options.SourceHeaderKey == "" {
		options.SourceHeaderKey = defaultSourceKey
	}

	return &HTTPLimiter{
		bucket: NewTokenBucket(BucketOptions{
			Prefix:        "rl:http:",
			RatePerSecond: float64(options.MaxRatePerSecond),
			Burst:         options.MaxBurst,
			TTL:           options.CacheTTL,
			Store:         options.Store,
		}),
		sourceHeaderKey: options.SourceHeaderKey,
	}
}

func (l *HTTPLimiter) Allow(sourceKey string) bool {
	ok, _ := l.bucket.Take(sourceKey)
	return ok
}

func (l *HTTPLimiter) Remaining(sourceKey string) int {
	return l.bucket.Remaining(sourceKey)
}

func (l *HTTPLimiter) GetMaxBurst() int {
	return l.bucket.Burst()
}

// GetSourceKey uses the configured header when present, taking the first
// hop of a forwarded list, and falls back to the peer address without its
// port.
func (l *HTTPLimiter) GetSourceKey(r *http.Request) string {
	if key := r.Header.Get(l.sourceHeaderKey); key != "" {
		first, _, _ := strings.Cut(key, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
