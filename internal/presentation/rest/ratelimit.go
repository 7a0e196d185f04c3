package rest

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sibi-seeni/credit-churn-deploy/internal/application/dto"
)

// idleBucketTTL is how long an untouched client bucket is kept.
const idleBucketTTL = 10 * time.Minute

// tokenBucket refills at rate tokens per second up to a burst of rate.
type tokenBucket struct {
	tokens     float64
	lastRefill time.Time
}

// ClientRateLimiter keeps one token bucket per client key.
type ClientRateLimiter struct {
	mu        sync.Mutex
	now       func() time.Time
	buckets   map[string]*tokenBucket
	rate      float64
	lastSweep time.Time
}

// NewClientRateLimiter allows each client rps requests per second, bursting to rps.
func NewClientRateLimiter(rps int) *ClientRateLimiter {
	return &ClientRateLimiter{
		now:     time.Now,
		buckets: make(map[string]*tokenBucket),
		rate:    float64(rps),
	}
}

// Allow consumes one token from the client's bucket if one is available.
func (l *ClientRateLimiter) Allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	b, ok := l.buckets[client]
	if !ok {
		b = &tokenBucket{tokens: l.rate, lastRefill: now}
		l.buckets[client] = b
	}
	b.tokens += now.Sub(b.lastRefill).Seconds() * l.rate
	if b.tokens > l.rate {
		b.tokens = l.rate
	}
	b.lastRefill = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// sweep drops buckets idle for longer than idleBucketTTL. Caller holds mu.
func (l *ClientRateLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < idleBucketTTL {
		return
	}
	for k, b := range l.buckets {
		if now.Sub(b.lastRefill) > idleBucketTTL {
			delete(l.buckets, k)
		}
	}
	l.lastSweep = now
}

// RateLimit rejects requests over the client's budget with 429, keyed by remote IP.
func RateLimit(limiter *ClientRateLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientIP(r)
			if !limiter.Allow(client) {
				logger.WarnContext(r.Context(), "rate limit exceeded", slog.String("client", client))
				writeJSON(w, http.StatusTooManyRequests, dto.ErrorResponse{Error: "rate limit exceeded"}, logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
