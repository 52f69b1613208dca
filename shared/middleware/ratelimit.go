package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/pennywise/finance/shared/metrics"
)

// RateLimiter is a token bucket per key (user ID, or client IP when the
// request is unauthenticated). Idle buckets are evicted after an hour.
type RateLimiter struct {
	limiters  map[string]*rateLimiterEntry
	mu        sync.Mutex
	rate      rate.Limit
	burst     int
	stopClean chan struct{}
	stopOnce  sync.Once
}

type rateLimiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewRateLimiter creates a limiter refilling perSecond tokens per second up to burst.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	rl := &RateLimiter{
		limiters:  make(map[string]*rateLimiterEntry),
		rate:      rate.Limit(perSecond),
		burst:     burst,
		stopClean: make(chan struct{}),
	}
	go rl.startCleanup(5 * time.Minute)
	return rl
}

func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	entry, exists := rl.limiters[key]
	if !exists {
		entry = &rateLimiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = entry
	}
	entry.lastAccess = time.Now()
	limiter := entry.limiter
	rl.mu.Unlock()

	return limiter.Allow()
}

func (rl *RateLimiter) startCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup(time.Hour)
		case <-rl.stopClean:
			return
		}
	}
}

func (rl *RateLimiter) cleanup(maxIdle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	threshold := time.Now().Add(-maxIdle)
	for key, entry := range rl.limiters {
		if entry.lastAccess.Before(threshold) {
			delete(rl.limiters, key)
		}
	}
}

func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopClean) })
}

// RateLimit rejects requests over the caller's budget with 429.
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	retryAfter := "1"
	if rl.rate > 0 {
		retryAfter = strconv.Itoa(int(1/float64(rl.rate)) + 1)
	}
	return func(c *gin.Context) {
		key, ok := GetUserID(c)
		if !ok {
			key = c.ClientIP()
		}
		if !rl.Allow(key) {
			metrics.HTTPRateLimited.WithLabelValues(c.FullPath()).Inc()
			c.Header("Retry-After", retryAfter)
			RespondWithError(c, http.StatusTooManyRequests, "Too many requests")
			c.Abort()
			return
		}
		c.Next()
	}
}
