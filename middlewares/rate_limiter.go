package middlewares

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type LimiterConfig struct {
	RPS     float64       // steady refill rate
	Burst   int           // bucket size
	IdleTTL time.Duration // buckets unused this long are dropped
}

type keyLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one in-memory token bucket per key.
type RateLimiter struct {
	conf    LimiterConfig
	mu      sync.Mutex
	buckets map[string]*keyLimiter
	done    chan struct{}
	once    sync.Once
}

// NewRateLimiter starts a janitor goroutine that runs until Close.
func NewRateLimiter(conf LimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		conf:    conf,
		buckets: make(map[string]*keyLimiter),
		done:    make(chan struct{}),
	}

	interval := conf.IdleTTL / 2
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-rl.done:
				return
			case now := <-ticker.C:
				rl.sweep(now)
			}
		}
	}()
	return rl
}

func (rl *RateLimiter) Close() {
	rl.once.Do(func() { close(rl.done) })
}

func (rl *RateLimiter) sweep(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for k, v := range rl.buckets {
		if now.Sub(v.lastSeen) > rl.conf.IdleTTL {
			delete(rl.buckets, k)
		}
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	now := time.Now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if b, ok := rl.buckets[key]; ok {
		b.lastSeen = now
		return b.limiter
	}
	lim := rate.NewLimiter(rate.Limit(rl.conf.RPS), rl.conf.Burst)
	rl.buckets[key] = &keyLimiter{limiter: lim, lastSeen: now}
	return lim
}

// KeySelector picks the bucket for a request, e.g. client IP or user id.
type KeySelector func(c *gin.Context) string

func (rl *RateLimiter) Middleware(selectKey KeySelector) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.getLimiter(selectKey(c)).Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"message": "Too many requests. Please try again later.",
			})
			return
		}
		c.Next()
	}
}

func ByClientIP(prefix string) KeySelector {
	return func(c *gin.Context) string { return prefix + c.ClientIP() }
}

func ByUserID(c *gin.Context) string { return "u:" + UserID(c) }
