package handlers

import (
	"net/http"
	"os"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// clientLimiters holds one token bucket per client IP.
type clientLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

func newClientLimiters(perSecond float64, burst int) *clientLimiters {
	return &clientLimiters{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(perSecond),
		burst:    burst,
	}
}

func (l *clientLimiters) get(clientIP string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[clientIP]
	if !ok {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters[clientIP] = limiter
	}
	return limiter
}

// RateLimitMiddleware applies a per-client token bucket to write endpoints.
// Disabled unless ENABLE_RATE_LIMIT=true; rate and burst come from
// USER_RATE_LIMIT and USER_RATE_BURST.
func RateLimitMiddleware() gin.HandlerFunc {
	if os.Getenv("ENABLE_RATE_LIMIT") != "true" {
		return func(c *gin.Context) { c.Next() }
	}

	perSecond := 10.0
	if v := os.Getenv("USER_RATE_LIMIT"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			perSecond = parsed
		}
	}
	burst := 20
	if v := os.Getenv("USER_RATE_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			burst = parsed
		}
	}

	limiters := newClientLimiters(perSecond, burst)

	return func(c *gin.Context) {
		if !limiters.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}
