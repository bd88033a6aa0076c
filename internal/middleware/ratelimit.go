package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"

	"github.com/jengzang/rond-timeline/pkg/response"
)

// RateLimiter counts requests per client in fixed windows. Counters expire
// with their window, so idle clients are forgotten by the cache janitor.
type RateLimiter struct {
	counters *cache.Cache
	limit    int           // Maximum requests per window
	window   time.Duration // Time window
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		counters: cache.New(window, 2*window),
		limit:    limit,
		window:   window,
	}
}

// Allow checks if a request from the given client is allowed
func (rl *RateLimiter) Allow(client string) bool {
	if rl.limit <= 0 {
		return true
	}
	// Add fails when a live counter already exists
	if err := rl.counters.Add(client, 1, rl.window); err == nil {
		return true
	}
	n, err := rl.counters.IncrementInt(client, 1)
	if err != nil {
		// expired between Add and Increment
		rl.counters.Set(client, 1, rl.window)
		return true
	}
	return n <= rl.limit
}

// RateLimit middleware limits requests per client IP
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			response.TooManyRequests(c, "Rate limit exceeded. Please try again later.")
			return
		}
		c.Next()
	}
}
