// SPDX-License-Identifier: LicenseRef-Veritest-Proprietary

package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const defaultRequestsPerMinute = 100

type RateLimitMiddleware struct {
	redisClient *redis.Client
	limitRPM    int
}

func NewRateLimitMiddleware(redisClient *redis.Client, limitRPM int) *RateLimitMiddleware {
	if limitRPM <= 0 {
		limitRPM = defaultRequestsPerMinute
	}
	return &RateLimitMiddleware{
		redisClient: redisClient,
		limitRPM:    limitRPM,
	}
}

// Limit applies a fixed one-minute window per client IP. The engine has no
// tenant model of its own; auth and tenancy live upstream.
func (m *RateLimitMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		now := time.Now()
		window := now.Unix() / 60 // 1-minute window

		rateLimitKey := fmt.Sprintf("ratelimit:%s:%d", c.ClientIP(), window)

		// Increment counter
		count, err := m.redisClient.Incr(ctx, rateLimitKey).Result()
		if err != nil {
			// On Redis error, allow the request (fail open)
			c.Next()
			return
		}

		// Set expiry on first increment
		if count == 1 {
			m.redisClient.Expire(ctx, rateLimitKey, 2*time.Minute)
		}

		// Set rate limit headers
		c.Header("X-RateLimit-Limit", strconv.Itoa(m.limitRPM))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(maxInt(0, m.limitRPM-int(count))))
		c.Header("X-RateLimit-Reset", strconv.FormatInt((window+1)*60, 10))

		// Check if over limit
		if count > int64(m.limitRPM) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":    "RATE_LIMIT_EXCEEDED",
					"message": "Rate limit exceeded",
					"details": gin.H{
						"limit": m.limitRPM,
						"reset": (window + 1) * 60,
					},
				},
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
