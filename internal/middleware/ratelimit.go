package middleware

import (
	"fmt"
	"math"

	"eligibility_backend/internal/ratelimit"
	"eligibility_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// RateLimitMiddleware bounds brute-force attempts on sensitive
// endpoints. Keyed by client IP plus route path so one hot client
// cannot starve another endpoint's quota.
func RateLimitMiddleware(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP() + "|" + c.FullPath()

		decision := limiter.Allow(key)

		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", decision.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", decision.ResetAt.Unix()))

		if !decision.Allowed {
			retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			apperrors.HandleError(c, apperrors.ErrRateLimited(retryAfter))
			c.Abort()
			return
		}

		c.Next()
	}
}
