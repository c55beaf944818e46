package middlewares

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"eventhub/logger"
)

type QuotaRule struct {
	Limit  int                       // requests allowed per window
	Window time.Duration             // counter lifetime, starting at the first request
	KeyFn  func(*gin.Context) string // empty key skips the check
}

// Quota counts requests per key in Redis with INCR + EXPIRE. When Redis is
// unavailable requests are let through.
func Quota(rdb *redis.Client, rule QuotaRule) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rule.KeyFn(c)
		if key == "" {
			c.Next()
			return
		}
		ctx := c.Request.Context()

		n, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			logger.Warn("quota check skipped", "key", key, "err", err)
			c.Next()
			return
		}
		if n == 1 {
			_ = rdb.Expire(ctx, key, rule.Window).Err()
		}
		if int(n) > rule.Limit {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"message": "Usage quota exceeded. Please try again later.",
			})
			return
		}
		c.Header("X-Quota-Used", fmt.Sprintf("%d/%d", n, rule.Limit))
		c.Next()
	}
}

// UserDailyQuotaKey keys the quota on the authenticated caller.
func UserDailyQuotaKey(c *gin.Context) string {
	uid := UserID(c)
	if uid == "" {
		return ""
	}
	return "quota:user:" + uid + ":day"
}
