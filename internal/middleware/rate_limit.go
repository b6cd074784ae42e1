package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// RateLimitMiddleware limits each client IP to limit requests per duration on
// a route group. A nil client disables the limit.
func RateLimitMiddleware(redisClient *redis.Client, scope string, limit int, duration time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if redisClient == nil {
			c.Next()
			return
		}
		key := "rate_limit:" + scope + ":" + c.ClientIP()

		// Use a pipeline to efficiently execute multiple commands
		pipe := redisClient.Pipeline()
		pipe.Incr(c, key)
		pipe.Expire(c, key, duration)
		cmds, err := pipe.Exec(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to execute redis pipeline"})
			return
		}

		count := cmds[0].(*redis.IntCmd).Val()
		if count > int64(limit) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}

		c.Next()
	}
}
