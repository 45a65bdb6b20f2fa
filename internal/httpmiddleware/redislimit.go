package httpmiddleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisLimiter enforces a fixed per-minute window shared across instances,
// using INCR with a window-sized expiry.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	log    *zap.Logger
}

// NewRedisLimiter creates a limiter allowing perMinute requests per key.
func NewRedisLimiter(client *redis.Client, perMinute int, log *zap.Logger) *RedisLimiter {
	return &RedisLimiter{client: client, limit: perMinute, log: log}
}

// Allow increments the key's window counter. Redis outages fail open so a
// cache hiccup cannot take the API down.
func (l *RedisLimiter) Allow(c *gin.Context, key string) bool {
	ctx := c.Request.Context()
	redisKey := "ratelimit:" + key

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		l.log.Warn("rate limiter unavailable", zap.Error(err))
		return true
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, time.Minute).Err(); err != nil {
			l.log.Warn("rate limiter expire failed", zap.Error(err))
		}
	}
	return count <= int64(l.limit)
}
