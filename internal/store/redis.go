package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions selects the redis instance. Timeouts are fixed short so a
// slow redis degrades health checks and rate limiting instead of stalling
// request handling.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// Redis wraps the client used by the rate limiter and the health probe.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to redis.
func NewRedis(opts RedisOptions) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return &Redis{Client: client}
}

// Ping verifies redis connectivity and reports the round-trip latency.
func (r *Redis) Ping(ctx context.Context) (time.Duration, bool) {
	if r == nil || r.Client == nil {
		return 0, false
	}
	start := time.Now()
	if err := r.Client.Ping(ctx).Err(); err != nil {
		return 0, false
	}
	return time.Since(start), true
}

// Close releases the client's connections.
func (r *Redis) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}
