package redis

import (
	"context"
	"sync"
	"time"

	"MeetChat/logger"

	"github.com/redis/go-redis/v9"
)

var (
	redisOnce sync.Once
	redisMgr  *RedisManager
)

type RedisManager struct {
	client *redis.Client
}

// Config for the Redis manager.
type Config struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
	// MaxRetries bounds the connect loop; after the budget is spent the
	// process runs cache-less and callers fall back to the durable store.
	MaxRetries int
}

// InitRedis dials Redis with bounded exponential backoff (cap 5s). The
// manager is a singleton; repeated calls are no-ops.
func InitRedis(c Config) error {
	var initErr error
	redisOnce.Do(func() {
		if c.MaxRetries <= 0 {
			c.MaxRetries = 5
		}
		rdb := redis.NewClient(&redis.Options{
			Addr:     c.Addr,
			Password: c.Password,
			DB:       c.DB,
			PoolSize: c.PoolSize,
		})

		backoff := time.Second
		for i := 0; i < c.MaxRetries; i++ {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			err := rdb.Ping(ctx).Err()
			cancel()
			if err == nil {
				redisMgr = &RedisManager{client: rdb}
				return
			}
			initErr = err
			logger.Warnf("[redis] connect attempt %d failed: %v", i+1, err)
			time.Sleep(backoff)
			backoff *= 2
			if backoff > 5*time.Second {
				backoff = 5 * time.Second
			}
		}
	})
	return initErr
}

// GetRedis returns the client, or nil when the connect budget was exhausted.
// Callers must treat nil as a permanent cache miss.
func GetRedis() *redis.Client {
	if redisMgr == nil {
		return nil
	}
	return redisMgr.client
}

func CloseRedis() error {
	if redisMgr != nil && redisMgr.client != nil {
		return redisMgr.client.Close()
	}
	return nil
}
