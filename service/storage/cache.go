package storage

import (
	"context"
	"strconv"
	"time"

	"MeetChat/logger"
	redissrv "MeetChat/service/storage/redis"

	"github.com/redis/go-redis/v9"
)

// Unread counters live in Redis as a performance optimization; the durable
// store's is_read=false row counts stay the ground truth. Every operation
// here is fail-soft: a connectivity error degrades to a cache miss or a
// no-op, never to a caller-visible failure.

// UnreadTTL is the staleness window for cached counters.
const UnreadTTL = 3600 * time.Second

func UnreadKey(userID string) string { return "unread_count_" + userID }

// NotifyChannel is the per-conversation pub/sub channel for out-of-process
// listeners.
func NotifyChannel(pairKey string) string { return "notification_channel_" + pairKey }

// GetUnread returns the cached counter. ok=false means miss (including any
// cache failure); the caller recomputes from the durable store.
func GetUnread(ctx context.Context, userID string) (int64, bool) {
	rdb := redissrv.GetRedis()
	if rdb == nil {
		return 0, false
	}
	val, err := rdb.Get(ctx, UnreadKey(userID)).Result()
	if err == redis.Nil {
		return 0, false
	}
	if err != nil {
		logger.Warnf("[cache] get unread user=%s: %v", userID, err)
		return 0, false
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// SetUnread writes the counter with a TTL; errors are logged and absorbed.
func SetUnread(ctx context.Context, userID string, n int64, ttl time.Duration) {
	rdb := redissrv.GetRedis()
	if rdb == nil {
		return
	}
	if ttl <= 0 {
		ttl = UnreadTTL
	}
	if err := rdb.Set(ctx, UnreadKey(userID), n, ttl).Err(); err != nil {
		logger.Warnf("[cache] set unread user=%s: %v", userID, err)
	}
}

// IncrUnread bumps the counter in place. ok=false means the increment did not
// land; callers must not compensate, the next recompute heals the value.
func IncrUnread(ctx context.Context, userID string, delta int64) (int64, bool) {
	rdb := redissrv.GetRedis()
	if rdb == nil {
		return 0, false
	}
	n, err := rdb.IncrBy(ctx, UnreadKey(userID), delta).Result()
	if err != nil {
		logger.Warnf("[cache] incr unread user=%s: %v", userID, err)
		return 0, false
	}
	return n, true
}

// DelUnread invalidates the counter (used by mark-all-read).
func DelUnread(ctx context.Context, userID string) {
	rdb := redissrv.GetRedis()
	if rdb == nil {
		return
	}
	if err := rdb.Del(ctx, UnreadKey(userID)).Err(); err != nil {
		logger.Warnf("[cache] del unread user=%s: %v", userID, err)
	}
}

// Publish relays a payload on a channel, best-effort.
func Publish(ctx context.Context, channel string, payload []byte) {
	rdb := redissrv.GetRedis()
	if rdb == nil {
		return
	}
	if err := rdb.Publish(ctx, channel, payload).Err(); err != nil {
		logger.Warnf("[cache] publish channel=%s: %v", channel, err)
	}
}
