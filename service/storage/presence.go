package storage

import (
	"context"
	"time"

	"MeetChat/logger"
	redissrv "MeetChat/service/storage/redis"

	"github.com/redis/go-redis/v9"
)

// presence key: im:presence:<user>
// Value is the gateway id; the TTL bounds how long a crashed node can leave a
// user looking online.
func presenceKey(user string) string { return "im:presence:" + user }

// PresenceOnline marks the user online and renews the TTL. Fail-soft: the
// users table is updated separately and remains authoritative.
func PresenceOnline(ctx context.Context, user, gatewayID string, ttl time.Duration) {
	rdb := redissrv.GetRedis()
	if rdb == nil {
		return
	}
	if err := rdb.Set(ctx, presenceKey(user), gatewayID, ttl).Err(); err != nil {
		logger.Warnf("[presence] online user=%s: %v", user, err)
	}
}

// PresenceOffline drops the presence key.
func PresenceOffline(ctx context.Context, user string) {
	rdb := redissrv.GetRedis()
	if rdb == nil {
		return
	}
	if err := rdb.Del(ctx, presenceKey(user)).Err(); err != nil {
		logger.Warnf("[presence] offline user=%s: %v", user, err)
	}
}

// PresenceLookup reports whether the user currently holds a presence key.
func PresenceLookup(ctx context.Context, user string) (gatewayID string, online bool, err error) {
	rdb := redissrv.GetRedis()
	if rdb == nil {
		return "", false, nil
	}
	val, err := rdb.Get(ctx, presenceKey(user)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}
