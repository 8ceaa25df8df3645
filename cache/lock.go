package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Locker hands out short-lived exclusive locks keyed by string.
type Locker struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewLocker(rdb *redis.Client, prefix string, ttl time.Duration) *Locker {
	return &Locker{rdb: rdb, prefix: prefix, ttl: ttl}
}

// Acquire returns ok=false when another holder owns key. The returned release
// func only deletes the lock if it is still held by this caller.
func (l *Locker) Acquire(ctx context.Context, key string) (release func(), ok bool, err error) {
	owner := uuid.NewString()
	fullKey := l.prefix + key

	ok, err = l.rdb.SetNX(ctx, fullKey, owner, l.ttl).Result()
	if err != nil || !ok {
		return func() {}, ok, err
	}

	return func() {
		_ = releaseScript.Run(context.Background(), l.rdb, []string{fullKey}, owner).Err()
	}, true, nil
}
