package locker

import (
	"context"
	"time"

	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/quresis/go-quresis-server/global"
	"github.com/redis/go-redis/v9"
)

// deletes the lock only if it still holds our token
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker is a lease based lock shared by all server instances
type RedisLocker struct {
	client     *redis.Client
	prefix     string
	ttl        time.Duration
	retryDelay time.Duration
}

func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &RedisLocker{
		client:     client,
		prefix:     "quresis:lock:",
		ttl:        ttl,
		retryDelay: 10 * time.Millisecond,
	}
}

func (r *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := r.prefix + key
	token := uuid.NewString()
	for {
		ok, err := r.client.SetNX(ctx, lockKey, token, r.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ErrLockTimeout
			}
			return nil, err
		}
		if ok {
			return func() {
				// released with its own timeout, the caller context may be done
				releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second*2)
				defer cancel()
				if uErr := unlockScript.Run(releaseCtx, r.client, []string{lockKey}, token).Err(); uErr != nil {
					level.Error(global.Logger).Log("msg", "failed to release lock", "key", lockKey, "err", uErr)
				}
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ErrLockTimeout
		case <-time.After(r.retryDelay):
		}
	}
}
