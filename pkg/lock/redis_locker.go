package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker coordinates several API instances through SET NX PX.
type RedisLocker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	wait   time.Duration
}

func NewRedisLocker(client *redis.Client, ttl, wait time.Duration) *RedisLocker {
	return &RedisLocker{
		client: client,
		prefix: "lock:",
		ttl:    ttl,
		wait:   wait,
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	fullKey := l.prefix + key
	token := uuid.NewString()

	err := acquireLoop(ctx, l.wait, func() (bool, error) {
		return l.client.SetNX(ctx, fullKey, token, l.ttl).Result()
	})
	if err != nil {
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// Release must run even if the caller's ctx was cancelled.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = releaseScript.Run(releaseCtx, l.client, []string{fullKey}, token).Err()
		})
	}, nil
}
