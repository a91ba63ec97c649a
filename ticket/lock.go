package ticket

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// OpenLock serialises ticket creation per requester. Acquire returns
// ok=false when another submission for the same user holds the lock.
type OpenLock interface {
	Acquire(ctx context.Context, guildID, userID string) (release func(), ok bool, err error)
}

// NoLock leaves duplicate protection to the channel scan alone.
type NoLock struct{}

func (NoLock) Acquire(context.Context, string, string) (func(), bool, error) {
	return func() {}, true, nil
}

// releaseScript deletes the key only if it still holds our token, so an
// expired lock taken over by another submission is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLock is an OpenLock shared by every bot process using the same
// Redis database.
type RedisLock struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLock(client *redis.Client, ttl time.Duration) *RedisLock {
	return &RedisLock{client: client, ttl: ttl}
}

func lockKey(guildID, userID string) string {
	return fmt.Sprintf("ticket:open:%s:%s", guildID, userID)
}

func (l *RedisLock) Acquire(ctx context.Context, guildID, userID string) (func(), bool, error) {
	key := lockKey(guildID, userID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire open lock: %w", err)
	}
	if !ok {
		return func() {}, false, nil
	}
	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.client, []string{key}, token).Err()
	}
	return release, true, nil
}
