// Package locker serializes booking writes per resource with a Redis lease.
package locker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "booking:lock:"

var ErrNotOwner = errors.New("lock not owned by this client")

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Redis struct {
	rdb    redis.Cmdable
	logger *slog.Logger
}

func NewRedis(rdb redis.Cmdable, logger *slog.Logger) *Redis {
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{rdb: rdb, logger: logger}
}

// Key is the lock key guarding one resource's calendar.
func Key(resourceID string) string {
	return keyPrefix + resourceID
}

// TryLock sets key to a fresh token if it is free. It does not wait: a held lock
// returns ok=false with no error.
func (l *Redis) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, string, error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return false, "", fmt.Errorf("lock %s: %w", key, err)
	}
	if !ok {
		l.logger.Debug("lock busy", "key", key)
		return false, "", nil
	}
	return true, token, nil
}

// Unlock releases key if token still owns it. An expired lock is not an error;
// a lock taken over by another holder is.
func (l *Redis) Unlock(ctx context.Context, key, token string) error {
	n, err := releaseScript.Run(ctx, l.rdb, []string{key}, token).Int()
	if err != nil {
		return fmt.Errorf("unlock %s: %w", key, err)
	}
	if n == 1 {
		return nil
	}
	current, err := l.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("unlock %s: %w", key, err)
	}
	if current != token {
		l.logger.Warn("lock ownership mismatch on release", "key", key)
		return ErrNotOwner
	}
	return nil
}
