// Package lock распределённая блокировка на агрегат (бронирование или заказ).
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Снимаем блокировку только если она всё ещё наша
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Release снимает блокировку
type Release func(ctx context.Context) error

// Config параметры блокировки
type Config struct {
	TTL          time.Duration
	WaitTimeout  time.Duration
	RetryBackoff time.Duration
}

// RedisLocker блокировка через SET NX PX с токеном владельца
type RedisLocker struct {
	client *redis.Client
	cfg    Config
}

func NewRedisLocker(client *redis.Client, cfg Config) *RedisLocker {
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Second
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 50 * time.Millisecond
	}
	return &RedisLocker{client: client, cfg: cfg}
}

// Acquire берёт блокировку по ключу, ожидая не дольше WaitTimeout.
// Ошибки Redis оборачиваются в ErrUnavailable
func (l *RedisLocker) Acquire(ctx context.Context, key string) (Release, error) {
	token := uuid.NewString()
	deadline := time.Now().Add(l.cfg.WaitTimeout)

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.cfg.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if ok {
			return l.release(key, token), nil
		}

		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrLockBusy, key)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.cfg.RetryBackoff):
		}
	}
}

func (l *RedisLocker) release(key, token string) Release {
	return func(ctx context.Context) error {
		err := releaseScript.Run(ctx, l.client, []string{key}, token).Err()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: release %s: %v", ErrUnavailable, key, err)
		}
		return nil
	}
}

// NoopLocker используется, когда Redis не сконфигурирован
type NoopLocker struct{}

func (NoopLocker) Acquire(context.Context, string) (Release, error) {
	return func(context.Context) error { return nil }, nil
}

// ReconcileKey ключ блокировки сверки платежа по коду агрегата
func ReconcileKey(code string) string {
	return "lock:reconcile:" + code
}
