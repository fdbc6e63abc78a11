package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// incrScript увеличивает счетчик и ставит срок жизни ключа в одной атомарной операции.
// Ключ без срока (PTTL < 0) получает его заново, поэтому окно не может зависнуть навсегда.
var incrScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if redis.call('PTTL', KEYS[1]) < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return count
`)

// RedisLimiter — счетчик с фиксированным окном в Redis, общий для всех экземпляров.
type RedisLimiter struct {
	client   *redis.Client
	requests int64
	window   time.Duration
	prefix   string
}

func NewRedisLimiter(client *redis.Client, requests int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client:   client,
		requests: int64(requests),
		window:   window,
		prefix:   "giftlist:ratelimit:",
	}
}

// NewRedisClient подключается к Redis и проверяет соединение.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	// окно отсчитывается от первого запроса
	count, err := incrScript.Run(ctx, l.client, []string{l.prefix + key}, l.window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("redis incr: %w", err)
	}
	return count <= l.requests, nil
}
