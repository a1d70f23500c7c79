// ratelimit — ограничение частоты запросов по ключу (fixed window) поверх Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// INCR + PEXPIRE атомарно: окно стартует с первого запроса.
const script = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
if current > tonumber(ARGV[2]) then
  return 0
end
return 1
`

// defaultTimeout — верхняя граница на один вызов Redis.
const defaultTimeout = 250 * time.Millisecond

// RedisLimiter допускает не более limit запросов на ключ за window.
type RedisLimiter struct {
	rdb     *redis.Client
	script  *redis.Script
	prefix  string
	limit   int
	window  time.Duration
	timeout time.Duration
}

// NewRedisLimiter создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Пустой prefix заменяется на "rl:".
func NewRedisLimiter(redisURL, prefix string, limit int, window time.Duration) (*RedisLimiter, error) {
	const op = "ratelimit.NewRedisLimiter"

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return newWithClient(rdb, prefix, limit, window), nil
}

func newWithClient(rdb *redis.Client, prefix string, limit int, window time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "rl:"
	}

	return &RedisLimiter{
		rdb:     rdb,
		script:  redis.NewScript(script),
		prefix:  prefix,
		limit:   limit,
		window:  window,
		timeout: defaultTimeout,
	}
}

// Allow учитывает запрос по ключу и сообщает, укладывается ли он в лимит.
// Ошибка Redis возвращается вызывающему: решение fail-open принимает мидлвар.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	const op = "ratelimit.RedisLimiter.Allow"

	if key == "" || l.limit <= 0 || l.window <= 0 {
		return true, nil
	}

	ttl := l.window.Milliseconds()
	if ttl <= 0 {
		ttl = 1
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	allowed, err := l.script.Run(ctx, l.rdb, []string{l.prefix + key}, ttl, l.limit).Int64()
	if err != nil {
		return true, fmt.Errorf("%s: %w", op, err)
	}

	return allowed == 1, nil
}

// Close закрывает клиент Redis.
func (l *RedisLimiter) Close() error {
	return l.rdb.Close()
}
