package ratelimit

import (
	"context"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// incrScript bumps the counter and starts its expiry on the first hit of a
// window, atomically.
var incrScript = backend.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// RedisCounter is a Counter shared by every process pointing at the same
// Redis. Keys are laid out as prefix:w<seconds>:<key>.
type RedisCounter struct {
	client *backend.Client
	prefix string
}

// RedisOption configures a RedisCounter
type RedisOption func(*RedisCounter)

// WithPrefix sets the key prefix
func WithPrefix(prefix string) RedisOption {
	return func(r *RedisCounter) {
		r.prefix = prefix
	}
}

// NewRedisCounter creates a Redis client and counter
func NewRedisCounter(address, password string, db int, opts ...RedisOption) *RedisCounter {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewRedisCounterFromClient(client, opts...)
}

// NewRedisCounterFromClient creates a counter on an existing client
func NewRedisCounterFromClient(client *backend.Client, opts ...RedisOption) *RedisCounter {
	r := &RedisCounter{
		client: client,
		prefix: "twin:ratelimit",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RedisCounter) Increment(ctx context.Context, window time.Duration, key string) (int64, error) {
	n, err := incrScript.Run(ctx, r.client, []string{r.key(window, key)}, window.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("redis increment: %w", err)
	}
	return n, nil
}

// Ping checks connectivity
func (r *RedisCounter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the underlying client
func (r *RedisCounter) Close() error {
	return r.client.Close()
}

func (r *RedisCounter) key(window time.Duration, key string) string {
	return fmt.Sprintf("%s:w%d:%s", r.prefix, int64(window/time.Second), key)
}
