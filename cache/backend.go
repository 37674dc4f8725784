package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Backend.Get when the key does not exist.
var ErrMiss = errors.New("cache miss")

// ErrBackendUnavailable wraps transport and command failures from a Backend.
var ErrBackendUnavailable = errors.New("cache backend unavailable")

// Backend is the contract a cache client must implement. Implementations return
// ErrMiss for absent keys and wrap everything else in ErrBackendUnavailable.
type Backend interface {
	Ping(ctx context.Context) error
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) (int64, error)
	Exists(ctx context.Context, key string) (bool, error)
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error)
}

// RedisOptions configures the client built by NewRedisClient.
type RedisOptions struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
}

// NewRedisClient builds a go-redis client tuned for a degradable cache: short
// timeouts, no command retries, and a bounded pool. go-redis has no offline
// command queue, so a dead server fails each call fast instead of buffering.
func NewRedisClient(o RedisOptions) *redis.Client {
	if o.DialTimeout <= 0 {
		o.DialTimeout = 2 * time.Second
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = time.Second
	}
	if o.PoolTimeout <= 0 {
		o.PoolTimeout = time.Second
	}
	if o.PoolSize <= 0 {
		o.PoolSize = 32
	}

	return redis.NewClient(&redis.Options{
		Addr:                  o.Addr,
		Password:              o.Password,
		DB:                    o.DB,
		PoolSize:              o.PoolSize,
		DialTimeout:           o.DialTimeout,
		ReadTimeout:           o.ReadTimeout,
		WriteTimeout:          o.WriteTimeout,
		PoolTimeout:           o.PoolTimeout,
		ContextTimeoutEnabled: true,
		MaxRetries:            -1,
	})
}

// RedisBackend adapts a go-redis client to Backend.
type RedisBackend struct {
	redis redis.UniversalClient
}

// NewRedisBackend wraps client. The caller keeps ownership of the client.
func NewRedisBackend(client redis.UniversalClient) *RedisBackend {
	return &RedisBackend{redis: client}
}

func (b *RedisBackend) Ping(ctx context.Context) error {
	if err := b.redis.Ping(ctx).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := b.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, unavailable(err)
	}
	return data, nil
}

func (b *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := b.redis.Set(ctx, key, value, ttl).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (b *RedisBackend) Delete(ctx context.Context, keys ...string) (int64, error) {
	n, err := b.redis.Del(ctx, keys...).Result()
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}

func (b *RedisBackend) Exists(ctx context.Context, key string) (bool, error) {
	n, err := b.redis.Exists(ctx, key).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return n > 0, nil
}

func (b *RedisBackend) Incr(ctx context.Context, key string) (int64, error) {
	n, err := b.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}

func (b *RedisBackend) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := b.redis.Expire(ctx, key, ttl).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return ok, nil
}

func (b *RedisBackend) Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	keys, next, err := b.redis.Scan(ctx, cursor, match, count).Result()
	if err != nil {
		return nil, 0, unavailable(err)
	}
	return keys, next, nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
}
