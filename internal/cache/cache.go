// Package cache stores rendered analysis responses in Redis. Entries are
// keyed by a hash of the request and a generation counter; bumping the
// generation on every store write orphans all previous entries, which then
// age out through their TTL.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang/snappy"
)

// Store is the cache contract the services depend on. Callers treat every
// error as a miss. Lookup returns the key it resolved under the generation
// current at lookup time; Save writes to that key, so a write that bumps the
// generation in between leaves the new generation untouched. An empty key
// means nothing should be saved.
type Store interface {
	Lookup(ctx context.Context, request, dest interface{}) (hit bool, key string, err error)
	Save(ctx context.Context, key string, value interface{}) error
	Invalidate(ctx context.Context) error
}

// Options configures a Redis-backed store
type Options struct {
	Addr      string
	Password  string
	DB        int
	TTL       time.Duration
	KeyPrefix string
}

// Dial connects to Redis and verifies the connection
func Dial(ctx context.Context, opts Options) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
		IdleTimeout:  5 * time.Minute,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return rdb, nil
}

// RedisStore implements Store on a Redis client
type RedisStore struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisStore wraps client. An empty prefix defaults to "analysis:".
func NewRedisStore(client redis.Cmdable, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "analysis:"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) generationKey() string {
	return s.prefix + "generation"
}

func (s *RedisStore) generation(ctx context.Context) (int64, error) {
	gen, err := s.client.Get(ctx, s.generationKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get generation: %w", err)
	}
	return gen, nil
}

// Key derives the entry key for request under the current generation
func (s *RedisStore) Key(ctx context.Context, request interface{}) (string, error) {
	gen, err := s.generation(ctx)
	if err != nil {
		return "", err
	}
	return s.keyFor(gen, request)
}

func (s *RedisStore) keyFor(gen int64, request interface{}) (string, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("marshal cache key: %w", err)
	}
	sum := sha256.Sum256(body)
	return fmt.Sprintf("%s%d:%s", s.prefix, gen, hex.EncodeToString(sum[:])), nil
}

// Lookup decodes the cached value for request into dest
func (s *RedisStore) Lookup(ctx context.Context, request, dest interface{}) (bool, string, error) {
	key, err := s.Key(ctx, request)
	if err != nil {
		return false, "", err
	}

	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, key, nil
	}
	if err != nil {
		return false, key, fmt.Errorf("redis get: %w", err)
	}

	body, err := snappy.Decode(nil, raw)
	if err != nil {
		return false, key, fmt.Errorf("decompress cache entry: %w", err)
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return false, key, fmt.Errorf("unmarshal cache entry: %w", err)
	}
	return true, key, nil
}

// Save stores value under a key returned by Lookup with the configured TTL
func (s *RedisStore) Save(ctx context.Context, key string, value interface{}) error {
	if key == "" {
		return nil
	}

	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := s.client.Set(ctx, key, snappy.Encode(nil, body), s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Invalidate bumps the generation so every existing entry stops matching
func (s *RedisStore) Invalidate(ctx context.Context) error {
	if err := s.client.Incr(ctx, s.generationKey()).Err(); err != nil {
		return fmt.Errorf("redis incr generation: %w", err)
	}
	return nil
}

// NoopStore always misses
type NoopStore struct{}

func (NoopStore) Lookup(context.Context, interface{}, interface{}) (bool, string, error) {
	return false, "", nil
}
func (NoopStore) Save(context.Context, string, interface{}) error { return nil }
func (NoopStore) Invalidate(context.Context) error { return nil }
