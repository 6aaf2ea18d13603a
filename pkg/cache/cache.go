package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

type Redis struct {
	client *redis.Client
	ctx    context.Context
}

func New(redisURL string) *Redis {
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatal("invalid redis url:", err)
	}

	opt.PoolSize = 10
	opt.MinIdleConns = 3

	client := redis.NewClient(opt)
	ctx := context.Background()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("redis ping failed:", err)
	}

	return &Redis{client: client, ctx: ctx}
}

// NewWithClient wraps an existing client. Used by tests.
func NewWithClient(client *redis.Client) *Redis {
	return &Redis{client: client, ctx: context.Background()}
}

// Get retrieves JSON-encoded value from cache
func (r *Redis) Get(key string, dest interface{}) bool {
	val, err := r.client.Get(r.ctx, key).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(val), dest) == nil
}

// Set stores JSON-encoded value in cache
func (r *Redis) Set(key string, value interface{}, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	r.client.Set(r.ctx, key, data, ttl)
}

func (r *Redis) Del(keys ...string) {
	r.client.Del(r.ctx, keys...)
}

// DelPattern deletes keys matching a pattern in batches to look easy on memory
func (r *Redis) DelPattern(pattern string) {
	iter := r.client.Scan(r.ctx, 0, pattern, 0).Iterator()
	const batchSize = 100

	pipe := r.client.Pipeline()
	count := 0

	for iter.Next(r.ctx) {
		pipe.Del(r.ctx, iter.Val())
		count++

		if count >= batchSize {
			pipe.Exec(r.ctx)
			count = 0
		}
	}

	if count > 0 {
		pipe.Exec(r.ctx)
	}
}

func (r *Redis) Close() {
	r.client.Close()
}

// CounterStorage adapts the redis client to fiber.Storage so rate-limit
// counters live in a shared store instead of per-process memory. Keys are
// namespaced to keep them apart from cached payloads.
type CounterStorage struct {
	client *redis.Client
	ctx    context.Context
}

func (r *Redis) Counters() *CounterStorage {
	return &CounterStorage{client: r.client, ctx: r.ctx}
}

func (s *CounterStorage) key(k string) string {
	return "ratelimit:" + k
}

func (s *CounterStorage) Get(key string) ([]byte, error) {
	val, err := s.client.Get(s.ctx, s.key(key)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return val, err
}

func (s *CounterStorage) Set(key string, val []byte, exp time.Duration) error {
	return s.client.Set(s.ctx, s.key(key), val, exp).Err()
}

func (s *CounterStorage) Delete(key string) error {
	return s.client.Del(s.ctx, s.key(key)).Err()
}

func (s *CounterStorage) Reset() error {
	iter := s.client.Scan(s.ctx, 0, "ratelimit:*", 0).Iterator()
	for iter.Next(s.ctx) {
		if err := s.client.Del(s.ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (s *CounterStorage) Close() error {
	// Lifetime of the underlying client is owned by Redis.Close.
	return nil
}
