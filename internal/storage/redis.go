package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/developingchet/counterd/internal/counter"
)

var _ Store = (*RedisStore)(nil)

const redisKeyPrefix = "counter:"

// incrExisting increments KEYS[1] only when it already exists. -1 marks a
// missing key; stored values are never negative.
var incrExisting = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return -1
end
return redis.call("INCR", KEYS[1])
`)

// RedisOptions configures the connection used by RedisStore.
type RedisOptions struct {
	Addrs    []string
	Username string
	Password string
	DB       int
}

// RedisStore keeps each counter under its own key. Atomicity comes from
// single-command operations (SETNX, DEL) and a server-side script for
// increment.
type RedisStore struct {
	client redis.UniversalClient
}

// OpenRedis connects to Redis and verifies the connection with PING.
func OpenRedis(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    opts.Addrs,
		Username: opts.Username,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("storage: failed to reach redis: %w", err)
	}
	return NewRedisStore(client), nil
}

// NewRedisStore wraps an existing client. The store takes ownership and
// closes it on Close.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func redisKey(name string) string { return redisKeyPrefix + name }

func (s *RedisStore) Create(ctx context.Context, name string) (int64, error) {
	ok, err := s.client.SetNX(ctx, redisKey(name), 0, 0).Result()
	if err != nil {
		return 0, fmt.Errorf("storage: redis setnx: %w", err)
	}
	if !ok {
		return 0, counter.ErrConflict
	}
	return 0, nil
}

func (s *RedisStore) Increment(ctx context.Context, name string) (int64, error) {
	v, err := incrExisting.Run(ctx, s.client, []string{redisKey(name)}).Int64()
	if err != nil {
		return 0, fmt.Errorf("storage: redis incr: %w", err)
	}
	if v < 0 {
		return 0, counter.ErrNotFound
	}
	return v, nil
}

func (s *RedisStore) Get(ctx context.Context, name string) (int64, error) {
	v, err := s.client.Get(ctx, redisKey(name)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, counter.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("storage: redis get: %w", err)
	}
	return v, nil
}

func (s *RedisStore) Delete(ctx context.Context, name string) error {
	n, err := s.client.Del(ctx, redisKey(name)).Result()
	if err != nil {
		return fmt.Errorf("storage: redis del: %w", err)
	}
	if n == 0 {
		return counter.ErrNotFound
	}
	return nil
}

// Len counts keys under the counter prefix with SCAN so large keyspaces do
// not block the server.
func (s *RedisStore) Len(ctx context.Context) (int, error) {
	pattern := escapeGlob(redisKeyPrefix) + "*"
	n := 0
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("storage: redis scan: %w", err)
	}
	return n, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) DBPath() string { return "" }

func (s *RedisStore) Close() error { return s.client.Close() }

// escapeGlob quotes the characters Redis treats specially in MATCH patterns.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
