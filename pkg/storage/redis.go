package storage

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores snapshots as plain string values in Redis.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// OpenRedisBackend connects to the Redis instance at url and checks that it
// answers.
func OpenRedisBackend(ctx context.Context, url, prefix string) (*RedisBackend, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("malformed redis url %q: %w", url, err)
	}
	client := redis.NewClient(opts)
	if err = client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("could not connect to redis at %q: %w", url, err)
	}
	return NewRedisBackend(client, prefix), nil
}

// NewRedisBackend wraps an existing client.
func NewRedisBackend(client *redis.Client, prefix string) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix}
}

func (b *RedisBackend) Get(ctx context.Context, id uint32) ([]byte, error) {
	snapshot, err := b.client.Get(ctx, championKey(b.prefix, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get champion %d: %w", id, err)
	}
	return snapshot, nil
}

func (b *RedisBackend) Put(ctx context.Context, id uint32, snapshot []byte) error {
	return b.client.Set(ctx, championKey(b.prefix, id), snapshot, 0).Err()
}

func (b *RedisBackend) List(ctx context.Context) ([]uint32, error) {
	var ids []uint32
	iter := b.client.Scan(ctx, 0, b.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if id, ok := parseChampionKey(b.prefix, iter.Val()); ok {
			ids = append(ids, id)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}
