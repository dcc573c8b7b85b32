package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "travel:session:"

// RedisKV stores entries as plain Redis strings under a namespace prefix.
type RedisKV struct {
	client *redis.Client
	prefix string
}

// NewRedisKV builds a store scoped to namespace. The client stays owned by the caller.
func NewRedisKV(client *redis.Client, namespace string) *RedisKV {
	return &RedisKV{client: client, prefix: redisKeyPrefix + namespace + ":"}
}

func (r *RedisKV) key(name string) string {
	return r.prefix + name
}

func (r *RedisKV) Get(ctx context.Context, keys ...string) (map[string]string, error) {
	if len(keys) == 0 {
		return map[string]string{}, nil
	}
	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = r.key(key)
	}

	vals, err := r.client.MGet(ctx, full...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}

	out := make(map[string]string, len(keys))
	for i, val := range vals {
		if s, ok := val.(string); ok {
			out[keys[i]] = s
		}
	}
	return out, nil
}

// Set writes all entries inside MULTI/EXEC.
func (r *RedisKV) Set(ctx context.Context, entries map[string]string) error {
	if len(entries) == 0 {
		return nil
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, val := range entries {
			pipe.Set(ctx, r.key(key), val, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *RedisKV) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = r.key(key)
	}
	if err := r.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (r *RedisKV) Close() error { return nil }
