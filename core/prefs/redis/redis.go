// Package redis stores preferences in Redis so several devices can share
// them.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/koscakluka/ema-guide/core/prefs"
	"github.com/redis/go-redis/v9"
)

type KV struct {
	client *redis.Client
	prefix string
}

type Option func(*KV)

// WithPrefix namespaces keys. Default is "ema-guide".
func WithPrefix(prefix string) Option {
	return func(kv *KV) { kv.prefix = prefix }
}

func New(client *redis.Client, opts ...Option) *KV {
	kv := &KV{client: client, prefix: "ema-guide"}
	for _, opt := range opts {
		opt(kv)
	}
	return kv
}

func (kv *KV) Get(ctx context.Context, key string) (string, error) {
	value, err := kv.client.Get(ctx, kv.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", prefs.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get failed: %w", err)
	}
	return value, nil
}

func (kv *KV) Set(ctx context.Context, key, value string) error {
	if err := kv.client.Set(ctx, kv.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (kv *KV) key(key string) string {
	if kv.prefix == "" {
		return key
	}
	return kv.prefix + ":" + key
}
