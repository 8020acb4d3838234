// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

package scores

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"codeberg.org/synthoma/reader/config"
)

const pingTimeout = 5 * time.Second

// RedisBackend keeps each session's counts in a hash.
type RedisBackend struct {
	Client redis.UniversalClient

	// KeyPrefix is prepended to the session ID.
	KeyPrefix string

	// TTL refreshes the hash expiry on every write. Zero keeps keys forever.
	TTL time.Duration
}

// NewRedisBackend connects using config.Global.Redis and checks the connection.
func NewRedisBackend() (*RedisBackend, error) {
	cfg := config.Global.Redis

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Addr, err)
	}

	return &RedisBackend{
		Client:    client,
		KeyPrefix: cfg.KeyPrefix,
		TTL:       config.Global.Session.TTL,
	}, nil
}

// Key returns the hash key for session.
func (b *RedisBackend) Key(session string) string {
	return b.KeyPrefix + session
}

// Increment bumps every tag in one pipeline.
func (b *RedisBackend) Increment(ctx context.Context, session string, tags []string) error {
	key := b.Key(session)

	pipe := b.Client.TxPipeline()
	for _, tag := range tags {
		pipe.HIncrBy(ctx, key, tag, 1)
	}

	if b.TTL > 0 {
		pipe.Expire(ctx, key, b.TTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to increment scores in redis: %w", err)
	}

	return nil
}

// Load reads the hash for session. A missing key yields an empty map.
func (b *RedisBackend) Load(ctx context.Context, session string) (map[string]int, error) {
	raw, err := b.Client.HGetAll(ctx, b.Key(session)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load scores from redis: %w", err)
	}

	counts := make(map[string]int, len(raw))

	for tag, value := range raw {
		n, err := strconv.Atoi(value)
		if err != nil {
			continue
		}

		counts[tag] = n
	}

	return counts, nil
}

// Close releases the client.
func (b *RedisBackend) Close() error {
	return b.Client.Close()
}
