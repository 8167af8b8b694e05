// Package redisstore implements a Store backed by redis, for hosts that
// share prefill values across processes. Entries follow the same layout as
// the browser backends: "<prefix>:<format>:<key>" holding JSON.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-redis/redis/v8"

	"github.com/mesh-intelligence/formprefill/pkg/types"
)

const defaultTimeout = 100 * time.Millisecond

// Store is a types.Store over a redis client.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger log.Logger
}

// New creates a Store for cfg. Entries expire after cfg.TTL; zero keeps
// them forever.
func New(cfg types.RedisConfig, prefix string, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		DB:           cfg.DB,
		DialTimeout:  defaultTimeout,
		ReadTimeout:  defaultTimeout,
		WriteTimeout: defaultTimeout,
	})
	return &Store{client: client, prefix: prefix, ttl: cfg.TTL, logger: logger}
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

// SetItems writes the JSON encoding of value under every key in one pipeline.
func (s *Store) SetItems(ctx context.Context, keys []string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode value: %w", err)
	}
	_, err = s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, key := range keys {
			p.Set(ctx, s.key(key), data, s.ttl)
		}
		return nil
	})
	return err
}

// RemoveItems deletes every key.
func (s *Store) RemoveItems(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = s.key(key)
	}
	return s.client.Del(ctx, full...).Err()
}

// GetFirst fetches all keys with MGET and returns the first one present.
func (s *Store) GetFirst(ctx context.Context, keys []string) (any, error) {
	notFound := fmt.Errorf("%w in redis: %s", types.ErrNotFound, strings.Join(keys, ", "))
	if len(keys) == 0 {
		return nil, notFound
	}
	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = s.key(key)
	}
	vals, err := s.client.MGet(ctx, full...).Result()
	if err != nil {
		return nil, err
	}
	for i, raw := range vals {
		str, ok := raw.(string)
		if !ok {
			continue
		}
		var v any
		if err := json.Unmarshal([]byte(str), &v); err != nil {
			level.Warn(s.logger).Log("msg", "undecodable redis entry", "key", full[i], "err", err)
			return nil, fmt.Errorf("decode %q: %w", keys[i], err)
		}
		return v, nil
	}
	return nil, notFound
}

func (s *Store) key(key string) string {
	return s.prefix + ":" + key
}

var _ types.Store = (*Store)(nil)
