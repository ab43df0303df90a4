// Package redisstore backs store.Storage with Redis so several postpilot
// instances can share schedules, counters and dispatch claims.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"postpilot/internal/store"
)

const (
	defaultPrefix     = "postpilot:"
	scanBatch         = 200
	maxUpdateAttempts = 16
)

// Store implements store.Storage over a Redis client. Every key is stored as
// a string under prefix.
type Store struct {
	client *redis.Client
	prefix string
	owned  bool
}

// Open connects to url and verifies the server answers PING.
func Open(ctx context.Context, url, prefix string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	s := New(client, prefix)
	s.owned = true
	return s, nil
}

// New wraps an existing client. Close leaves a borrowed client open.
func New(client *redis.Client, prefix string) *Store {
	if strings.TrimSpace(prefix) == "" {
		prefix = defaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) Describe() string {
	return fmt.Sprintf("redis %s (prefix %q)", s.client.Options().Addr, s.prefix)
}

func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) key(key string) string { return s.prefix + key }

func (s *Store) Get(ctx context.Context, key string) (json.RawMessage, error) {
	value, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return json.RawMessage(value), nil
}

func (s *Store) Set(ctx context.Context, key string, value json.RawMessage) error {
	if err := store.ValidateKey(key); err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(key), []byte(value), 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]store.Entry, error) {
	pattern := escapeGlob(s.key(prefix)) + "*"
	var keys []string
	iter := s.client.Scan(ctx, 0, pattern, scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan %s: %w", prefix, err)
	}
	sort.Strings(keys)
	entries := make([]store.Entry, 0, len(keys))
	if len(keys) == 0 {
		return entries, nil
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget %s: %w", prefix, err)
	}
	for i, raw := range values {
		str, ok := raw.(string)
		if !ok {
			// Deleted between SCAN and MGET.
			continue
		}
		entries = append(entries, store.Entry{Key: strings.TrimPrefix(keys[i], s.prefix), Value: json.RawMessage(str)})
	}
	return entries, nil
}

// Update uses WATCH/MULTI so a concurrent writer forces a retry.
func (s *Store) Update(ctx context.Context, key string, fn store.UpdateFunc) error {
	if err := store.ValidateKey(key); err != nil {
		return err
	}
	fullKey := s.key(key)
	var fnErr error
	txf := func(tx *redis.Tx) error {
		fnErr = nil
		var (
			current json.RawMessage
			exists  bool
		)
		value, err := tx.Get(ctx, fullKey).Bytes()
		switch {
		case err == nil:
			current = json.RawMessage(value)
			exists = true
		case errors.Is(err, redis.Nil):
		default:
			return err
		}
		next, err := fn(current, exists)
		if err != nil {
			fnErr = err
			return nil
		}
		if next == nil {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, fullKey, []byte(next), 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, fullKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("redis update %s: %w", key, err)
		}
		return fnErr
	}
	return fmt.Errorf("redis update %s: too much contention", key)
}

func escapeGlob(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)
	return replacer.Replace(value)
}
