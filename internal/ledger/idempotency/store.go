// Package idempotency replays the stored response of a write request that is
// retried with the same Idempotency-Key.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tair/retail-ledger/pkg/logger"
)

// Record is a stored response. A zero Status marks a request still in flight.
type Record struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Pending reports whether the original request has not finished yet
func (r *Record) Pending() bool {
	return r.Status == 0
}

// Store keeps idempotency records.
//
// Begin reserves key. It returns nil when the caller now owns the key, or the
// existing record when another request already claimed it.
type Store interface {
	Begin(ctx context.Context, key string, ttl time.Duration) (*Record, error)
	Complete(ctx context.Context, key string, record Record, ttl time.Duration) error
	Abort(ctx context.Context, key string) error
}

// NoopStore never remembers anything, so every request runs
type NoopStore struct{}

func (NoopStore) Begin(context.Context, string, time.Duration) (*Record, error) { return nil, nil }
func (NoopStore) Complete(context.Context, string, Record, time.Duration) error { return nil }
func (NoopStore) Abort(context.Context, string) error { return nil }

// RedisStore keeps records in Redis under a key prefix
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed store
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "idempotency:"}
}

func (s *RedisStore) Begin(ctx context.Context, key string, ttl time.Duration) (*Record, error) {
	pending, err := json.Marshal(Record{})
	if err != nil {
		return nil, err
	}

	ok, err := s.client.SetNX(ctx, s.prefix+key, pending, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to reserve idempotency key: %w", err)
	}
	if ok {
		return nil, nil
	}

	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; report in flight and let the client retry
		return &Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read idempotency key: %w", err)
	}

	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("failed to decode idempotency record: %w", err)
	}
	return &record, nil
}

func (s *RedisStore) Complete(ctx context.Context, key string, record Record, ttl time.Duration) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.prefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store idempotency record: %w", err)
	}
	logger.Debug(ctx).Str("key", key).Int("status", record.Status).Dur("ttl", ttl).Msg("Idempotency record stored")
	return nil
}

func (s *RedisStore) Abort(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}
