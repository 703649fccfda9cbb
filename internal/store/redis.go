package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Redis keeps a slot as a JSON blob under one key with no expiry.
type Redis[T any] struct {
	client redis.Cmdable
	key    string
	logger zerolog.Logger
}

var _ Slot[struct{}] = (*Redis[struct{}])(nil)

// NewRedis creates a Redis-backed slot.
func NewRedis[T any](client redis.Cmdable, key string, logger zerolog.Logger) *Redis[T] {
	return &Redis[T]{
		client: client,
		key:    key,
		logger: logger.With().Str("component", "redis_slot").Str("key", key).Logger(),
	}
}

func (r *Redis[T]) Save(ctx context.Context, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", r.key, err)
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("save %s: %w", r.key, err)
	}
	return nil
}

func (r *Redis[T]) Load(ctx context.Context) (T, bool) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn().Err(err).Msg("slot read failed")
		}
		var zero T
		return zero, false
	}
	return decode[T](data, r.logger)
}

func (r *Redis[T]) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("clear %s: %w", r.key, err)
	}
	return nil
}
