package store

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
)

// Slot is a single durable value. Load never fails: a missing or unreadable payload is reported
// as absent so a corrupt snapshot cannot block a fresh start.
type Slot[T any] interface {
	Save(ctx context.Context, v T) error
	Load(ctx context.Context) (T, bool)
	Clear(ctx context.Context) error
}

func decode[T any](data []byte, logger zerolog.Logger) (T, bool) {
	var v T
	if len(data) == 0 {
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		logger.Warn().Err(err).Int("bytes", len(data)).Msg("discarding unreadable slot payload")
		var zero T
		return zero, false
	}
	return v, true
}
