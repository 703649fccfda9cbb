package history

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/infinite-quiz/internal/store"
)

// DefaultLimit is the number of completed sessions retained.
const DefaultLimit = 10

// Entry summarises one completed session.
type Entry struct {
	ID          string    `json:"id"`
	CompletedAt time.Time `json:"completed_at"`
	Score       int       `json:"score"`
	Total       int       `json:"total"`
	Category    string    `json:"category"`
}

// Tracker keeps a bounded, newest-first log of completed sessions.
type Tracker struct {
	mu     sync.Mutex
	slot   store.Slot[[]Entry]
	limit  int
	logger zerolog.Logger
}

func NewTracker(slot store.Slot[[]Entry], limit int, logger zerolog.Logger) *Tracker {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Tracker{
		slot:   slot,
		limit:  limit,
		logger: logger.With().Str("component", "history").Logger(),
	}
}

// Record prepends entry and persists immediately. An entry whose ID matches the current head is
// ignored, so recording the same completion twice leaves history unchanged. The bool reports
// whether the entry was inserted.
func (t *Tracker) Record(ctx context.Context, entry Entry) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	current := t.load(ctx)
	if len(current) > 0 && current[0].ID == entry.ID {
		return false, nil
	}

	n := len(current) + 1
	if n > t.limit {
		n = t.limit
	}
	next := make([]Entry, 0, n)
	next = append(next, entry)
	next = append(next, current[:n-1]...)

	if err := t.slot.Save(ctx, next); err != nil {
		return true, fmt.Errorf("persist history: %w", err)
	}
	t.logger.Debug().Str("entry_id", entry.ID).Int("score", entry.Score).Int("size", len(next)).Msg("history recorded")
	return true, nil
}

// List returns the log, newest first. A missing or unreadable slot yields an empty log.
func (t *Tracker) List(ctx context.Context) []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.load(ctx)
}

func (t *Tracker) load(ctx context.Context) []Entry {
	entries, ok := t.slot.Load(ctx)
	if !ok || entries == nil {
		return []Entry{}
	}
	if len(entries) > t.limit {
		entries = entries[:t.limit]
	}
	return entries
}
