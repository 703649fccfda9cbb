package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
)

// Memory holds a slot in process memory. Values round-trip through JSON so callers never share
// state with the stored copy. Used by the `memory` store driver and by tests.
type Memory[T any] struct {
	mu     sync.Mutex
	data   []byte
	logger zerolog.Logger
}

var _ Slot[struct{}] = (*Memory[struct{}])(nil)

func NewMemory[T any](logger zerolog.Logger) *Memory[T] {
	return &Memory[T]{logger: logger}
}

func (m *Memory[T]) Save(_ context.Context, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data = data
	m.mu.Unlock()
	return nil
}

func (m *Memory[T]) Load(_ context.Context) (T, bool) {
	m.mu.Lock()
	data := m.data
	m.mu.Unlock()
	return decode[T](data, m.logger)
}

func (m *Memory[T]) Clear(_ context.Context) error {
	m.mu.Lock()
	m.data = nil
	m.mu.Unlock()
	return nil
}

// PutRaw stores bytes as-is, e.g. a partially written payload.
func (m *Memory[T]) PutRaw(data []byte) {
	m.mu.Lock()
	m.data = append([]byte(nil), data...)
	m.mu.Unlock()
}

// Raw returns a copy of the stored bytes.
func (m *Memory[T]) Raw() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...)
}
