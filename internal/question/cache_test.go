package question

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingGenerator numbers every quiz it produces so tests can tell fresh from cached ones.
type countingGenerator struct {
	mu    sync.Mutex
	calls int
}

func (g *countingGenerator) Generate(_ context.Context, req Request) (Quiz, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	quiz := Normalize(sampleQuiz(req.Count), req)
	quiz.ID = fmt.Sprintf("q-%d", g.calls)
	return quiz, nil
}

func newCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, "test", time.Minute), mr
}

func TestCacheTakeConsumes(t *testing.T) {
	ctx := context.Background()
	cache, mr := newCache(t)
	req := Request{Category: "science", Difficulty: "", Count: 10}

	_, ok, err := cache.Take(ctx, req)
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := cache.Put(ctx, req, sampleQuiz(2))
	require.NoError(t, err)
	assert.True(t, stored)
	assert.True(t, mr.Exists("test:prefetch:science:mixed:10"))

	stored, err = cache.Put(ctx, req, sampleQuiz(3))
	require.NoError(t, err)
	assert.False(t, stored, "a waiting quiz is not replaced")

	quiz, ok, err := cache.Take(ctx, Request{Category: "Science", Difficulty: "mixed", Count: 10})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, quiz.Questions, 2)

	_, ok, err = cache.Take(ctx, req)
	require.NoError(t, err)
	assert.False(t, ok, "quiz is served once")
}

func TestCacheCorruptEntry(t *testing.T) {
	cache, mr := newCache(t)
	require.NoError(t, mr.Set("test:prefetch:mixed:mixed:10", "{broken"))

	_, ok, err := cache.Take(context.Background(), Request{Count: 10})
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestPrefetcherServesRefilledQuiz(t *testing.T) {
	cache, mr := newCache(t)
	source := &countingGenerator{}
	p := NewPrefetcher(source, cache, ServiceOptions{Count: 4}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	quiz, err := p.Generate(ctx, Request{Category: "History"})
	require.NoError(t, err)
	assert.Equal(t, "q-1", quiz.ID, "cold cache asks the source")
	assert.Len(t, quiz.Questions, 4)

	require.Eventually(t, func() bool {
		return mr.Exists("test:prefetch:history:mixed:4")
	}, time.Second, 10*time.Millisecond)

	quiz, err = p.Generate(ctx, Request{Category: "history"})
	require.NoError(t, err)
	assert.Equal(t, "q-2", quiz.ID, "warm cache serves the refill")

	cancel()
	assert.NoError(t, <-done)
}

func TestPrefetcherEnqueueNeverBlocks(t *testing.T) {
	cache, _ := newCache(t)
	p := NewPrefetcher(&countingGenerator{}, cache, ServiceOptions{}, zerolog.Nop())

	for i := 0; i < prefetchQueueSize; i++ {
		require.True(t, p.Enqueue(Request{}))
	}
	assert.False(t, p.Enqueue(Request{}))
}
