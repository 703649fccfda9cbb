package question

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const prefetchQueueSize = 16

// Prefetcher serves quizzes from the cache when one is ready and refills it in the background so
// the next request for the same filters skips the generator round trip.
type Prefetcher struct {
	source  Generator
	cache   *Cache
	queue   chan Request
	count   int
	timeout time.Duration
	logger  zerolog.Logger
}

var _ Generator = (*Prefetcher)(nil)

func NewPrefetcher(source Generator, cache *Cache, opts ServiceOptions, logger zerolog.Logger) *Prefetcher {
	count := opts.Count
	if count <= 0 {
		count = 10
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Prefetcher{
		source:  source,
		cache:   cache,
		queue:   make(chan Request, prefetchQueueSize),
		count:   count,
		timeout: timeout,
		logger:  logger.With().Str("component", "question_prefetcher").Logger(),
	}
}

// Generate returns a cached quiz when available, otherwise asks the source directly. Either way
// a refill for the same filters is queued.
func (p *Prefetcher) Generate(ctx context.Context, req Request) (Quiz, error) {
	req = p.normalize(req)
	defer p.Enqueue(req)

	quiz, ok, err := p.cache.Take(ctx, req)
	if err != nil {
		p.logger.Warn().Err(err).Msg("prefetch cache read failed")
	}
	if ok && Validate(quiz) == nil {
		p.logger.Debug().Str("category", req.Category).Str("difficulty", req.Difficulty).Msg("served prefetched quiz")
		return quiz, nil
	}
	return p.source.Generate(ctx, req)
}

// Enqueue schedules a refill. It never blocks; requests are dropped when the queue is full.
func (p *Prefetcher) Enqueue(req Request) bool {
	select {
	case p.queue <- p.normalize(req):
		return true
	default:
		return false
	}
}

// Run drains the refill queue until ctx is cancelled.
func (p *Prefetcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("question prefetcher stopping")
			return nil
		case req := <-p.queue:
			p.handle(ctx, req)
		}
	}
}

func (p *Prefetcher) handle(ctx context.Context, req Request) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	quiz, err := p.source.Generate(ctx, req)
	if err != nil {
		p.logger.Warn().Err(err).Str("category", req.Category).Msg("prefetch failed")
		return
	}
	if _, err := p.cache.Put(ctx, req, quiz); err != nil {
		p.logger.Error().Err(err).Msg("prefetch cache write failed")
	}
}

func (p *Prefetcher) normalize(req Request) Request {
	req.Category = NormalizeFilter(req.Category)
	req.Difficulty = NormalizeFilter(req.Difficulty)
	if req.Count <= 0 {
		req.Count = p.count
	}
	return req
}
