package question

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ServiceOptions configures the generator chain.
type ServiceOptions struct {
	Count   int
	Timeout time.Duration
}

// Service asks generators in priority order (AI first, then the trivia fallbacks) and returns the
// first well-formed quiz.
type Service struct {
	chain   []Generator
	count   int
	timeout time.Duration
	logger  zerolog.Logger
}

var _ Generator = (*Service)(nil)

func NewService(chain []Generator, opts ServiceOptions, logger zerolog.Logger) *Service {
	count := opts.Count
	if count <= 0 {
		count = 10
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Service{
		chain:   chain,
		count:   count,
		timeout: timeout,
		logger:  logger.With().Str("component", "question_service").Logger(),
	}
}

// Generate returns a normalized, validated quiz or the last generator error.
func (s *Service) Generate(ctx context.Context, req Request) (Quiz, error) {
	req.Category = NormalizeFilter(req.Category)
	req.Difficulty = NormalizeFilter(req.Difficulty)
	if req.Count <= 0 {
		req.Count = s.count
	}

	var lastErr error = ErrGeneratorUnavailable
	for _, gen := range s.chain {
		if gen == nil {
			continue
		}
		quiz, err := s.try(ctx, gen, req)
		if err == nil {
			return quiz, nil
		}
		lastErr = err
		if errors.Is(ctx.Err(), context.Canceled) {
			break
		}
		s.logger.Warn().Err(err).
			Str("category", req.Category).
			Str("difficulty", req.Difficulty).
			Msg("question generator failed")
	}
	return Quiz{}, fmt.Errorf("generate quiz: %w", lastErr)
}

func (s *Service) try(ctx context.Context, gen Generator, req Request) (Quiz, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	quiz, err := gen.Generate(ctx, req)
	if err != nil {
		return Quiz{}, err
	}
	quiz = Normalize(quiz, req)
	if err := Validate(quiz); err != nil {
		return Quiz{}, err
	}
	return quiz, nil
}
