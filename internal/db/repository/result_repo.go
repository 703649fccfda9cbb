package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gokatarajesh/infinite-quiz/internal/session"
)

var ErrNotFinalized = errors.New("session is not finalized")

type resultStore interface {
	InsertQuizResult(ctx context.Context, arg InsertQuizResultParams) (bool, error)
	GetQuizTotals(ctx context.Context) (QuizTotalsRow, error)
	ListCategoryTotals(ctx context.Context, limit int32) ([]CategoryTotalsRow, error)
}

// ResultRepository archives finalized sessions and serves aggregate stats.
type ResultRepository struct {
	store resultStore
}

var _ session.Archiver = (*ResultRepository)(nil)

// NewResultRepository constructs a results repository.
func NewResultRepository(store resultStore) *ResultRepository {
	return &ResultRepository{store: store}
}

// ArchiveResult stores a finalized session. Archiving the same session twice is a no-op.
func (r *ResultRepository) ArchiveResult(ctx context.Context, s session.Session) error {
	if !s.Terminal || s.Score == nil || s.CompletedAt == nil {
		return ErrNotFinalized
	}
	answers := s.Answers
	if answers == nil {
		answers = map[string]string{}
	}
	data, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}

	_, err = r.store.InsertQuizResult(ctx, InsertQuizResultParams{
		SessionID:        s.ID,
		Category:         s.Category,
		Difficulty:       s.Difficulty,
		Score:            int32(*s.Score),
		Total:            int32(len(s.Questions)),
		RemainingSeconds: int32(s.RemainingSeconds),
		Answers:          data,
		CompletedAt:      s.CompletedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("insert quiz result: %w", err)
	}
	return nil
}

// CategoryStats aggregates archived results for one category.
type CategoryStats struct {
	Category string  `json:"category"`
	Sessions int64   `json:"sessions"`
	AvgScore float64 `json:"avg_score"`
}

// Stats aggregates all archived results.
type Stats struct {
	Sessions   int64           `json:"sessions"`
	AvgRatio   float64         `json:"avg_ratio"`
	BestScore  int             `json:"best_score"`
	Categories []CategoryStats `json:"categories"`
}

// Stats returns archive totals and the top categories by play count.
func (r *ResultRepository) Stats(ctx context.Context, topCategories int) (Stats, error) {
	if topCategories <= 0 {
		topCategories = 10
	}
	totals, err := r.store.GetQuizTotals(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("get totals: %w", err)
	}
	rows, err := r.store.ListCategoryTotals(ctx, int32(topCategories))
	if err != nil {
		return Stats{}, fmt.Errorf("list category totals: %w", err)
	}

	stats := Stats{
		Sessions:   totals.Sessions,
		AvgRatio:   totals.AvgRatio,
		BestScore:  int(totals.BestScore),
		Categories: make([]CategoryStats, 0, len(rows)),
	}
	for _, row := range rows {
		stats.Categories = append(stats.Categories, CategoryStats{
			Category: row.Category,
			Sessions: row.Sessions,
			AvgScore: row.AvgScore,
		})
	}
	return stats, nil
}
