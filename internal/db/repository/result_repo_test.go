package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/infinite-quiz/internal/question"
	"github.com/gokatarajesh/infinite-quiz/internal/session"
)

type mockResultStore struct {
	mock.Mock
}

func (m *mockResultStore) InsertQuizResult(ctx context.Context, arg InsertQuizResultParams) (bool, error) {
	args := m.Called(ctx, arg)
	return args.Bool(0), args.Error(1)
}

func (m *mockResultStore) GetQuizTotals(ctx context.Context) (QuizTotalsRow, error) {
	args := m.Called(ctx)
	return args.Get(0).(QuizTotalsRow), args.Error(1)
}

func (m *mockResultStore) ListCategoryTotals(ctx context.Context, limit int32) ([]CategoryTotalsRow, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]CategoryTotalsRow), args.Error(1)
}

func finishedSession() session.Session {
	score := 3
	completed := time.Date(2026, 5, 4, 10, 0, 0, 0, time.FixedZone("x", 3600))
	return session.Session{
		ID:               "s-1",
		State:            session.StateResult,
		Category:         "Science",
		Difficulty:       "Hard",
		Questions:        make([]question.Question, 10),
		Answers:          map[string]string{"q1": "A"},
		Score:            &score,
		RemainingSeconds: 7,
		Terminal:         true,
		CompletedAt:      &completed,
	}
}

func TestResultRepository_ArchiveResult(t *testing.T) {
	store := new(mockResultStore)
	repo := NewResultRepository(store)
	s := finishedSession()

	store.On("InsertQuizResult", mock.Anything, InsertQuizResultParams{
		SessionID:        "s-1",
		Category:         "Science",
		Difficulty:       "Hard",
		Score:            3,
		Total:            10,
		RemainingSeconds: 7,
		Answers:          []byte(`{"q1":"A"}`),
		CompletedAt:      time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC),
	}).Return(true, nil)

	require.NoError(t, repo.ArchiveResult(context.Background(), s))
	store.AssertExpectations(t)
}

func TestResultRepository_ArchiveRejectsUnfinished(t *testing.T) {
	store := new(mockResultStore)
	repo := NewResultRepository(store)
	s := finishedSession()
	s.Terminal = false

	assert.ErrorIs(t, repo.ArchiveResult(context.Background(), s), ErrNotFinalized)
	store.AssertNotCalled(t, "InsertQuizResult", mock.Anything, mock.Anything)
}

func TestResultRepository_ArchiveWrapsStoreError(t *testing.T) {
	store := new(mockResultStore)
	repo := NewResultRepository(store)
	boom := errors.New("conn reset")
	store.On("InsertQuizResult", mock.Anything, mock.Anything).Return(false, boom)

	err := repo.ArchiveResult(context.Background(), finishedSession())
	assert.ErrorIs(t, err, boom)
}

func TestResultRepository_Stats(t *testing.T) {
	store := new(mockResultStore)
	repo := NewResultRepository(store)

	store.On("GetQuizTotals", mock.Anything).Return(QuizTotalsRow{Sessions: 4, AvgRatio: 0.55, BestScore: 9}, nil)
	store.On("ListCategoryTotals", mock.Anything, int32(10)).Return([]CategoryTotalsRow{
		{Category: "Science", Sessions: 3, AvgScore: 6},
		{Category: "History", Sessions: 1, AvgScore: 4},
	}, nil)

	stats, err := repo.Stats(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Sessions)
	assert.Equal(t, 9, stats.BestScore)
	require.Len(t, stats.Categories, 2)
	assert.Equal(t, "Science", stats.Categories[0].Category)
	store.AssertExpectations(t)
}
