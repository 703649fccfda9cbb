package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Queries holds the hand-written SQL for the results archive.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type InsertQuizResultParams struct {
	SessionID        string
	Category         string
	Difficulty       string
	Score            int32
	Total            int32
	RemainingSeconds int32
	Answers          []byte
	CompletedAt      time.Time
}

const insertQuizResult = `
INSERT INTO quiz_results (session_id, category, difficulty, score, total, remaining_seconds, answers, completed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (session_id) DO NOTHING
`

// InsertQuizResult reports whether a row was written; a repeated session id is ignored.
func (q *Queries) InsertQuizResult(ctx context.Context, arg InsertQuizResultParams) (bool, error) {
	tag, err := q.db.Exec(ctx, insertQuizResult,
		arg.SessionID,
		arg.Category,
		arg.Difficulty,
		arg.Score,
		arg.Total,
		arg.RemainingSeconds,
		arg.Answers,
		arg.CompletedAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

type QuizTotalsRow struct {
	Sessions  int64
	AvgRatio  float64
	BestScore int32
}

const getQuizTotals = `
SELECT COUNT(*), COALESCE(AVG(score::float8 / total), 0), COALESCE(MAX(score), 0)
FROM quiz_results
`

func (q *Queries) GetQuizTotals(ctx context.Context) (QuizTotalsRow, error) {
	var row QuizTotalsRow
	err := q.db.QueryRow(ctx, getQuizTotals).Scan(&row.Sessions, &row.AvgRatio, &row.BestScore)
	return row, err
}

type CategoryTotalsRow struct {
	Category string
	Sessions int64
	AvgScore float64
}

const listCategoryTotals = `
SELECT category, COUNT(*), AVG(score)::float8
FROM quiz_results
GROUP BY category
ORDER BY COUNT(*) DESC, category
LIMIT $1
`

func (q *Queries) ListCategoryTotals(ctx context.Context, limit int32) ([]CategoryTotalsRow, error) {
	rows, err := q.db.Query(ctx, listCategoryTotals, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []CategoryTotalsRow
	for rows.Next() {
		var i CategoryTotalsRow
		if err := rows.Scan(&i.Category, &i.Sessions, &i.AvgScore); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
