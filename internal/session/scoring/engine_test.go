package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gokatarajesh/infinite-quiz/internal/question"
)

func questions() []question.Question {
	return []question.Question{
		{ID: "q1", CorrectAnswer: "A"},
		{ID: "q2", CorrectAnswer: "B"},
		{ID: "q3", CorrectAnswer: "C"},
		{ID: "q4", CorrectAnswer: "D"},
	}
}

func TestScore(t *testing.T) {
	qs := questions()

	assert.Equal(t, 0, Score(qs, nil), "unanswered questions never count")
	assert.Equal(t, 2, Score(qs, map[string]string{"q1": "A", "q2": "B", "q3": "A"}))
	assert.Equal(t, 4, Score(qs, map[string]string{"q1": "A", "q2": "B", "q3": "C", "q4": "D"}))
	assert.Equal(t, 0, Score(qs, map[string]string{"unknown": "A"}))
}

func TestScoreIsIdempotent(t *testing.T) {
	qs := questions()
	answers := map[string]string{"q2": "B", "q4": "A"}

	first := Score(qs, answers)
	assert.Equal(t, first, Score(qs, answers))
	assert.Equal(t, map[string]string{"q2": "B", "q4": "A"}, answers)
}

func TestGrade(t *testing.T) {
	got := Grade(questions(), map[string]string{"q1": "A", "q2": "C"})

	assert.Len(t, got, 4)
	assert.Equal(t, Outcome{QuestionID: "q1", Selected: "A", Correct: "A", IsCorrect: true}, got[0])
	assert.Equal(t, Outcome{QuestionID: "q2", Selected: "C", Correct: "B"}, got[1])
	assert.Equal(t, Outcome{QuestionID: "q3", Correct: "C", Skipped: true}, got[2])
}
