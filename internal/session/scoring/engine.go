package scoring

import "github.com/gokatarajesh/infinite-quiz/internal/question"

// Outcome is the graded result of a single question.
type Outcome struct {
	QuestionID string `json:"question_id"`
	Selected   string `json:"selected,omitempty"`
	Correct    string `json:"correct"`
	IsCorrect  bool   `json:"is_correct"`
	Skipped    bool   `json:"skipped"`
}

// Score counts questions whose recorded letter equals the correct letter.
// Unanswered questions count as incorrect. Score has no side effects and may be called repeatedly.
func Score(questions []question.Question, answers map[string]string) int {
	score := 0
	for _, q := range questions {
		if sel, ok := answers[q.ID]; ok && sel == q.CorrectAnswer {
			score++
		}
	}
	return score
}

// Grade returns per-question outcomes in question order.
func Grade(questions []question.Question, answers map[string]string) []Outcome {
	out := make([]Outcome, len(questions))
	for i, q := range questions {
		sel, answered := answers[q.ID]
		out[i] = Outcome{
			QuestionID: q.ID,
			Selected:   sel,
			Correct:    q.CorrectAnswer,
			IsCorrect:  answered && sel == q.CorrectAnswer,
			Skipped:    !answered,
		}
	}
	return out
}
