package session

import (
	"time"

	"github.com/gokatarajesh/infinite-quiz/internal/question"
	"github.com/gokatarajesh/infinite-quiz/internal/session/scoring"
)

// State is the lifecycle tag of the session.
type State string

const (
	StateHome           State = "home"
	StateCategorySelect State = "category_select"
	StateLoading        State = "loading"
	StatePlaying        State = "playing"
	StateResult         State = "result"
	StateError          State = "error"
)

// Finalization reasons, used as metric labels.
const (
	ReasonCompleted     = "completed"
	ReasonExpired       = "expired"
	ReasonReconstructed = "reconstructed"
)

// Session is the active or most recently completed quiz. It is also the persisted snapshot.
// RemainingSeconds is informational while playing; Deadline is authoritative. Once Terminal is set
// the answers are frozen and RemainingSeconds holds the time left at finalization.
type Session struct {
	ID               string              `json:"id"`
	State            State               `json:"state"`
	Category         string              `json:"category"`
	Difficulty       string              `json:"difficulty"`
	Questions        []question.Question `json:"questions"`
	CurrentIndex     int                 `json:"current_index"`
	Answers          map[string]string   `json:"answers"`
	Score            *int                `json:"score,omitempty"`
	RemainingSeconds int                 `json:"remaining_seconds"`
	Deadline         time.Time           `json:"deadline"`
	Terminal         bool                `json:"terminal"`
	CompletedAt      *time.Time          `json:"completed_at,omitempty"`
	Error            string              `json:"error,omitempty"`
}

// View is what callers render. The current question never carries its correct answer; the review
// is only present once the session is in the result state.
type View struct {
	State            State         `json:"state"`
	SessionID        string        `json:"session_id,omitempty"`
	Category         string        `json:"category,omitempty"`
	Difficulty       string        `json:"difficulty,omitempty"`
	RemainingSeconds int           `json:"remaining_seconds"`
	Deadline         *time.Time    `json:"deadline,omitempty"`
	Index            int           `json:"index"`
	Total            int           `json:"total"`
	Answered         int           `json:"answered"`
	Question         *QuestionView `json:"question,omitempty"`
	Score            *int          `json:"score,omitempty"`
	Review           []ReviewItem  `json:"review,omitempty"`
	CompletedAt      *time.Time    `json:"completed_at,omitempty"`
	Error            string        `json:"error,omitempty"`
}

// QuestionView is a question as shown while playing.
type QuestionView struct {
	ID         string   `json:"id"`
	Category   string   `json:"category"`
	Difficulty string   `json:"difficulty"`
	Prompt     string   `json:"question"`
	Options    []string `json:"options"`
	Selected   string   `json:"selected,omitempty"`
}

// ReviewItem is one line of the result review.
type ReviewItem struct {
	scoring.Outcome
	Prompt      string   `json:"question"`
	Options     []string `json:"options"`
	Explanation string   `json:"explanation"`
}

func (s Session) view(now time.Time) View {
	v := View{
		State:      s.State,
		SessionID:  s.ID,
		Category:   s.Category,
		Difficulty: s.Difficulty,
		Index:      s.CurrentIndex,
		Total:      len(s.Questions),
		Answered:   len(s.Answers),
		Error:      s.Error,
	}

	switch s.State {
	case StatePlaying:
		deadline := s.Deadline
		v.Deadline = &deadline
		v.RemainingSeconds = RemainingSeconds(s.Deadline, now)
		if s.CurrentIndex >= 0 && s.CurrentIndex < len(s.Questions) {
			q := s.Questions[s.CurrentIndex]
			v.Question = &QuestionView{
				ID:         q.ID,
				Category:   q.Category,
				Difficulty: q.Difficulty,
				Prompt:     q.Prompt,
				Options:    append([]string(nil), q.Options...),
				Selected:   s.Answers[q.ID],
			}
		}
	case StateResult:
		v.RemainingSeconds = s.RemainingSeconds
		v.Score = s.Score
		v.CompletedAt = s.CompletedAt
		outcomes := scoring.Grade(s.Questions, s.Answers)
		v.Review = make([]ReviewItem, len(outcomes))
		for i, o := range outcomes {
			q := s.Questions[i]
			v.Review[i] = ReviewItem{
				Outcome:     o,
				Prompt:      q.Prompt,
				Options:     append([]string(nil), q.Options...),
				Explanation: q.Explanation,
			}
		}
	}
	return v
}

// RemainingSeconds is max(0, ceil((deadline-now)/1s)).
func RemainingSeconds(deadline, now time.Time) int {
	d := deadline.Sub(now)
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
