package question

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Mixed is the wildcard category/difficulty filter.
const Mixed = "Mixed"

// OptionCount is the number of options every question carries.
const OptionCount = 4

// Letters maps option positions to answer codes.
var Letters = [OptionCount]string{"A", "B", "C", "D"}

var (
	ErrEmptyQuiz            = errors.New("generator returned empty question set")
	ErrMalformedQuestion    = errors.New("malformed question")
	ErrGeneratorUnavailable = errors.New("no question generator configured")
)

// Question is immutable once received from a generator.
type Question struct {
	ID            string   `json:"id"`
	Category      string   `json:"category"`
	Difficulty    string   `json:"difficulty"`
	Prompt        string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
	Source        string   `json:"source,omitempty"`
}

// Quiz is the generator's response payload.
type Quiz struct {
	ID        string     `json:"quiz_id"`
	Questions []Question `json:"questions"`
}

// Request carries the player's filters to a generator.
type Request struct {
	Category   string
	Difficulty string
	Count      int
}

// Generator produces a quiz for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (Quiz, error)
}

// IsLetter reports whether s is one of A–D.
func IsLetter(s string) bool {
	for _, l := range Letters {
		if s == l {
			return true
		}
	}
	return false
}

// LetterIndex returns the option index for a letter, or -1.
func LetterIndex(s string) int {
	for i, l := range Letters {
		if s == l {
			return i
		}
	}
	return -1
}

// NormalizeFilter maps empty or case variants of "mixed" to Mixed.
func NormalizeFilter(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, Mixed) {
		return Mixed
	}
	return v
}

// Normalize fills identifiers and labels the generator left out. Question IDs are made unique
// within the quiz since answers are keyed by them.
func Normalize(q Quiz, req Request) Quiz {
	out := Quiz{ID: strings.TrimSpace(q.ID), Questions: make([]Question, len(q.Questions))}
	if out.ID == "" {
		out.ID = uuid.NewString()
	}

	seen := make(map[string]struct{}, len(q.Questions))
	for i, item := range q.Questions {
		item.ID = strings.TrimSpace(item.ID)
		if _, dup := seen[item.ID]; item.ID == "" || dup {
			item.ID = fmt.Sprintf("%s-%d", out.ID, i+1)
			for n := 2; ; n++ {
				if _, taken := seen[item.ID]; !taken {
					break
				}
				item.ID = fmt.Sprintf("%s-%d-%d", out.ID, i+1, n)
			}
		}
		seen[item.ID] = struct{}{}

		item.CorrectAnswer = strings.ToUpper(strings.TrimSpace(item.CorrectAnswer))
		if item.Category == "" {
			item.Category = req.Category
		}
		if item.Difficulty == "" {
			item.Difficulty = req.Difficulty
		}
		item.Options = append([]string(nil), item.Options...)
		out.Questions[i] = item
	}
	return out
}

// Validate checks the wire contract: a non-empty question list where every question has a
// prompt, exactly four options and a correct letter in A–D.
func Validate(q Quiz) error {
	if len(q.Questions) == 0 {
		return ErrEmptyQuiz
	}
	for i, item := range q.Questions {
		if strings.TrimSpace(item.Prompt) == "" {
			return fmt.Errorf("question %d: %w: empty prompt", i+1, ErrMalformedQuestion)
		}
		if len(item.Options) != OptionCount {
			return fmt.Errorf("question %d: %w: want %d options got %d", i+1, ErrMalformedQuestion, OptionCount, len(item.Options))
		}
		if !IsLetter(item.CorrectAnswer) {
			return fmt.Errorf("question %d: %w: correct answer %q", i+1, ErrMalformedQuestion, item.CorrectAnswer)
		}
	}
	return nil
}
