package ai

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"

	"github.com/gokatarajesh/infinite-quiz/internal/question"
)

//go:embed rules.txt
var defaultRules string

//go:embed quiz.schema.json
var quizSchema string

// Config holds connection details for an OpenAI-compatible chat-completions endpoint.
type Config struct {
	BaseURL      string
	APIKey       string
	Model        string
	Temperature  float64
	SystemPrompt string
	Timeout      time.Duration
}

// Generator implements question.Generator on top of a chat-completions API.
type Generator struct {
	httpClient     *http.Client
	config         Config
	schema         *gojsonschema.Schema
	logger         zerolog.Logger
	completionsURL string
}

var _ question.Generator = (*Generator)(nil)

func NewGenerator(cfg Config, logger zerolog.Logger) (*Generator, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	if cfg.Model == "" {
		cfg.Model = "llama-3.1-8b-instant"
	}
	if strings.TrimSpace(cfg.SystemPrompt) == "" {
		cfg.SystemPrompt = defaultRules
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(quizSchema))
	if err != nil {
		return nil, fmt.Errorf("load quiz schema: %w", err)
	}

	return &Generator{
		httpClient:     &http.Client{Timeout: timeout},
		config:         cfg,
		schema:         schema,
		logger:         logger.With().Str("component", "ai_generator").Logger(),
		completionsURL: strings.TrimSuffix(cfg.BaseURL, "/") + "/chat/completions",
	}, nil
}

// Generate requests a quiz from the model and validates its JSON before decoding.
func (g *Generator) Generate(ctx context.Context, req question.Request) (question.Quiz, error) {
	if g.config.BaseURL == "" || g.config.APIKey == "" {
		return question.Quiz{}, question.ErrGeneratorUnavailable
	}

	payload := completionRequest{
		Model: g.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: g.config.SystemPrompt},
			{Role: "user", Content: userPrompt(req)},
		},
		Temperature:    g.config.Temperature,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return question.Quiz{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.completionsURL, bytes.NewReader(body))
	if err != nil {
		return question.Quiz{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.config.APIKey)

	start := time.Now()
	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return question.Quiz{}, fmt.Errorf("call generator: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return question.Quiz{}, fmt.Errorf("generator returned status %d", resp.StatusCode)
	}

	var completion completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return question.Quiz{}, fmt.Errorf("decode completion: %w", err)
	}
	if len(completion.Choices) == 0 || strings.TrimSpace(completion.Choices[0].Message.Content) == "" {
		return question.Quiz{}, fmt.Errorf("no content received from generator")
	}

	quiz, err := g.parse(completion.Choices[0].Message.Content)
	if err != nil {
		return question.Quiz{}, err
	}

	g.logger.Debug().
		Str("model", g.config.Model).
		Int("questions", len(quiz.Questions)).
		Dur("took", time.Since(start)).
		Msg("quiz generated")
	return quiz, nil
}

func (g *Generator) parse(content string) (question.Quiz, error) {
	content = stripFence(content)

	result, err := g.schema.Validate(gojsonschema.NewStringLoader(content))
	if err != nil {
		return question.Quiz{}, fmt.Errorf("parse generator JSON: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return question.Quiz{}, fmt.Errorf("%w: %s", question.ErrMalformedQuestion, strings.Join(msgs, "; "))
	}

	var raw aiQuiz
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return question.Quiz{}, fmt.Errorf("decode generator JSON: %w", err)
	}

	quiz := question.Quiz{
		ID:        string(raw.ID),
		Questions: make([]question.Question, 0, len(raw.Questions)),
	}
	for _, q := range raw.Questions {
		quiz.Questions = append(quiz.Questions, question.Question{
			ID:            string(q.ID),
			Category:      q.Category,
			Difficulty:    q.Difficulty,
			Prompt:        q.Question,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
			Source:        "ai",
		})
	}
	return quiz, nil
}

func userPrompt(req question.Request) string {
	count := req.Count
	if count <= 0 {
		count = 10
	}
	category := req.Category
	if category == "" {
		category = question.Mixed
	}
	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = question.Mixed
	}
	return fmt.Sprintf("Generate a new quiz with %d questions. Category: %s. Difficulty: %s.", count, category, difficulty)
}

// stripFence removes a markdown code fence some models wrap around JSON.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// flexString accepts both JSON strings and numbers; models emit either for ids.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if string(data) == "null" {
		*f = ""
		return nil
	}
	*f = flexString(bytes.TrimSpace(data))
	return nil
}

type aiQuiz struct {
	ID        flexString   `json:"quiz_id"`
	Questions []aiQuestion `json:"questions"`
}

type aiQuestion struct {
	ID            flexString `json:"id"`
	Category      string     `json:"category"`
	Difficulty    string     `json:"difficulty"`
	Question      string     `json:"question"`
	Options       []string   `json:"options"`
	CorrectAnswer string     `json:"correct_answer"`
	Explanation   string     `json:"explanation"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type completionRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}
