package external

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gokatarajesh/infinite-quiz/internal/question"
)

// triviaAPICategories maps display categories to The Trivia API category slugs.
var triviaAPICategories = map[string]string{
	"general knowledge": "general_knowledge",
	"general":           "general_knowledge",
	"music":             "music",
	"sports":            "sport_and_leisure",
	"film":              "film_and_tv",
	"movies":            "film_and_tv",
	"television":        "film_and_tv",
	"books":             "arts_and_literature",
	"art":               "arts_and_literature",
	"history":           "history",
	"politics":          "society_and_culture",
	"science":           "science",
	"science & nature":  "science",
	"geography":         "geography",
	"food":              "food_and_drink",
}

// TriviaAPIClient integrates with the-trivia-api.com. The API key is optional and raises rate limits.
type TriviaAPIClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	shuffle    func(n int, swap func(i, j int))
}

var _ question.Generator = (*TriviaAPIClient)(nil)

func NewTriviaAPIClient(baseURL, apiKey string, httpClient *http.Client) *TriviaAPIClient {
	if baseURL == "" {
		baseURL = "https://the-trivia-api.com/v2"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &TriviaAPIClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
		shuffle:    rand.Shuffle,
	}
}

type TriviaAPIQuestion struct {
	ID         string `json:"id"`
	Category   string `json:"category"`
	Difficulty string `json:"difficulty"`
	Type       string `json:"type"`
	Question   struct {
		Text string `json:"text"`
	} `json:"question"`
	Correct   string   `json:"correctAnswer"`
	Incorrect []string `json:"incorrectAnswers"`
}

// Fetch returns raw questions. Mixed or unknown filters are omitted from the query.
func (c *TriviaAPIClient) Fetch(ctx context.Context, amount int, category, difficulty string) ([]TriviaAPIQuestion, error) {
	values := url.Values{}
	values.Set("limit", fmt.Sprint(amount))
	if slug, ok := triviaAPICategories[strings.ToLower(category)]; ok {
		values.Set("categories", slug)
	}
	if difficulty != "" && difficulty != question.Mixed {
		values.Set("difficulties", strings.ToLower(difficulty))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/questions?%s", c.baseURL, values.Encode()), nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("triviaapi non-200: %d", resp.StatusCode)
	}

	var payload []TriviaAPIQuestion
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// Generate adapts The Trivia API results to four lettered options. Questions without exactly three
// distractors are dropped.
func (c *TriviaAPIClient) Generate(ctx context.Context, req question.Request) (question.Quiz, error) {
	count := req.Count
	if count <= 0 {
		count = 10
	}
	results, err := c.Fetch(ctx, count, req.Category, req.Difficulty)
	if err != nil {
		return question.Quiz{}, err
	}

	quiz := question.Quiz{ID: uuid.NewString()}
	for _, r := range results {
		if len(r.Incorrect) != question.OptionCount-1 {
			continue
		}
		options := append(append(make([]string, 0, question.OptionCount), r.Incorrect...), r.Correct)
		c.shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })

		letter := ""
		for i, opt := range options {
			if opt == r.Correct {
				letter = question.Letters[i]
				break
			}
		}
		quiz.Questions = append(quiz.Questions, question.Question{
			ID:            r.ID,
			Category:      strings.ReplaceAll(titleCase(r.Category), "_", " "),
			Difficulty:    titleCase(r.Difficulty),
			Prompt:        r.Question.Text,
			Options:       options,
			CorrectAnswer: letter,
			Explanation:   fmt.Sprintf("The correct answer is %s.", r.Correct),
			Source:        "triviaapi",
		})
	}
	return quiz, nil
}
