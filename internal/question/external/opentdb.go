package external

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gokatarajesh/infinite-quiz/internal/question"
)

// openTDBCategories maps display categories to Open Trivia DB category ids.
var openTDBCategories = map[string]int{
	"general knowledge": 9,
	"general":           9,
	"books":             10,
	"film":              11,
	"movies":            11,
	"music":             12,
	"television":        14,
	"video games":       15,
	"science":           17,
	"science & nature":  17,
	"computers":         18,
	"technology":        18,
	"mathematics":       19,
	"math":              19,
	"mythology":         20,
	"sports":            21,
	"geography":         22,
	"history":           23,
	"politics":          24,
	"art":               25,
	"animals":           27,
}

// OpenTDBClient fetches questions from the Open Trivia DB (no API key).
type OpenTDBClient struct {
	baseURL    string
	httpClient *http.Client
	shuffle    func(n int, swap func(i, j int))
}

var _ question.Generator = (*OpenTDBClient)(nil)

func NewOpenTDBClient(baseURL string, httpClient *http.Client) *OpenTDBClient {
	if baseURL == "" {
		baseURL = "https://opentdb.com"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &OpenTDBClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		shuffle:    rand.Shuffle,
	}
}

type OpenTDBQuestion struct {
	Category        string   `json:"category"`
	Type            string   `json:"type"`
	Difficulty      string   `json:"difficulty"`
	Question        string   `json:"question"`
	CorrectAnswer   string   `json:"correct_answer"`
	IncorrectAnswer []string `json:"incorrect_answers"`
}

type openTDBResponse struct {
	ResponseCode int               `json:"response_code"`
	Results      []OpenTDBQuestion `json:"results"`
}

// Fetch returns raw multiple-choice questions. Empty category/difficulty means any.
func (c *OpenTDBClient) Fetch(ctx context.Context, amount int, category, difficulty string) ([]OpenTDBQuestion, error) {
	values := url.Values{}
	values.Set("amount", fmt.Sprint(amount))
	values.Set("type", "multiple")
	if id, ok := openTDBCategories[strings.ToLower(category)]; ok {
		values.Set("category", fmt.Sprint(id))
	}
	if difficulty != "" && difficulty != question.Mixed {
		values.Set("difficulty", strings.ToLower(difficulty))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/api.php?%s", c.baseURL, values.Encode()), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("opentdb non-200: %d", resp.StatusCode)
	}

	var payload openTDBResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if payload.ResponseCode != 0 {
		return nil, fmt.Errorf("opentdb response code %d", payload.ResponseCode)
	}
	return payload.Results, nil
}

// Generate adapts Open Trivia DB results to the quiz contract: four shuffled options and a
// letter for the correct one. Questions without exactly three distractors are dropped.
func (c *OpenTDBClient) Generate(ctx context.Context, req question.Request) (question.Quiz, error) {
	count := req.Count
	if count <= 0 {
		count = 10
	}
	results, err := c.Fetch(ctx, count, req.Category, req.Difficulty)
	if err != nil {
		return question.Quiz{}, err
	}

	quizID := uuid.NewString()
	quiz := question.Quiz{ID: quizID}
	for i, r := range results {
		if len(r.IncorrectAnswer) != question.OptionCount-1 {
			continue
		}
		quiz.Questions = append(quiz.Questions, c.normalize(r, fmt.Sprintf("%s-%d", quizID, i+1)))
	}
	return quiz, nil
}

func (c *OpenTDBClient) normalize(r OpenTDBQuestion, id string) question.Question {
	correct := html.UnescapeString(r.CorrectAnswer)
	options := make([]string, 0, question.OptionCount)
	for _, opt := range r.IncorrectAnswer {
		options = append(options, html.UnescapeString(opt))
	}
	options = append(options, correct)
	c.shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })

	letter := ""
	for i, opt := range options {
		if opt == correct {
			letter = question.Letters[i]
			break
		}
	}

	return question.Question{
		ID:            id,
		Category:      html.UnescapeString(r.Category),
		Difficulty:    titleCase(r.Difficulty),
		Prompt:        html.UnescapeString(r.Question),
		Options:       options,
		CorrectAnswer: letter,
		Explanation:   fmt.Sprintf("The correct answer is %s.", correct),
		Source:        "opentdb",
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
