package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Store drivers.
const (
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"infinite-quiz"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	LogLevel                string        `env:"LOG_LEVEL" envDefault:"info"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:3000"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`
	StoreDriver             string        `env:"STORE_DRIVER" envDefault:"redis"`

	Postgres  Postgres
	Redis     Redis
	Security  Security
	Quiz      Quiz
	AI        AI
	OpenTDB   OpenTDB
	TriviaAPI TriviaAPI
	Prefetch  Prefetch
	CORS      CORS
}

// Postgres captures connection info for the results archive. Archive is disabled when Host is empty.
type Postgres struct {
	Host     string `env:"PG_HOST"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER"`
	Password string `env:"PG_PASSWORD"`
	Database string `env:"PG_DATABASE"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
}

// Enabled reports whether the archive database is configured.
func (p Postgres) Enabled() bool {
	return p.Host != ""
}

// DSN builds a libpq-style connection string.
func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

// ConnString builds a pgxpool connection string.
func (p Postgres) ConnString() string {
	return p.DSN() + " pool_max_conns=5"
}

// Redis holds the session/history store configuration.
type Redis struct {
	Addr      string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	DB        int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize  int    `env:"REDIS_POOL_SIZE" envDefault:"5"`
	KeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"quiz"`
}

// Security stores the API token secret. Auth is disabled when empty.
type Security struct {
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"JWT_TOKEN_TTL" envDefault:"720h"`
}

// Quiz groups gameplay defaults.
type Quiz struct {
	Duration       time.Duration `env:"QUIZ_DURATION" envDefault:"45s"`
	QuestionCount  int           `env:"QUIZ_QUESTION_COUNT" envDefault:"10"`
	HistoryLimit   int           `env:"QUIZ_HISTORY_LIMIT" envDefault:"10"`
	TickInterval   time.Duration `env:"QUIZ_TICK_INTERVAL" envDefault:"1s"`
	RequestTimeout time.Duration `env:"QUIZ_REQUEST_TIMEOUT" envDefault:"30s"`
}

// AI configures the chat-completions question generator.
type AI struct {
	BaseURL     string        `env:"AI_GENERATOR_URL" envDefault:"https://api.groq.com/openai/v1"`
	APIKey      string        `env:"AI_GENERATOR_API_KEY"`
	Model       string        `env:"AI_MODEL" envDefault:"llama-3.1-8b-instant"`
	Temperature float64       `env:"AI_TEMPERATURE" envDefault:"0.7"`
	RulesPath   string        `env:"AI_RULES_PATH"`
	HTTPTimeout time.Duration `env:"AI_HTTP_TIMEOUT" envDefault:"25s"`
}

// OpenTDB configures the Open Trivia DB fallback generator.
type OpenTDB struct {
	Enabled bool   `env:"OPENTDB_ENABLED" envDefault:"true"`
	BaseURL string `env:"OPENTDB_URL" envDefault:"https://opentdb.com"`
}

// TriviaAPI configures the-trivia-api.com generator, tried after Open Trivia DB.
type TriviaAPI struct {
	Enabled bool   `env:"TRIVIA_API_ENABLED" envDefault:"false"`
	BaseURL string `env:"TRIVIA_API_URL" envDefault:"https://the-trivia-api.com/v2"`
	APIKey  string `env:"TRIVIA_API_KEY"`
}

// Prefetch keeps one generated quiz per filter pair ready in Redis.
type Prefetch struct {
	Enabled bool          `env:"QUESTION_PREFETCH" envDefault:"false"`
	TTL     time.Duration `env:"QUESTION_PREFETCH_TTL" envDefault:"10m"`
}

// CORS holds Cross-Origin Resource Sharing configuration.
type CORS struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://127.0.0.1:5173"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS" envSeparator:"," envDefault:"GET,POST,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS" envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE" envDefault:"3600"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *App) validate() error {
	switch c.StoreDriver {
	case StoreRedis, StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.Quiz.Duration <= 0 {
		return fmt.Errorf("QUIZ_DURATION must be positive")
	}
	if c.Quiz.QuestionCount <= 0 {
		return fmt.Errorf("QUIZ_QUESTION_COUNT must be positive")
	}
	if c.Prefetch.Enabled && c.StoreDriver != StoreRedis {
		return fmt.Errorf("QUESTION_PREFETCH requires STORE_DRIVER=redis")
	}
	if c.Quiz.HistoryLimit <= 0 {
		return fmt.Errorf("QUIZ_HISTORY_LIMIT must be positive")
	}
	return nil
}
