package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"k8s.io/utils/clock"

	"github.com/gokatarajesh/infinite-quiz/internal/auth/jwt"
	"github.com/gokatarajesh/infinite-quiz/internal/config"
	"github.com/gokatarajesh/infinite-quiz/internal/db/repository"
	"github.com/gokatarajesh/infinite-quiz/internal/history"
	"github.com/gokatarajesh/infinite-quiz/internal/logging"
	"github.com/gokatarajesh/infinite-quiz/internal/question"
	"github.com/gokatarajesh/infinite-quiz/internal/question/ai"
	"github.com/gokatarajesh/infinite-quiz/internal/question/external"
	"github.com/gokatarajesh/infinite-quiz/internal/server"
	"github.com/gokatarajesh/infinite-quiz/internal/session"
	"github.com/gokatarajesh/infinite-quiz/internal/store"
	ws "github.com/gokatarajesh/infinite-quiz/pkg/http/ws"
)

// Application aggregates shared infrastructure (stores, archive, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool     *pgxpool.Pool
	redis    *redis.Client
	hub      *ws.Hub
	prefetch *question.Prefetcher
	sessions *session.Manager
	http     *http.Server
}

// New bootstraps logger, stores, generators, the session manager and the HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env, cfg.LogLevel)
	logger.Info().Str("store", cfg.StoreDriver).Msg("starting application bootstrap")

	a := &Application{cfg: cfg, logger: logger}

	snapshots, historySlot, err := a.openStores(ctx)
	if err != nil {
		return nil, err
	}

	var (
		archive session.Archiver
		stats   server.StatsSource
	)
	if cfg.Postgres.Enabled() {
		pool, err := pgxpool.New(ctx, cfg.Postgres.ConnString())
		if err != nil {
			a.close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.pool = pool
		results := repository.NewResultRepository(repository.New(pool))
		archive = results
		stats = results
	} else {
		logger.Warn().Msg("PG_HOST not set; results archive and stats disabled")
	}

	generator, err := buildGenerator(cfg, logger)
	if err != nil {
		a.close()
		return nil, err
	}
	if cfg.Prefetch.Enabled && a.redis != nil {
		a.prefetch = question.NewPrefetcher(
			generator,
			question.NewCache(a.redis, cfg.Redis.KeyPrefix, cfg.Prefetch.TTL),
			question.ServiceOptions{Count: cfg.Quiz.QuestionCount, Timeout: cfg.Quiz.RequestTimeout},
			logger,
		)
		generator = a.prefetch
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var tokens *jwt.Manager
	if cfg.Security.JWTSecret != "" {
		tokens = jwt.NewManager(jwt.TokenConfig{
			Secret: []byte(cfg.Security.JWTSecret),
			TTL:    cfg.Security.TokenTTL,
			Issuer: cfg.Name,
		})
	} else {
		logger.Warn().Msg("JWT secret not configured; API is unauthenticated")
	}

	a.hub = ws.NewHub(logger)
	tracker := history.NewTracker(historySlot, cfg.Quiz.HistoryLimit, logger)
	a.sessions = session.NewManager(
		generator,
		snapshots,
		tracker,
		archive,
		session.NewMetrics(registry),
		session.ManagerOptions{
			Duration:      cfg.Quiz.Duration,
			QuestionCount: cfg.Quiz.QuestionCount,
			TickInterval:  cfg.Quiz.TickInterval,
			Clock:         clock.RealClock{},
			Listener:      server.NewSessionBroadcaster(a.hub),
		},
		logger,
	)

	a.http = server.NewHTTPServer(cfg, server.Dependencies{
		Sessions: a.sessions,
		History:  tracker,
		Stats:    stats,
		Hub:      a.hub,
		Tokens:   tokens,
		Gatherer: registry,
		Ping:     a.ping,
	}, logger)

	return a, nil
}

func (a *Application) openStores(ctx context.Context) (store.Slot[session.Session], store.Slot[[]history.Entry], error) {
	if a.cfg.StoreDriver == config.StoreMemory {
		a.logger.Warn().Msg("memory store selected; sessions will not survive restarts")
		return store.NewMemory[session.Session](a.logger), store.NewMemory[[]history.Entry](a.logger), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Addr,
		DB:       a.cfg.Redis.DB,
		PoolSize: a.cfg.Redis.PoolSize,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	a.redis = client

	prefix := a.cfg.Redis.KeyPrefix
	return store.NewRedis[session.Session](client, prefix+":session", a.logger),
		store.NewRedis[[]history.Entry](client, prefix+":history", a.logger),
		nil
}

// buildGenerator chains the AI generator (when a key is configured) in front of the trivia APIs.
func buildGenerator(cfg *config.App, logger zerolog.Logger) (question.Generator, error) {
	var chain []question.Generator

	if cfg.AI.APIKey != "" {
		rules := ""
		if cfg.AI.RulesPath != "" {
			data, err := os.ReadFile(cfg.AI.RulesPath)
			if err != nil {
				return nil, fmt.Errorf("read AI rules: %w", err)
			}
			rules = strings.TrimSpace(string(data))
		}
		gen, err := ai.NewGenerator(ai.Config{
			BaseURL:      cfg.AI.BaseURL,
			APIKey:       cfg.AI.APIKey,
			Model:        cfg.AI.Model,
			Temperature:  cfg.AI.Temperature,
			SystemPrompt: rules,
			Timeout:      cfg.AI.HTTPTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		chain = append(chain, gen)
	} else {
		logger.Warn().Msg("AI_GENERATOR_API_KEY not set; AI question generation disabled")
	}

	if cfg.OpenTDB.Enabled {
		chain = append(chain, external.NewOpenTDBClient(cfg.OpenTDB.BaseURL, nil))
	}
	if cfg.TriviaAPI.Enabled {
		chain = append(chain, external.NewTriviaAPIClient(cfg.TriviaAPI.BaseURL, cfg.TriviaAPI.APIKey, nil))
	}

	return question.NewService(chain, question.ServiceOptions{
		Count:   cfg.Quiz.QuestionCount,
		Timeout: cfg.Quiz.RequestTimeout,
	}, logger), nil
}

// Handler exposes the HTTP handler tree.
func (a *Application) Handler() http.Handler {
	return a.http.Handler
}

// Run restores the persisted session, serves HTTP and shuts down when ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	a.sessions.Restore(ctx)

	g, gctx := errgroup.WithContext(ctx)
	if a.prefetch != nil {
		g.Go(func() error {
			return a.prefetch.Run(gctx)
		})
	}
	g.Go(func() error {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info().Msg("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
		defer cancel()
		if err := a.http.Shutdown(shutdownCtx); err != nil {
			a.logger.Error().Err(err).Msg("http shutdown error")
		}
		return nil
	})

	err := g.Wait()
	a.close()
	a.logger.Info().Msg("shutdown complete")
	return err
}

func (a *Application) ping(ctx context.Context) error {
	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	if a.pool != nil {
		if err := a.pool.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	return nil
}

func (a *Application) close() {
	if a.sessions != nil {
		a.sessions.Close()
	}
	if a.hub != nil {
		a.hub.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error().Err(err).Msg("redis shutdown error")
		}
	}
}
