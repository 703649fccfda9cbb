package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/infinite-quiz/internal/auth"
	"github.com/gokatarajesh/infinite-quiz/internal/auth/jwt"
	"github.com/gokatarajesh/infinite-quiz/internal/config"
	"github.com/gokatarajesh/infinite-quiz/internal/db/repository"
	"github.com/gokatarajesh/infinite-quiz/internal/history"
	"github.com/gokatarajesh/infinite-quiz/internal/session"
	"github.com/gokatarajesh/infinite-quiz/pkg/http/ws"
)

// StatsSource serves archive aggregates. Nil when no database is configured.
type StatsSource interface {
	Stats(ctx context.Context, topCategories int) (repository.Stats, error)
}

// Dependencies are the services the HTTP layer exposes.
type Dependencies struct {
	Sessions *session.Manager
	History  *history.Tracker
	Stats    StatsSource
	Hub      *ws.Hub
	Tokens   *jwt.Manager
	Gatherer prometheus.Gatherer
	Ping     func(ctx context.Context) error
}

// NewHTTPServer wires the session API, the session stream, health and metrics.
func NewHTTPServer(cfg *config.App, deps Dependencies, logger zerolog.Logger) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, deps, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter builds the HTTP handler tree.
func NewRouter(cfg *config.App, deps Dependencies, logger zerolog.Logger) http.Handler {
	logger = logger.With().Str("component", "http").Logger()
	h := &handlers{
		sessions:    deps.Sessions,
		history:     deps.History,
		stats:       deps.Stats,
		hub:         deps.Hub,
		waitTimeout: cfg.Quiz.RequestTimeout + 5*time.Second,
		upgrader:    newUpgrader(cfg.CORS.AllowedOrigins),
		logger:      logger,
	}

	router := mux.NewRouter()
	router.Use(requestLogger(logger))

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	if deps.Gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	} else {
		router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}

	authn := auth.Middleware(deps.Tokens, logger)

	api := router.PathPrefix("/v1").Subrouter()
	api.Use(authn)
	api.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		if deps.Ping != nil {
			if err := deps.Ping(r.Context()); err != nil {
				logger.Error().Err(err).Msg("dependency ping failed")
				http.Error(w, "upstream error", http.StatusBadGateway)
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]bool{"pong": true})
	}).Methods(http.MethodGet)
	api.HandleFunc("/session", h.getSession).Methods(http.MethodGet)
	api.HandleFunc("/session/categories", h.openCategories).Methods(http.MethodPost)
	api.HandleFunc("/session/quiz", h.requestQuiz).Methods(http.MethodPost)
	api.HandleFunc("/session/answers", h.selectAnswer).Methods(http.MethodPost)
	api.HandleFunc("/session/next", h.next).Methods(http.MethodPost)
	api.HandleFunc("/session/play-again", h.playAgain).Methods(http.MethodPost)
	api.HandleFunc("/session/home", h.home).Methods(http.MethodPost)
	api.HandleFunc("/history", h.listHistory).Methods(http.MethodGet)
	api.HandleFunc("/stats", h.getStats).Methods(http.MethodGet)

	stream := router.PathPrefix("/ws").Subrouter()
	stream.Use(authn)
	stream.HandleFunc("/session", h.sessionStream).Methods(http.MethodGet)

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	})
	return corsMiddleware.Handler(router)
}
