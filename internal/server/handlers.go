package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/infinite-quiz/internal/history"
	"github.com/gokatarajesh/infinite-quiz/internal/logging"
	"github.com/gokatarajesh/infinite-quiz/internal/session"
	httperrors "github.com/gokatarajesh/infinite-quiz/pkg/http/errors"
	"github.com/gokatarajesh/infinite-quiz/pkg/http/ws"
)

type handlers struct {
	sessions    *session.Manager
	history     *history.Tracker
	stats       StatsSource
	hub         *ws.Hub
	waitTimeout time.Duration
	upgrader    websocket.Upgrader
	logger      zerolog.Logger
}

type quizRequest struct {
	Category   string `json:"category"`
	Difficulty string `json:"difficulty"`
}

type answerRequest struct {
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
}

func (h *handlers) getSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessions.View())
}

func (h *handlers) openCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessions.OpenCategories(r.Context()))
}

// requestQuiz starts a content request. With ?wait=true it responds once the request settles.
func (h *handlers) requestQuiz(w http.ResponseWriter, r *http.Request) {
	var req quizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}

	// Generation outlives the HTTP request, so the request context only bounds persistence.
	done := h.sessions.RequestQuiz(r.Context(), req.Category, req.Difficulty)
	view := h.sessions.View()
	if view.State != session.StateLoading || r.URL.Query().Get("wait") != "true" {
		status := http.StatusOK
		if view.State == session.StateLoading {
			status = http.StatusAccepted
		}
		writeJSON(w, status, view)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.waitTimeout)
	defer cancel()
	select {
	case <-done:
		writeJSON(w, http.StatusOK, h.sessions.View())
	case <-ctx.Done():
		logger := logging.FromContext(r.Context())
		logger.Warn().Msg("quiz request still pending after wait timeout")
		httperrors.RespondError(w, http.StatusGatewayTimeout, httperrors.ErrCodeQuizRequestTimeout, "Quiz is still loading")
	}
}

func (h *handlers) selectAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}

	view, err := h.sessions.SelectAnswer(r.Context(), req.QuestionID, req.Answer)
	switch {
	case errors.Is(err, session.ErrInvalidAnswer):
		httperrors.RespondValidationError(w, httperrors.ErrCodeInvalidAnswer, err.Error(), "answer")
	case errors.Is(err, session.ErrUnknownQuestion):
		httperrors.RespondValidationError(w, httperrors.ErrCodeUnknownQuestion, err.Error(), "question_id")
	case err != nil:
		httperrors.RespondInternalError(w, "Failed to record answer")
	default:
		writeJSON(w, http.StatusOK, view)
	}
}

func (h *handlers) next(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessions.Next(r.Context()))
}

func (h *handlers) playAgain(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessions.PlayAgain(r.Context()))
}

func (h *handlers) home(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessions.Home(r.Context()))
}

func (h *handlers) listHistory(w http.ResponseWriter, r *http.Request) {
	entries := []history.Entry{}
	if h.history != nil {
		entries = h.history.List(r.Context())
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *handlers) getStats(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeFeatureNotAvailable, "Results archive is not configured")
		return
	}
	stats, err := h.stats.Stats(r.Context(), 10)
	if err != nil {
		logger := logging.FromContext(r.Context())
		logger.Error().Err(err).Msg("stats query failed")
		httperrors.RespondInternalError(w, "Failed to load stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
