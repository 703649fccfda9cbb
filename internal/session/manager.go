package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"k8s.io/utils/clock"

	"github.com/gokatarajesh/infinite-quiz/internal/history"
	"github.com/gokatarajesh/infinite-quiz/internal/question"
	"github.com/gokatarajesh/infinite-quiz/internal/session/scoring"
	"github.com/gokatarajesh/infinite-quiz/internal/store"
)

var (
	ErrInvalidAnswer   = errors.New("answer must be one of A, B, C, D")
	ErrUnknownQuestion = errors.New("question is not part of the current session")
)

// Archiver stores finalized sessions outside the snapshot slot.
type Archiver interface {
	ArchiveResult(ctx context.Context, s Session) error
}

// Listener receives state changes and countdown ticks. Calls are made without the manager lock.
type Listener interface {
	SessionChanged(v View)
	CountdownTick(remaining int)
}

// ManagerOptions configures the lifecycle manager.
type ManagerOptions struct {
	Duration       time.Duration
	QuestionCount  int
	TickInterval   time.Duration
	ArchiveTimeout time.Duration
	Clock          clock.WithTicker
	Listener       Listener
}

// Manager owns the single quiz session. Every method is safe for concurrent use; transitions are
// serialized by one mutex and out-of-state actions are ignored.
type Manager struct {
	mu        sync.Mutex
	generator question.Generator
	snapshots store.Slot[Session]
	history   *history.Tracker
	archive   Archiver
	metrics   *Metrics
	countdown *Countdown
	clock     clock.WithTicker
	listener  Listener
	opts      ManagerOptions
	logger    zerolog.Logger

	session Session
	// epoch identifies the current content request and countdown run. Anything carrying an older
	// epoch is stale.
	epoch  uint64
	cancel context.CancelFunc

	baseCtx   context.Context
	closeBase context.CancelFunc
	wg        sync.WaitGroup
}

func NewManager(
	generator question.Generator,
	snapshots store.Slot[Session],
	tracker *history.Tracker,
	archive Archiver,
	metrics *Metrics,
	opts ManagerOptions,
	logger zerolog.Logger,
) *Manager {
	if opts.Duration <= 0 {
		opts.Duration = 45 * time.Second
	}
	if opts.QuestionCount <= 0 {
		opts.QuestionCount = 10
	}
	if opts.ArchiveTimeout <= 0 {
		opts.ArchiveTimeout = 5 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}

	baseCtx, closeBase := context.WithCancel(context.Background())
	m := &Manager{
		generator: generator,
		snapshots: snapshots,
		history:   tracker,
		archive:   archive,
		metrics:   metrics,
		clock:     opts.Clock,
		listener:  opts.Listener,
		opts:      opts,
		logger:    logger.With().Str("component", "session_manager").Logger(),
		session:   Session{State: StateHome},
		baseCtx:   baseCtx,
		closeBase: closeBase,
	}
	m.countdown = NewCountdown(opts.Clock, opts.TickInterval, m.onTick, logger)
	return m
}

// Restore rebuilds the session from the persisted snapshot. A live snapshot resumes against its
// original deadline; one whose deadline has passed is finalized as if the countdown had expired.
func (m *Manager) Restore(ctx context.Context) View {
	m.mu.Lock()
	snap, ok := m.snapshots.Load(ctx)
	switch {
	case !ok:
		m.session = Session{State: StateHome}
	case snap.Terminal || snap.State == StateResult:
		m.restoreResultLocked(snap)
	case snap.State == StatePlaying && len(snap.Questions) > 0:
		m.restorePlayingLocked(ctx, snap)
	default:
		m.logger.Warn().Str("state", string(snap.State)).Msg("discarding unusable session snapshot")
		m.session = Session{State: StateHome}
		m.clearLocked(ctx)
	}
	view := m.viewLocked()
	m.mu.Unlock()

	m.logger.Info().Str("state", string(view.State)).Int("remaining", view.RemainingSeconds).Msg("session restored")
	m.publish(view)
	return view
}

func (m *Manager) restoreResultLocked(snap Session) {
	snap.State = StateResult
	snap.Terminal = true
	if snap.Score == nil {
		score := scoring.Score(snap.Questions, snap.Answers)
		snap.Score = &score
	}
	m.session = snap
}

func (m *Manager) restorePlayingLocked(ctx context.Context, snap Session) {
	if snap.Answers == nil {
		snap.Answers = map[string]string{}
	}
	if snap.CurrentIndex < 0 {
		snap.CurrentIndex = 0
	}
	if snap.CurrentIndex > len(snap.Questions)-1 {
		snap.CurrentIndex = len(snap.Questions) - 1
	}
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}

	m.epoch++
	m.session = snap
	remaining := RemainingSeconds(snap.Deadline, m.clock.Now())
	if remaining <= 0 {
		m.finalizeLocked(ctx, ReasonReconstructed)
		return
	}
	m.session.RemainingSeconds = remaining
	m.countdown.Start(snap.Deadline, m.expiry(m.epoch))
}

// OpenCategories moves Home to CategorySelect.
func (m *Manager) OpenCategories(ctx context.Context) View {
	return m.apply(func() bool {
		if m.session.State != StateHome {
			return false
		}
		m.setStateLocked(Session{State: StateCategorySelect})
		return true
	})
}

// RequestQuiz issues a content request from CategorySelect and moves to Loading. The returned
// channel closes once the request has settled, whether it produced a session, an error, or was
// discarded as stale. Outside CategorySelect the call is ignored and the channel is already closed.
func (m *Manager) RequestQuiz(ctx context.Context, category, difficulty string) <-chan struct{} {
	done := make(chan struct{})

	m.mu.Lock()
	if m.session.State != StateCategorySelect {
		m.mu.Unlock()
		close(done)
		return done
	}

	m.countdown.Stop()
	m.cancelRequestLocked()
	m.epoch++
	epoch := m.epoch
	reqCtx, cancel := context.WithCancel(m.baseCtx)
	m.cancel = cancel

	req := question.Request{
		Category:   question.NormalizeFilter(category),
		Difficulty: question.NormalizeFilter(difficulty),
		Count:      m.opts.QuestionCount,
	}
	m.setStateLocked(Session{State: StateLoading, Category: req.Category, Difficulty: req.Difficulty})
	m.clearLocked(ctx)
	view := m.viewLocked()
	m.mu.Unlock()

	m.logger.Info().Str("category", req.Category).Str("difficulty", req.Difficulty).Uint64("epoch", epoch).Msg("quiz requested")
	m.publish(view)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer close(done)
		start := m.clock.Now()
		quiz, err := m.generator.Generate(reqCtx, req)
		m.complete(epoch, req, quiz, err, m.clock.Since(start))
	}()
	return done
}

func (m *Manager) complete(epoch uint64, req question.Request, quiz question.Quiz, err error, took time.Duration) {
	ctx := m.baseCtx

	m.mu.Lock()
	if epoch != m.epoch || m.session.State != StateLoading {
		m.mu.Unlock()
		m.metrics.staleResponse()
		m.logger.Warn().Uint64("epoch", epoch).Err(err).Msg("discarding response for abandoned quiz request")
		return
	}
	m.cancelRequestLocked()

	if err == nil {
		quiz = question.Normalize(quiz, req)
		err = question.Validate(quiz)
	}
	m.metrics.generated(took.Seconds(), err != nil)

	if err != nil {
		m.setStateLocked(Session{
			State:      StateError,
			Category:   req.Category,
			Difficulty: req.Difficulty,
			Error:      failureMessage(err),
		})
		view := m.viewLocked()
		m.mu.Unlock()
		m.logger.Warn().Err(err).Str("category", req.Category).Msg("quiz request failed")
		m.publish(view)
		return
	}

	deadline := m.clock.Now().Add(m.opts.Duration)
	m.setStateLocked(Session{
		ID:               uuid.NewString(),
		State:            StatePlaying,
		Category:         req.Category,
		Difficulty:       req.Difficulty,
		Questions:        quiz.Questions,
		Answers:          map[string]string{},
		Deadline:         deadline,
		RemainingSeconds: RemainingSeconds(deadline, m.clock.Now()),
	})
	m.persistLocked(ctx)
	m.countdown.Start(deadline, m.expiry(epoch))
	view := m.viewLocked()
	m.mu.Unlock()

	m.logger.Info().Str("session_id", view.SessionID).Int("questions", view.Total).Dur("took", took).Msg("quiz started")
	m.publish(view)
}

// SelectAnswer records letter for questionID, replacing any earlier choice. An empty questionID
// means the current question. Ignored unless a session is being played.
func (m *Manager) SelectAnswer(ctx context.Context, questionID, letter string) (View, error) {
	letter = strings.ToUpper(strings.TrimSpace(letter))

	m.mu.Lock()
	if m.session.State != StatePlaying || m.session.Terminal {
		view := m.viewLocked()
		m.mu.Unlock()
		return view, nil
	}
	if !question.IsLetter(letter) {
		view := m.viewLocked()
		m.mu.Unlock()
		return view, ErrInvalidAnswer
	}
	if m.pastDeadlineLocked() {
		m.finalizeLocked(ctx, ReasonExpired)
		view := m.viewLocked()
		m.mu.Unlock()
		m.publish(view)
		return view, nil
	}

	s := &m.session
	if questionID == "" {
		questionID = s.Questions[s.CurrentIndex].ID
	}
	if !s.hasQuestion(questionID) {
		view := m.viewLocked()
		m.mu.Unlock()
		return view, ErrUnknownQuestion
	}
	s.Answers[questionID] = letter
	m.persistLocked(ctx)
	view := m.viewLocked()
	m.mu.Unlock()

	m.publish(view)
	return view, nil
}

// Next advances to the following question, or finalizes from the last one.
func (m *Manager) Next(ctx context.Context) View {
	return m.apply(func() bool {
		if m.session.State != StatePlaying || m.session.Terminal {
			return false
		}
		if m.pastDeadlineLocked() {
			return m.finalizeLocked(ctx, ReasonExpired)
		}
		if m.session.CurrentIndex < len(m.session.Questions)-1 {
			m.session.CurrentIndex++
			m.persistLocked(ctx)
			return true
		}
		return m.finalizeLocked(ctx, ReasonCompleted)
	})
}

// PlayAgain moves Result to CategorySelect. The finished snapshot stays persisted until a new quiz
// is requested.
func (m *Manager) PlayAgain(ctx context.Context) View {
	return m.apply(func() bool {
		if m.session.State != StateResult {
			return false
		}
		m.setStateLocked(Session{State: StateCategorySelect})
		return true
	})
}

// Home returns to the home screen from Result, Error, CategorySelect or Loading and clears the
// persisted snapshot. Leaving Loading abandons the in-flight request; its eventual response is
// discarded.
func (m *Manager) Home(ctx context.Context) View {
	return m.apply(func() bool {
		switch m.session.State {
		case StateLoading:
			m.cancelRequestLocked()
			m.epoch++
		case StateResult, StateError, StateCategorySelect:
		default:
			return false
		}
		m.clearLocked(ctx)
		m.setStateLocked(Session{State: StateHome})
		return true
	})
}

// View returns the current session as rendered for callers.
func (m *Manager) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewLocked()
}

// Close stops the countdown, abandons any pending request and waits for background work.
func (m *Manager) Close() {
	m.mu.Lock()
	m.countdown.Stop()
	m.cancelRequestLocked()
	m.epoch++
	m.mu.Unlock()

	m.closeBase()
	m.wg.Wait()
}

func (m *Manager) apply(fn func() bool) View {
	m.mu.Lock()
	changed := fn()
	view := m.viewLocked()
	m.mu.Unlock()

	if changed {
		m.publish(view)
	}
	return view
}

func (m *Manager) expiry(epoch uint64) func() {
	return func() {
		m.mu.Lock()
		if epoch != m.epoch {
			m.mu.Unlock()
			return
		}
		changed := m.finalizeLocked(m.baseCtx, ReasonExpired)
		view := m.viewLocked()
		m.mu.Unlock()

		if changed {
			m.publish(view)
		}
	}
}

// finalizeLocked is the single terminal transition. Only the first trigger per session takes
// effect: it freezes the answers, scores once, records history and persists the result.
func (m *Manager) finalizeLocked(ctx context.Context, reason string) bool {
	s := &m.session
	if s.State != StatePlaying || s.Terminal {
		return false
	}
	m.countdown.Stop()

	now := m.clock.Now()
	s.RemainingSeconds = RemainingSeconds(s.Deadline, now)
	if reason != ReasonCompleted {
		s.RemainingSeconds = 0
	}
	if s.Score == nil {
		score := scoring.Score(s.Questions, s.Answers)
		s.Score = &score
	}
	s.Terminal = true
	s.CompletedAt = &now
	prev := s.State
	s.State = StateResult
	m.metrics.transition(prev, StateResult)
	m.metrics.finalize(reason, *s.Score, len(s.Questions))

	// History is written before the snapshot: if the snapshot write is lost the replayed
	// finalization is absorbed by the head-ID check.
	if m.history != nil {
		entry := history.Entry{
			ID:          s.ID,
			CompletedAt: now,
			Score:       *s.Score,
			Total:       len(s.Questions),
			Category:    s.Category,
		}
		if _, err := m.history.Record(ctx, entry); err != nil {
			m.logger.Warn().Err(err).Str("session_id", s.ID).Msg("record history failed")
		}
	}
	m.persistLocked(ctx)
	m.archiveAsync(*s)

	m.logger.Info().
		Str("session_id", s.ID).
		Str("reason", reason).
		Int("score", *s.Score).
		Int("total", len(s.Questions)).
		Msg("session finalized")
	return true
}

func (m *Manager) archiveAsync(s Session) {
	if m.archive == nil {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(m.baseCtx), m.opts.ArchiveTimeout)
		defer cancel()
		if err := m.archive.ArchiveResult(ctx, s); err != nil {
			m.logger.Warn().Err(err).Str("session_id", s.ID).Msg("archive result failed")
		}
	}()
}

func (m *Manager) setStateLocked(next Session) {
	m.metrics.transition(m.session.State, next.State)
	m.session = next
}

func (m *Manager) pastDeadlineLocked() bool {
	return !m.clock.Now().Before(m.session.Deadline)
}

func (m *Manager) cancelRequestLocked() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

func (m *Manager) persistLocked(ctx context.Context) {
	if m.snapshots == nil {
		return
	}
	snap := m.session
	if snap.State == StatePlaying {
		snap.RemainingSeconds = RemainingSeconds(snap.Deadline, m.clock.Now())
	}
	if err := m.snapshots.Save(ctx, snap); err != nil {
		m.logger.Warn().Err(err).Str("state", string(snap.State)).Msg("persist session failed")
	}
}

func (m *Manager) clearLocked(ctx context.Context) {
	if m.snapshots == nil {
		return
	}
	if err := m.snapshots.Clear(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("clear session snapshot failed")
	}
}

func (m *Manager) viewLocked() View {
	return m.session.view(m.clock.Now())
}

func (m *Manager) onTick(remaining int) {
	if m.listener != nil {
		m.listener.CountdownTick(remaining)
	}
}

func (m *Manager) publish(v View) {
	if m.listener != nil {
		m.listener.SessionChanged(v)
	}
}

func (s *Session) hasQuestion(id string) bool {
	for _, q := range s.Questions {
		if q.ID == id {
			return true
		}
	}
	return false
}

func failureMessage(err error) string {
	switch {
	case errors.Is(err, question.ErrEmptyQuiz):
		return "The quiz generator returned no questions. Please try again."
	case errors.Is(err, question.ErrMalformedQuestion):
		return "The quiz generator returned an invalid question set. Please try again."
	case errors.Is(err, question.ErrGeneratorUnavailable):
		return "No quiz generator is configured."
	case errors.Is(err, context.DeadlineExceeded):
		return "The quiz generator took too long to respond. Please try again."
	default:
		return fmt.Sprintf("Failed to load quiz: %v", err)
	}
}
