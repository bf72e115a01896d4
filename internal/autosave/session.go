package autosave

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/percorso-labs/percorso-api/internal/models"
	"github.com/percorso-labs/percorso-api/internal/observability"
	"github.com/percorso-labs/percorso-api/internal/service"
)

// DefaultDebounce is the quiet period after the last edit before a write.
const DefaultDebounce = 2 * time.Second

// DraftSink receives the debounced writes of a session. The production sink
// is the draft service; tests use an in-memory recorder.
type DraftSink interface {
	SaveDraft(ctx context.Context, assignmentID uint, snapshot Snapshot) error
}

// Session debounces and gates draft writes for one assignment. All state is
// guarded by a single mutex, which is held through the sink call, so at most
// one write is ever in flight.
type Session struct {
	assignmentID uint
	sink         DraftSink
	scheduler    Scheduler
	debounce     time.Duration
	logger       zerolog.Logger

	mu        sync.Mutex
	status    string
	disabled  bool
	lastSaved Snapshot
	pending   Snapshot
	dirty     bool
	cancel    CancelFunc
	closed    bool
}

// SessionConfig bundles the construction parameters of a Session.
type SessionConfig struct {
	AssignmentID uint
	Status       string
	Initial      Snapshot
	Sink         DraftSink
	Scheduler    Scheduler
	Debounce     time.Duration
	Logger       zerolog.Logger
}

// NewSession builds a session seeded with the recovered working state. The
// initial snapshot counts as already persisted, so reopening an unchanged
// draft never rewrites it.
func NewSession(cfg SessionConfig) *Session {
	if cfg.Scheduler == nil {
		cfg.Scheduler = NewTimerScheduler()
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	return &Session{
		assignmentID: cfg.AssignmentID,
		sink:         cfg.Sink,
		scheduler:    cfg.Scheduler,
		debounce:     cfg.Debounce,
		status:       cfg.Status,
		lastSaved:    cfg.Initial,
		pending:      cfg.Initial,
		logger: cfg.Logger.With().
			Str("component", "autosave_session").
			Uint("assignment_id", cfg.AssignmentID).
			Logger(),
	}
}

// Update absorbs an edit and restarts the debounce window. Each call cancels
// any write still waiting, so only the quiet period after the final edit
// produces one.
func (s *Session) Update(answers models.AnswerMap, notes string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.pending = NewSnapshot(answers, notes)
	s.dirty = true

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	if !s.writableLocked() {
		return
	}

	s.cancel = s.scheduler.Schedule(s.debounce, func() {
		s.fire(context.Background())
	})
}

// Flush persists the pending state immediately, bypassing the debounce. Used
// on navigation and session close, where waiting out the quiet period would
// lose the edit.
func (s *Session) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	return s.persistLocked(ctx)
}

// SetStatus records a lifecycle transition. Any status change rearms a
// tripped breaker; the next edit schedules normally.
func (s *Session) SetStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := status != s.status
	s.status = status

	if s.disabled && changed {
		s.disabled = false
		s.logger.Info().Str("status", status).Msg("autosave re-enabled")
	}
	if !models.CanEditDraft(status) && s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Enabled reports whether the session will still attempt writes.
func (s *Session) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.disabled && models.CanEditDraft(s.status)
}

// Status returns the assignment status the session was last told about.
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// State returns the most recent working state the session holds.
func (s *Session) State() (models.AnswerMap, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.CloneAnswerMap(s.pending.Answers), s.pending.Notes
}

// Close cancels any scheduled write and flushes the remaining state. The
// session accepts no edits afterwards.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	return s.persistLocked(ctx)
}

func (s *Session) fire(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancel = nil
	if s.closed {
		return
	}
	if err := s.persistLocked(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("autosave write failed")
	}
}

// persistLocked runs the gate and the sink call. Callers hold s.mu.
func (s *Session) persistLocked(ctx context.Context) error {
	if !s.dirty {
		return nil
	}
	if !s.writableLocked() {
		reason := "disabled"
		if !s.disabled {
			reason = "status"
		}
		observability.AutosaveSuppressed().WithLabelValues(reason).Inc()
		return nil
	}

	snapshot := s.pending
	if !ShouldPersist(s.lastSaved, snapshot) {
		reason := "unchanged"
		if snapshot.Empty() {
			reason = "empty"
		}
		observability.AutosaveSuppressed().WithLabelValues(reason).Inc()
		s.dirty = false
		return nil
	}

	if err := s.sink.SaveDraft(ctx, s.assignmentID, snapshot); err != nil {
		observability.AutosaveWrites().WithLabelValues("error").Inc()
		if tripsBreaker(err) {
			s.disabled = true
			observability.AutosaveBreakerTrips().Inc()
			s.logger.Warn().Err(err).Msg("autosave disabled after unrecoverable write failure")
		}
		return err
	}

	s.lastSaved = snapshot
	s.dirty = false
	observability.AutosaveWrites().WithLabelValues("success").Inc()
	return nil
}

func (s *Session) writableLocked() bool {
	return !s.disabled && models.CanEditDraft(s.status)
}

// tripsBreaker classifies write failures that will not heal on retry:
// authorization loss, a vanished assignment, or a status that forbids
// editing. Transient storage errors keep the session armed.
func tripsBreaker(err error) bool {
	return errors.Is(err, service.ErrForbidden) ||
		errors.Is(err, service.ErrAssignmentNotFound) ||
		errors.Is(err, service.ErrDraftNotEditable)
}
