package autosave

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/percorso-labs/percorso-api/internal/dto"
	"github.com/percorso-labs/percorso-api/internal/models"
	"github.com/percorso-labs/percorso-api/internal/service"
)

// Manager owns the live editing sessions, one per open assignment. Handlers
// obtain a session on connect and release it on disconnect.
type Manager struct {
	drafts    service.DraftService
	scheduler Scheduler
	debounce  time.Duration
	logger    zerolog.Logger

	mu       sync.Mutex
	sessions map[uint]*Session
	refs     map[uint]int
}

// NewManager constructs the session manager backed by the draft service.
func NewManager(drafts service.DraftService, debounce time.Duration, logger zerolog.Logger) *Manager {
	return &Manager{
		drafts:    drafts,
		scheduler: NewTimerScheduler(),
		debounce:  debounce,
		logger:    logger.With().Str("component", "autosave_manager").Logger(),
		sessions:  make(map[uint]*Session),
		refs:      make(map[uint]int),
	}
}

// Open recovers the working state for the assignment and returns its session,
// creating one on first use. Concurrent opens of the same assignment share a
// session; each open holds a reference until its matching Close.
func (m *Manager) Open(ctx context.Context, assignmentID uint, actor service.Actor) (*Session, error) {
	m.mu.Lock()
	if existing, ok := m.sessions[assignmentID]; ok {
		m.refs[assignmentID]++
		m.mu.Unlock()
		return existing, nil
	}
	m.mu.Unlock()

	state, err := m.drafts.LoadSession(ctx, assignmentID, actor)
	if err != nil {
		return nil, err
	}

	session := NewSession(SessionConfig{
		AssignmentID: assignmentID,
		Status:       state.Status,
		Initial:      NewSnapshot(state.Answers, state.Notes),
		Sink:         &draftSink{drafts: m.drafts, actor: actor},
		Scheduler:    m.scheduler,
		Debounce:     m.debounce,
		Logger:       m.logger,
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[assignmentID]; ok {
		m.refs[assignmentID]++
		return existing, nil
	}
	m.sessions[assignmentID] = session
	m.refs[assignmentID] = 1
	return session, nil
}

// NotifyTransition forwards a lifecycle transition to the open session, if
// any, so its breaker and status gate stay current.
func (m *Manager) NotifyTransition(assignmentID uint, status string) {
	m.mu.Lock()
	session, ok := m.sessions[assignmentID]
	m.mu.Unlock()
	if ok {
		session.SetStatus(status)
	}
}

// Close releases one reference to the assignment's session. The last
// disconnect flushes and seals the session; earlier disconnects only flush,
// leaving it live for the surviving connections.
func (m *Manager) Close(ctx context.Context, assignmentID uint) error {
	m.mu.Lock()
	session, ok := m.sessions[assignmentID]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	m.refs[assignmentID]--
	last := m.refs[assignmentID] <= 0
	if last {
		delete(m.sessions, assignmentID)
		delete(m.refs, assignmentID)
	}
	m.mu.Unlock()

	if last {
		return session.Close(ctx)
	}
	return session.Flush(ctx)
}

// draftSink adapts the draft service into the sink interface, pinning the
// actor the session was opened for.
type draftSink struct {
	drafts service.DraftService
	actor  service.Actor
}

func (d *draftSink) SaveDraft(ctx context.Context, assignmentID uint, snapshot Snapshot) error {
	payload := dto.DraftSaveRequest{
		Answers: models.AnswersToList(snapshot.Answers, nil),
		Notes:   snapshot.Notes,
	}
	_, err := d.drafts.Save(ctx, assignmentID, d.actor, payload)
	return err
}
