package autosave

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/percorso-labs/percorso-api/internal/models"
	"github.com/percorso-labs/percorso-api/internal/service"
)

// fakeScheduler captures scheduled callbacks so tests control when the
// debounce window elapses.
type fakeScheduler struct {
	pending   []*scheduledCall
	scheduled int
	cancelled int
}

type scheduledCall struct {
	delay     time.Duration
	fn        func()
	cancelled bool
}

func (f *fakeScheduler) Schedule(delay time.Duration, fn func()) CancelFunc {
	call := &scheduledCall{delay: delay, fn: fn}
	f.pending = append(f.pending, call)
	f.scheduled++
	return func() {
		if !call.cancelled {
			call.cancelled = true
			f.cancelled++
		}
	}
}

// elapse runs every callback whose timer was not cancelled, simulating the
// quiet period passing.
func (f *fakeScheduler) elapse() {
	pending := f.pending
	f.pending = nil
	for _, call := range pending {
		if !call.cancelled {
			call.fn()
		}
	}
}

type recordingSink struct {
	writes []Snapshot
	err    error
}

func (r *recordingSink) SaveDraft(_ context.Context, _ uint, snapshot Snapshot) error {
	if r.err != nil {
		return r.err
	}
	r.writes = append(r.writes, snapshot)
	return nil
}

func newTestSession(status string, sink DraftSink, scheduler Scheduler) *Session {
	return NewSession(SessionConfig{
		AssignmentID: 1,
		Status:       status,
		Sink:         sink,
		Scheduler:    scheduler,
		Debounce:     DefaultDebounce,
		Logger:       zerolog.New(io.Discard),
	})
}

func TestSessionDebouncesToSingleWrite(t *testing.T) {
	scheduler := &fakeScheduler{}
	sink := &recordingSink{}
	session := newTestSession(models.StatusInProgress, sink, scheduler)

	session.Update(models.AnswerMap{"q1": models.TextAnswer("a")}, "")
	session.Update(models.AnswerMap{"q1": models.TextAnswer("ab")}, "")
	session.Update(models.AnswerMap{"q1": models.TextAnswer("abc")}, "")

	require.Empty(t, sink.writes, "nothing is written while edits keep arriving")
	require.Equal(t, 3, scheduler.scheduled)
	require.Equal(t, 2, scheduler.cancelled, "each new edit cancels the previous timer")

	scheduler.elapse()
	require.Len(t, sink.writes, 1)
	require.Equal(t, "abc", sink.writes[0].Answers["q1"].Text, "only the final state is persisted")
}

func TestSessionSuppressesUnchangedAndEmpty(t *testing.T) {
	scheduler := &fakeScheduler{}
	sink := &recordingSink{}
	session := newTestSession(models.StatusInProgress, sink, scheduler)

	// Empty working state never writes.
	session.Update(models.AnswerMap{}, "   ")
	scheduler.elapse()
	require.Empty(t, sink.writes)

	session.Update(models.AnswerMap{"q1": models.TextAnswer("a")}, "note")
	scheduler.elapse()
	require.Len(t, sink.writes, 1)

	// Identical content, including whitespace-only notes changes, is a no-op.
	session.Update(models.AnswerMap{"q1": models.TextAnswer("a")}, "  note  ")
	scheduler.elapse()
	require.Len(t, sink.writes, 1)
}

func TestSessionInitialSnapshotCountsAsPersisted(t *testing.T) {
	scheduler := &fakeScheduler{}
	sink := &recordingSink{}
	recovered := models.AnswerMap{"q1": models.TextAnswer("recovered")}
	session := NewSession(SessionConfig{
		AssignmentID: 1,
		Status:       models.StatusInProgress,
		Initial:      NewSnapshot(recovered, "notes"),
		Sink:         sink,
		Scheduler:    scheduler,
		Logger:       zerolog.New(io.Discard),
	})

	session.Update(recovered, "notes")
	scheduler.elapse()
	require.Empty(t, sink.writes, "reopening an unchanged draft must not rewrite it")
}

func TestSessionBreakerTripsOnUnrecoverableError(t *testing.T) {
	scheduler := &fakeScheduler{}
	sink := &recordingSink{err: service.ErrForbidden}
	session := newTestSession(models.StatusInProgress, sink, scheduler)

	session.Update(models.AnswerMap{"q1": models.TextAnswer("a")}, "")
	scheduler.elapse()
	require.False(t, session.Enabled(), "a forbidden write trips the breaker")

	// Once tripped, further edits schedule nothing.
	before := scheduler.scheduled
	session.Update(models.AnswerMap{"q1": models.TextAnswer("b")}, "")
	require.Equal(t, before, scheduler.scheduled)

	sink.err = nil
	scheduler.elapse()
	require.Empty(t, sink.writes)
}

func TestSessionTransientErrorKeepsSessionArmed(t *testing.T) {
	scheduler := &fakeScheduler{}
	sink := &recordingSink{err: errors.New("connection reset")}
	session := newTestSession(models.StatusInProgress, sink, scheduler)

	session.Update(models.AnswerMap{"q1": models.TextAnswer("a")}, "")
	scheduler.elapse()
	require.True(t, session.Enabled(), "transient failures do not trip the breaker")

	sink.err = nil
	session.Update(models.AnswerMap{"q1": models.TextAnswer("ab")}, "")
	scheduler.elapse()
	require.Len(t, sink.writes, 1)
}

func TestSessionStatusGatesWrites(t *testing.T) {
	scheduler := &fakeScheduler{}
	sink := &recordingSink{}
	session := newTestSession(models.StatusInProgress, sink, scheduler)

	session.SetStatus(models.StatusSubmitted)
	session.Update(models.AnswerMap{"q1": models.TextAnswer("a")}, "")
	scheduler.elapse()
	require.Empty(t, sink.writes, "no writes while the status forbids editing")

	session.SetStatus(models.StatusReturned)
	session.Update(models.AnswerMap{"q1": models.TextAnswer("revised")}, "")
	scheduler.elapse()
	require.Len(t, sink.writes, 1, "a returned assignment is editable again")
}

func TestSessionTransitionCancelsPendingWrite(t *testing.T) {
	scheduler := &fakeScheduler{}
	sink := &recordingSink{}
	session := newTestSession(models.StatusInProgress, sink, scheduler)

	session.Update(models.AnswerMap{"q1": models.TextAnswer("a")}, "")
	session.SetStatus(models.StatusSubmitted)
	scheduler.elapse()
	require.Empty(t, sink.writes, "a submit during the quiet period wins over the autosave")
}

func TestSessionBreakerRearmsOnEditableTransition(t *testing.T) {
	scheduler := &fakeScheduler{}
	sink := &recordingSink{err: service.ErrDraftNotEditable}
	session := newTestSession(models.StatusInProgress, sink, scheduler)

	session.Update(models.AnswerMap{"q1": models.TextAnswer("a")}, "")
	scheduler.elapse()
	require.False(t, session.Enabled())

	// A submitted -> returned round trip heals a tripped session.
	session.SetStatus(models.StatusSubmitted)
	session.SetStatus(models.StatusReturned)
	require.True(t, session.Enabled())

	sink.err = nil
	session.Update(models.AnswerMap{"q1": models.TextAnswer("b")}, "")
	scheduler.elapse()
	require.Len(t, sink.writes, 1)
}

func TestSessionBreakerRearmsBetweenEditableStatuses(t *testing.T) {
	scheduler := &fakeScheduler{}
	sink := &recordingSink{err: service.ErrForbidden}
	session := newTestSession(models.StatusPending, sink, scheduler)

	session.Update(models.AnswerMap{"q1": models.TextAnswer("a")}, "")
	scheduler.elapse()
	require.False(t, session.Enabled())

	// pending -> in_progress stays editable throughout, yet still heals
	// the breaker.
	session.SetStatus(models.StatusInProgress)
	require.True(t, session.Enabled())

	sink.err = nil
	session.Update(models.AnswerMap{"q1": models.TextAnswer("b")}, "")
	scheduler.elapse()
	require.Len(t, sink.writes, 1)
}

func TestSessionFlushBypassesDebounce(t *testing.T) {
	scheduler := &fakeScheduler{}
	sink := &recordingSink{}
	session := newTestSession(models.StatusInProgress, sink, scheduler)

	session.Update(models.AnswerMap{"q1": models.TextAnswer("a")}, "")
	require.NoError(t, session.Flush(context.Background()))
	require.Len(t, sink.writes, 1)

	scheduler.elapse()
	require.Len(t, sink.writes, 1, "the cancelled timer must not double-write")
}

func TestSessionCloseFlushesAndSeals(t *testing.T) {
	scheduler := &fakeScheduler{}
	sink := &recordingSink{}
	session := newTestSession(models.StatusInProgress, sink, scheduler)

	session.Update(models.AnswerMap{"q1": models.TextAnswer("a")}, "")
	require.NoError(t, session.Close(context.Background()))
	require.Len(t, sink.writes, 1)

	session.Update(models.AnswerMap{"q1": models.TextAnswer("after close")}, "")
	scheduler.elapse()
	require.Len(t, sink.writes, 1, "a closed session accepts no edits")

	require.NoError(t, session.Close(context.Background()), "closing twice is a no-op")
}

func TestSessionStateReturnsIndependentCopy(t *testing.T) {
	scheduler := &fakeScheduler{}
	session := newTestSession(models.StatusInProgress, &recordingSink{}, scheduler)

	session.Update(models.AnswerMap{"q1": models.ListAnswer([]string{"a"})}, "notes")
	answers, notes := session.State()
	require.Equal(t, "notes", notes)

	answers["q1"].Items[0] = "mutated"
	current, _ := session.State()
	require.Equal(t, "a", current["q1"].Items[0])
}
