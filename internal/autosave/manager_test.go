package autosave

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/percorso-labs/percorso-api/internal/dto"
	"github.com/percorso-labs/percorso-api/internal/models"
	"github.com/percorso-labs/percorso-api/internal/service"
)

// fakeDraftService records saves and serves a canned recovered state.
type fakeDraftService struct {
	state service.SessionState
	saves []dto.DraftSaveRequest
}

func (f *fakeDraftService) Save(_ context.Context, _ uint, _ service.Actor, payload dto.DraftSaveRequest) (dto.DraftResponse, error) {
	f.saves = append(f.saves, payload)
	return dto.DraftResponse{}, nil
}

func (f *fakeDraftService) Get(_ context.Context, _ uint, _ service.Actor) (dto.DraftResponse, error) {
	return dto.DraftResponse{}, service.ErrDraftNotFound
}

func (f *fakeDraftService) LoadSession(_ context.Context, _ uint, _ service.Actor) (service.SessionState, error) {
	return f.state, nil
}

func TestManagerSharesSessionsPerAssignment(t *testing.T) {
	drafts := &fakeDraftService{state: service.SessionState{Answers: models.AnswerMap{}, Status: models.StatusInProgress}}
	manager := NewManager(drafts, time.Second, zerolog.New(io.Discard))
	actor := service.Actor{ID: 10, Role: models.RoleClient}

	first, err := manager.Open(context.Background(), 1, actor)
	require.NoError(t, err)
	second, err := manager.Open(context.Background(), 1, actor)
	require.NoError(t, err)
	require.Same(t, first, second)

	other, err := manager.Open(context.Background(), 2, actor)
	require.NoError(t, err)
	require.NotSame(t, first, other)
}

func TestManagerOpenRecoversWorkingState(t *testing.T) {
	drafts := &fakeDraftService{state: service.SessionState{
		Answers: models.AnswerMap{"q1": models.TextAnswer("recovered")},
		Notes:   "picked up where I left off",
		Status:  models.StatusReturned,
	}}
	manager := NewManager(drafts, time.Second, zerolog.New(io.Discard))

	session, err := manager.Open(context.Background(), 1, service.Actor{ID: 10, Role: models.RoleClient})
	require.NoError(t, err)

	answers, notes := session.State()
	require.Equal(t, "picked up where I left off", notes)
	require.Equal(t, models.TextAnswer("recovered"), answers["q1"])
	require.Equal(t, models.StatusReturned, session.Status())
}

func TestManagerCloseFlushesPendingEdits(t *testing.T) {
	drafts := &fakeDraftService{state: service.SessionState{Answers: models.AnswerMap{}, Status: models.StatusInProgress}}
	manager := NewManager(drafts, time.Hour, zerolog.New(io.Discard))

	session, err := manager.Open(context.Background(), 1, service.Actor{ID: 10, Role: models.RoleClient})
	require.NoError(t, err)

	session.Update(models.AnswerMap{"q1": models.TextAnswer("last edit")}, "closing notes")
	require.NoError(t, manager.Close(context.Background(), 1))

	require.Len(t, drafts.saves, 1, "disconnect persists the pending state without waiting")
	require.Equal(t, "closing notes", drafts.saves[0].Notes)

	require.NoError(t, manager.Close(context.Background(), 1), "closing an unknown session is a no-op")
}

func TestManagerKeepsSessionAliveForSurvivingConnections(t *testing.T) {
	drafts := &fakeDraftService{state: service.SessionState{Answers: models.AnswerMap{}, Status: models.StatusInProgress}}
	manager := NewManager(drafts, time.Hour, zerolog.New(io.Discard))
	actor := service.Actor{ID: 10, Role: models.RoleClient}

	first, err := manager.Open(context.Background(), 1, actor)
	require.NoError(t, err)
	second, err := manager.Open(context.Background(), 1, actor)
	require.NoError(t, err)
	require.Same(t, first, second)

	// One tab disconnecting must not seal the session the other still edits.
	require.NoError(t, manager.Close(context.Background(), 1))
	second.Update(models.AnswerMap{"q1": models.TextAnswer("still typing")}, "")
	require.NoError(t, second.Flush(context.Background()))
	require.Len(t, drafts.saves, 1)
	require.Equal(t, models.TextAnswer("still typing"), drafts.saves[0].Answers[0].Answer)

	require.NoError(t, manager.Close(context.Background(), 1))
	second.Update(models.AnswerMap{"q1": models.TextAnswer("after last close")}, "")
	require.NoError(t, second.Flush(context.Background()))
	require.Len(t, drafts.saves, 1, "the last disconnect seals the session")
}

func TestManagerNotifyTransitionUpdatesSession(t *testing.T) {
	drafts := &fakeDraftService{state: service.SessionState{Answers: models.AnswerMap{}, Status: models.StatusInProgress}}
	manager := NewManager(drafts, time.Hour, zerolog.New(io.Discard))

	session, err := manager.Open(context.Background(), 1, service.Actor{ID: 10, Role: models.RoleClient})
	require.NoError(t, err)

	manager.NotifyTransition(1, models.StatusSubmitted)
	require.Equal(t, models.StatusSubmitted, session.Status())
	require.False(t, session.Enabled())

	// Transitions for assignments without an open session are ignored.
	manager.NotifyTransition(99, models.StatusSubmitted)
}
