package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/percorso-labs/percorso-api/internal/dto"
	"github.com/percorso-labs/percorso-api/internal/models"
	"github.com/percorso-labs/percorso-api/internal/repository"
)

type fakeActivityLogRepo struct {
	entries []models.ActivityLog
}

func (f *fakeActivityLogRepo) Create(_ context.Context, entry *models.ActivityLog) error {
	entry.ID = uint(len(f.entries) + 1)
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeActivityLogRepo) List(_ context.Context, filter repository.ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	var result []models.ActivityLog
	for _, entry := range f.entries {
		if filter.ActorID != nil && entry.ActorID != *filter.ActorID {
			continue
		}
		if filter.Action != "" && entry.Action != filter.Action {
			continue
		}
		if filter.EntityType != "" && entry.EntityType != filter.EntityType {
			continue
		}
		result = append(result, entry)
	}
	total := int64(len(result))
	if filter.PageSize > 0 && len(result) > filter.PageSize {
		result = result[:filter.PageSize]
	}
	return result, total, nil
}

func TestActivityRecordNormalizes(t *testing.T) {
	repo := &fakeActivityLogRepo{}
	svc := NewActivityService(repo, validator.New(), testLogger())

	entityID := uint(7)
	response, err := svc.Record(context.Background(), ActivityEntry{
		ActorID:    10,
		Action:     "  Assignment.Submitted  ",
		EntityType: " Assignment ",
		EntityID:   &entityID,
	})
	require.NoError(t, err)
	require.Equal(t, "assignment.submitted", response.Action)
	require.Equal(t, "assignment", response.EntityType)
	require.Equal(t, "system", response.ActorRole, "a missing role is recorded as system")
}

func TestActivityRecordRequiresActionAndEntity(t *testing.T) {
	svc := NewActivityService(&fakeActivityLogRepo{}, validator.New(), testLogger())

	_, err := svc.Record(context.Background(), ActivityEntry{EntityType: "assignment"})
	require.Error(t, err)

	_, err = svc.Record(context.Background(), ActivityEntry{Action: "assignment.started"})
	require.Error(t, err)
}

func TestActivityRecordMasksSensitiveMetadata(t *testing.T) {
	repo := &fakeActivityLogRepo{}
	svc := NewActivityService(repo, validator.New(), testLogger())

	response, err := svc.Record(context.Background(), ActivityEntry{
		ActorID:    10,
		ActorRole:  models.RoleClient,
		Action:     "assignment.submitted",
		EntityType: "assignment",
		Metadata: map[string]interface{}{
			"client_email": "someone@example.com",
			"AuthToken":    "secret-value",
			"score":        85,
		},
	})
	require.NoError(t, err)
	require.Equal(t, "***", response.Metadata["client_email"])
	require.Equal(t, "***", response.Metadata["AuthToken"])
	require.Equal(t, 85, response.Metadata["score"])
}

func TestActivityListFiltersAndPaginates(t *testing.T) {
	repo := &fakeActivityLogRepo{}
	svc := NewActivityService(repo, validator.New(), testLogger())

	for i := 0; i < 3; i++ {
		_, err := svc.Record(context.Background(), ActivityEntry{
			ActorID:    10,
			ActorRole:  models.RoleClient,
			Action:     "assignment.submitted",
			EntityType: "assignment",
		})
		require.NoError(t, err)
	}
	_, err := svc.Record(context.Background(), ActivityEntry{
		ActorID:    20,
		ActorRole:  models.RoleConsultant,
		Action:     "exercise.created",
		EntityType: "exercise",
	})
	require.NoError(t, err)

	actorID := uint(10)
	response, err := svc.List(context.Background(), dto.ActivityListRequest{ActorID: actorID, Page: 1, PageSize: 2})
	require.NoError(t, err)
	require.EqualValues(t, 3, response.Pagination.TotalItems)
	require.Equal(t, 2, response.Pagination.TotalPages)
	require.Len(t, response.Items, 2)

	response, err = svc.List(context.Background(), dto.ActivityListRequest{EntityType: "exercise"})
	require.NoError(t, err)
	require.Len(t, response.Items, 1)
	require.Equal(t, "exercise.created", response.Items[0].Action)
}

func TestActivityCreateValidatesPayload(t *testing.T) {
	svc := NewActivityService(&fakeActivityLogRepo{}, validator.New(), testLogger())

	_, err := svc.Create(context.Background(), clientActor, dto.ActivityCreateRequest{Action: "x"})
	require.Error(t, err)

	response, err := svc.Create(context.Background(), clientActor, dto.ActivityCreateRequest{
		Action:     "assignment.viewed",
		EntityType: "assignment",
	})
	require.NoError(t, err)
	require.Equal(t, clientActor.ID, response.ActorID)
	require.Equal(t, models.RoleClient, response.ActorRole)
}
