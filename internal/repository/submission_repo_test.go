package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/percorso-labs/percorso-api/internal/models"
)

func TestSubmissionRepositorySaveDraftUpserts(t *testing.T) {
	db := setupSubmissionTestDB(t, "drafts")
	repo := NewSubmissionRepository(db)
	ctx := context.Background()

	first := models.Submission{AssignmentID: 1, Notes: "first pass"}
	first.SetAnswers([]models.AnswerItem{{QuestionID: "q1", Answer: models.TextAnswer("alpha")}})
	require.NoError(t, repo.SaveDraft(ctx, &first))
	require.NotZero(t, first.ID)
	require.Nil(t, first.SubmittedAt)

	second := models.Submission{AssignmentID: 1, Notes: "second pass"}
	second.SetAnswers([]models.AnswerItem{{QuestionID: "q1", Answer: models.TextAnswer("beta")}})
	require.NoError(t, repo.SaveDraft(ctx, &second))
	require.Equal(t, first.ID, second.ID, "expected the existing draft row to be reused")

	draft, err := repo.GetDraft(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "second pass", draft.Notes)
	answers := draft.AnswerMap()
	require.Equal(t, "beta", answers["q1"].Text)

	var count int64
	require.NoError(t, db.Model(&models.Submission{}).Where("assignment_id = ?", 1).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestSubmissionRepositoryGetDraftIgnoresFinalized(t *testing.T) {
	db := setupSubmissionTestDB(t, "finalized")
	repo := NewSubmissionRepository(db)
	ctx := context.Background()

	submittedAt := time.Now().Add(-time.Hour)
	finalized := models.Submission{AssignmentID: 2, Notes: "done", SubmittedAt: &submittedAt}
	require.NoError(t, repo.Create(ctx, &finalized))

	_, err := repo.GetDraft(ctx, 2)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSubmissionRepositoryLatestSubmissionOrdering(t *testing.T) {
	db := setupSubmissionTestDB(t, "latest")
	repo := NewSubmissionRepository(db)
	ctx := context.Background()

	older := time.Now().Add(-2 * time.Hour)
	newer := time.Now().Add(-30 * time.Minute)

	firstAttempt := models.Submission{AssignmentID: 3, Notes: "attempt one", SubmittedAt: &older}
	secondAttempt := models.Submission{AssignmentID: 3, Notes: "attempt two", SubmittedAt: &newer}
	draft := models.Submission{AssignmentID: 3, Notes: "work in progress"}
	require.NoError(t, repo.Create(ctx, &firstAttempt))
	require.NoError(t, repo.Create(ctx, &secondAttempt))
	require.NoError(t, repo.SaveDraft(ctx, &draft))

	latest, err := repo.LatestSubmission(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, "attempt two", latest.Notes)

	all, err := repo.ListByAssignment(ctx, 3)
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func setupSubmissionTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Submission{}))
	return db
}
