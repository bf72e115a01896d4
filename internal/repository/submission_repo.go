package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/percorso-labs/percorso-api/internal/models"
)

// SubmissionRepository defines data operations for drafts and submissions.
// Both share one table: the row with a null submitted_at is the live draft.
type SubmissionRepository interface {
	GetDraft(ctx context.Context, assignmentID uint) (models.Submission, error)
	SaveDraft(ctx context.Context, draft *models.Submission) error
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	LatestSubmission(ctx context.Context, assignmentID uint) (models.Submission, error)
	ListByAssignment(ctx context.Context, assignmentID uint) ([]models.Submission, error)
	Create(ctx context.Context, submission *models.Submission) error
	Update(ctx context.Context, submission *models.Submission) error
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) GetDraft(ctx context.Context, assignmentID uint) (models.Submission, error) {
	var draft models.Submission
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Where("submitted_at IS NULL").
		Order("updated_at DESC").
		First(&draft).Error; err != nil {
		return models.Submission{}, err
	}

	return draft, nil
}

// SaveDraft upserts the live draft row for the assignment: when one exists it
// is overwritten in place, otherwise a new row with null submitted_at is
// created.
func (r *submissionRepository) SaveDraft(ctx context.Context, draft *models.Submission) error {
	existing, err := r.GetDraft(ctx, draft.AssignmentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			draft.SubmittedAt = nil
			return r.db.WithContext(ctx).Create(draft).Error
		}
		return err
	}

	existing.AnswersRaw = draft.AnswersRaw
	existing.AttachmentsRaw = draft.AttachmentsRaw
	existing.Notes = draft.Notes
	if err := r.db.WithContext(ctx).Save(&existing).Error; err != nil {
		return err
	}

	*draft = existing
	return nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) LatestSubmission(ctx context.Context, assignmentID uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Where("submitted_at IS NOT NULL").
		Order("submitted_at DESC").
		First(&submission).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) ListByAssignment(ctx context.Context, assignmentID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Where("submitted_at IS NOT NULL").
		Order("submitted_at DESC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) Update(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Save(submission).Error
}
