package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/percorso-labs/percorso-api/internal/models"
)

// RevisionRepository persists the append-only revision trail. There are no
// update or delete operations on purpose.
type RevisionRepository interface {
	Append(ctx context.Context, entry *models.RevisionEntry) error
	ListByAssignment(ctx context.Context, assignmentID uint) ([]models.RevisionEntry, error)
	LatestByAssignment(ctx context.Context, assignmentID uint) (models.RevisionEntry, error)
}

type revisionRepository struct {
	db *gorm.DB
}

// NewRevisionRepository constructs the revision trail repository.
func NewRevisionRepository(db *gorm.DB) RevisionRepository {
	return &revisionRepository{db: db}
}

func (r *revisionRepository) Append(ctx context.Context, entry *models.RevisionEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *revisionRepository) ListByAssignment(ctx context.Context, assignmentID uint) ([]models.RevisionEntry, error) {
	var entries []models.RevisionEntry
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("created_at DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *revisionRepository) LatestByAssignment(ctx context.Context, assignmentID uint) (models.RevisionEntry, error) {
	var entry models.RevisionEntry
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("created_at DESC").
		First(&entry).Error; err != nil {
		return models.RevisionEntry{}, err
	}

	return entry, nil
}
