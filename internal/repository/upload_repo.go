package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/percorso-labs/percorso-api/internal/models"
)

// UploadRepository records metadata for attachment uploads so exercise
// files can be audited independently of the storage backend.
type UploadRepository interface {
	Create(ctx context.Context, record *models.UploadRecord) error
}

// NewUploadRepository constructs a repository for upload records.
func NewUploadRepository(db *gorm.DB) UploadRepository {
	return &uploadRepository{db: db}
}

type uploadRepository struct {
	db *gorm.DB
}

func (r *uploadRepository) Create(ctx context.Context, record *models.UploadRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}
