package repository

import (
	"context"
	"errors"

	"atelier/internal/models"

	"gorm.io/gorm"
)

// FolderRepository defines the interface for protected folder data operations
type FolderRepository interface {
	Create(ctx context.Context, folder *models.ProtectedFolder) error
	GetByMilestone(ctx context.Context, milestoneID uint) (*models.ProtectedFolder, error)
}

// folderRepository implements FolderRepository
type folderRepository struct {
	db *gorm.DB
}

// NewFolderRepository creates a new protected folder repository
func NewFolderRepository(db *gorm.DB) FolderRepository {
	return &folderRepository{db: db}
}

func (r *folderRepository) Create(ctx context.Context, folder *models.ProtectedFolder) error {
	if err := r.db.WithContext(ctx).Create(folder).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *folderRepository) GetByMilestone(ctx context.Context, milestoneID uint) (*models.ProtectedFolder, error) {
	var folder models.ProtectedFolder
	if err := r.db.WithContext(ctx).
		Where("milestone_id = ?", milestoneID).
		First(&folder).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // milestone has no designated folder
		}
		return nil, models.NewInternalError(err)
	}
	return &folder, nil
}
