package repository

import (
	"context"
	"errors"
	"time"

	"atelier/internal/models"

	"gorm.io/gorm"
)

// MilestoneRepository defines the interface for milestone data operations
type MilestoneRepository interface {
	Create(ctx context.Context, milestone *models.Milestone) error
	GetByID(ctx context.Context, id uint) (*models.Milestone, error)
	GetWithHistory(ctx context.Context, id uint) (*models.Milestone, error)
	ListByProject(ctx context.Context, projectID uint) ([]models.Milestone, error)
	GetByProjectPosition(ctx context.Context, projectID uint, position int) (*models.Milestone, error)
	Update(ctx context.Context, milestone *models.Milestone) error
	Delete(ctx context.Context, id uint) error
	DueForAutoApproval(ctx context.Context, now time.Time) ([]models.Milestone, error)
}

// milestoneRepository implements MilestoneRepository
type milestoneRepository struct {
	db *gorm.DB
}

// NewMilestoneRepository creates a new milestone repository
func NewMilestoneRepository(db *gorm.DB) MilestoneRepository {
	return &milestoneRepository{db: db}
}

// Create appends the milestone to the end of the project roadmap. Position
// assignment and the contiguity invariant are handled here so callers never
// pick positions themselves.
func (r *milestoneRepository) Create(ctx context.Context, milestone *models.Milestone) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxPosition int
		if err := tx.Model(&models.Milestone{}).
			Where("project_id = ?", milestone.ProjectID).
			Select("COALESCE(MAX(position), 0)").
			Scan(&maxPosition).Error; err != nil {
			return err
		}
		milestone.Position = maxPosition + 1
		return tx.Create(milestone).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *milestoneRepository) GetByID(ctx context.Context, id uint) (*models.Milestone, error) {
	var milestone models.Milestone
	if err := r.db.WithContext(ctx).Preload("Project").First(&milestone, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Milestone", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &milestone, nil
}

func (r *milestoneRepository) GetWithHistory(ctx context.Context, id uint) (*models.Milestone, error) {
	var milestone models.Milestone
	if err := r.db.WithContext(ctx).
		Preload("Project").
		Preload("PaymentRequests", func(db *gorm.DB) *gorm.DB {
			return db.Order("payment_requests.created_at ASC")
		}).
		Preload("Reviews", func(db *gorm.DB) *gorm.DB {
			return db.Order("reviews.review_number ASC")
		}).
		Preload("Folder").
		First(&milestone, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Milestone", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &milestone, nil
}

func (r *milestoneRepository) ListByProject(ctx context.Context, projectID uint) ([]models.Milestone, error) {
	var milestones []models.Milestone
	if err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("position ASC").
		Find(&milestones).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return milestones, nil
}

func (r *milestoneRepository) GetByProjectPosition(ctx context.Context, projectID uint, position int) (*models.Milestone, error) {
	var milestone models.Milestone
	if err := r.db.WithContext(ctx).
		Where("project_id = ? AND position = ?", projectID, position).
		First(&milestone).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // no milestone at that position
		}
		return nil, models.NewInternalError(err)
	}
	return &milestone, nil
}

func (r *milestoneRepository) Update(ctx context.Context, milestone *models.Milestone) error {
	if err := r.db.WithContext(ctx).Save(milestone).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Delete removes a milestone and compacts the positions of the milestones
// after it, keeping the roadmap contiguous. Lifecycle checks (pending, no
// history) are the service's responsibility.
func (r *milestoneRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var milestone models.Milestone
		if err := tx.First(&milestone, id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Milestone{}, id).Error; err != nil {
			return err
		}
		return tx.Model(&models.Milestone{}).
			Where("project_id = ? AND position > ?", milestone.ProjectID, milestone.Position).
			UpdateColumn("position", gorm.Expr("position - 1")).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Milestone", id)
		}
		return models.NewInternalError(err)
	}
	return nil
}

// DueForAutoApproval returns milestones whose review deadline has passed and
// that are still awaiting the client. The sweep re-checks each candidate
// inside its own transaction before acting, so a stale row here is harmless.
func (r *milestoneRepository) DueForAutoApproval(ctx context.Context, now time.Time) ([]models.Milestone, error) {
	var milestones []models.Milestone
	if err := r.db.WithContext(ctx).
		Where("status = ? AND review_deadline IS NOT NULL AND review_deadline <= ?",
			models.MilestoneStatusReadyForReview, now).
		Order("review_deadline ASC").
		Find(&milestones).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return milestones, nil
}
