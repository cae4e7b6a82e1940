package repository

import (
	"context"

	"atelier/internal/models"

	"gorm.io/gorm"
)

// ReviewRepository defines the interface for review history data operations.
// Reviews are append-only; there are deliberately no update or delete methods.
type ReviewRepository interface {
	ListByMilestone(ctx context.Context, milestoneID uint) ([]models.Review, error)
	CountByMilestone(ctx context.Context, milestoneID uint) (int, error)
	TrailingRejectionCount(ctx context.Context, milestoneID uint) (int, error)
}

// reviewRepository implements ReviewRepository
type reviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository creates a new review repository
func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) ListByMilestone(ctx context.Context, milestoneID uint) ([]models.Review, error) {
	var reviews []models.Review
	if err := r.db.WithContext(ctx).
		Where("milestone_id = ?", milestoneID).
		Order("review_number ASC").
		Find(&reviews).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return reviews, nil
}

func (r *reviewRepository) CountByMilestone(ctx context.Context, milestoneID uint) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("milestone_id = ?", milestoneID).
		Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return int(count), nil
}

// TrailingRejectionCount returns the length of the contiguous run of rejected
// reviews at the tail of the milestone's history, i.e. rejections since the
// last approved or disputed review. Dispute eligibility is computed off this
// run, not the whole history.
func (r *reviewRepository) TrailingRejectionCount(ctx context.Context, milestoneID uint) (int, error) {
	var lastBreak int
	if err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("milestone_id = ? AND outcome <> ?", milestoneID, models.ReviewOutcomeRejected).
		Select("COALESCE(MAX(review_number), 0)").
		Scan(&lastBreak).Error; err != nil {
		return 0, models.NewInternalError(err)
	}

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("milestone_id = ? AND outcome = ? AND review_number > ?",
			milestoneID, models.ReviewOutcomeRejected, lastBreak).
		Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return int(count), nil
}
