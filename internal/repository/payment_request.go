package repository

import (
	"context"
	"errors"

	"atelier/internal/models"

	"gorm.io/gorm"
)

// PaymentRequestRepository defines the interface for payment request data operations
type PaymentRequestRepository interface {
	GetByID(ctx context.Context, id uint) (*models.PaymentRequest, error)
	GetActiveByMilestone(ctx context.Context, milestoneID uint) (*models.PaymentRequest, error)
	ListByMilestone(ctx context.Context, milestoneID uint) ([]models.PaymentRequest, error)
}

// paymentRequestRepository implements PaymentRequestRepository
type paymentRequestRepository struct {
	db *gorm.DB
}

// NewPaymentRequestRepository creates a new payment request repository
func NewPaymentRequestRepository(db *gorm.DB) PaymentRequestRepository {
	return &paymentRequestRepository{db: db}
}

func (r *paymentRequestRepository) GetByID(ctx context.Context, id uint) (*models.PaymentRequest, error) {
	var request models.PaymentRequest
	if err := r.db.WithContext(ctx).First(&request, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Payment request", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &request, nil
}

// GetActiveByMilestone returns the milestone's single non-terminal request,
// or nil if every request in its history has been decided.
func (r *paymentRequestRepository) GetActiveByMilestone(ctx context.Context, milestoneID uint) (*models.PaymentRequest, error) {
	var request models.PaymentRequest
	if err := r.db.WithContext(ctx).
		Where("milestone_id = ? AND status IN ?", milestoneID, []models.PaymentRequestStatus{
			models.PaymentRequestStatusPending,
			models.PaymentRequestStatusApproved,
		}).
		First(&request).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &request, nil
}

func (r *paymentRequestRepository) ListByMilestone(ctx context.Context, milestoneID uint) ([]models.PaymentRequest, error) {
	var requests []models.PaymentRequest
	if err := r.db.WithContext(ctx).
		Where("milestone_id = ?", milestoneID).
		Order("created_at ASC").
		Find(&requests).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return requests, nil
}
