package repository

import (
	"context"
	"testing"

	"atelier/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func appendReview(t *testing.T, db *gorm.DB, milestoneID uint, number int, outcome models.ReviewOutcome) {
	t.Helper()
	require.NoError(t, db.Create(&models.Review{
		MilestoneID:  milestoneID,
		ReviewNumber: number,
		Outcome:      outcome,
	}).Error)
}

func TestTrailingRejectionCount(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReviewRepository(db)
	ctx := context.Background()
	project := createTestProject(t, db)

	milestone := &models.Milestone{ProjectID: project.ID, Title: "M", Position: 1}
	require.NoError(t, db.Create(milestone).Error)

	count, err := repo.TrailingRejectionCount(ctx, milestone.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count, "no reviews yet")

	appendReview(t, db, milestone.ID, 1, models.ReviewOutcomeRejected)
	appendReview(t, db, milestone.ID, 2, models.ReviewOutcomeRejected)

	count, err = repo.TrailingRejectionCount(ctx, milestone.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// A dispute breaks the run; rejections after it start a new one.
	appendReview(t, db, milestone.ID, 3, models.ReviewOutcomeDisputed)

	count, err = repo.TrailingRejectionCount(ctx, milestone.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	appendReview(t, db, milestone.ID, 4, models.ReviewOutcomeRejected)

	count, err = repo.TrailingRejectionCount(ctx, milestone.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestReviewListAndCount(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReviewRepository(db)
	ctx := context.Background()
	project := createTestProject(t, db)

	milestone := &models.Milestone{ProjectID: project.ID, Title: "M", Position: 1}
	require.NoError(t, db.Create(milestone).Error)

	appendReview(t, db, milestone.ID, 1, models.ReviewOutcomeRejected)
	appendReview(t, db, milestone.ID, 2, models.ReviewOutcomeApproved)

	reviews, err := repo.ListByMilestone(ctx, milestone.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, 1, reviews[0].ReviewNumber)
	assert.Equal(t, 2, reviews[1].ReviewNumber)

	count, err := repo.CountByMilestone(ctx, milestone.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestPaymentRequestGetActiveByMilestone(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPaymentRequestRepository(db)
	ctx := context.Background()
	project := createTestProject(t, db)

	milestone := &models.Milestone{ProjectID: project.ID, Title: "M", Position: 1}
	require.NoError(t, db.Create(milestone).Error)

	active, err := repo.GetActiveByMilestone(ctx, milestone.ID)
	require.NoError(t, err)
	assert.Nil(t, active, "no requests yet")

	rejected := &models.PaymentRequest{Reference: "ref-1", MilestoneID: milestone.ID,
		Status: models.PaymentRequestStatusRejected, AmountCents: 1000}
	pending := &models.PaymentRequest{Reference: "ref-2", MilestoneID: milestone.ID,
		Status: models.PaymentRequestStatusPending, AmountCents: 1000}
	require.NoError(t, db.Create(rejected).Error)
	require.NoError(t, db.Create(pending).Error)

	active, err = repo.GetActiveByMilestone(ctx, milestone.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, pending.ID, active.ID)

	history, err := repo.ListByMilestone(ctx, milestone.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2, "terminal requests are retained as audit records")
}
