package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"atelier/internal/database"
	"atelier/internal/models"
	"atelier/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type escrowFixture struct {
	db      *gorm.DB
	svc     *EscrowService
	clock   *fakeClock
	project *models.Project
	vendor  *models.User
	client  *models.User
	admin   *models.User
}

func setupEscrow(t *testing.T) *escrowFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	vendor := &models.User{Username: "vendor", Email: "vendor@example.com", Password: "x"}
	client := &models.User{Username: "client", Email: "client@example.com", Password: "x"}
	admin := &models.User{Username: "admin", Email: "admin@example.com", Password: "x", IsAdmin: true}
	require.NoError(t, db.Create(vendor).Error)
	require.NoError(t, db.Create(client).Error)
	require.NoError(t, db.Create(admin).Error)

	project := &models.Project{
		Name:         "Site rebuild",
		ClientUserID: client.ID,
		VendorUserID: vendor.ID,
	}
	require.NoError(t, db.Create(project).Error)

	clock := &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	svc := NewEscrowService(db, nil, clock, 168*time.Hour, 3)

	return &escrowFixture{
		db:      db,
		svc:     svc,
		clock:   clock,
		project: project,
		vendor:  vendor,
		client:  client,
		admin:   admin,
	}
}

func (f *escrowFixture) addMilestone(t *testing.T, amountCents int64) *models.Milestone {
	t.Helper()
	milestone := &models.Milestone{
		ProjectID:   f.project.ID,
		Title:       "Milestone",
		AmountCents: amountCents,
		Status:      models.MilestoneStatusPending,
	}
	require.NoError(t, repository.NewMilestoneRepository(f.db).Create(context.Background(), milestone))
	return milestone
}

func (f *escrowFixture) addFolder(t *testing.T, milestoneID uint) *models.ProtectedFolder {
	t.Helper()
	folder := &models.ProtectedFolder{
		MilestoneID: milestoneID,
		Name:        "deliverables",
		Status:      models.FolderStatusLocked,
	}
	require.NoError(t, f.db.Create(folder).Error)
	return folder
}

// submitPayment drives a pending milestone through start and request-payment.
func (f *escrowFixture) submitPayment(t *testing.T, milestoneID uint) *models.PaymentRequest {
	t.Helper()
	ctx := context.Background()
	var m models.Milestone
	require.NoError(t, f.db.First(&m, milestoneID).Error)
	if m.Status == models.MilestoneStatusPending {
		_, err := f.svc.StartMilestone(ctx, f.vendor.ID, milestoneID)
		require.NoError(t, err)
	}
	_, request, err := f.svc.RequestPayment(ctx, f.vendor.ID, milestoneID, "work is ready")
	require.NoError(t, err)
	return request
}

func requireAppErrCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
}

func TestStartMilestone(t *testing.T) {
	f := setupEscrow(t)
	ctx := context.Background()
	m1 := f.addMilestone(t, 100000)

	_, err := f.svc.StartMilestone(ctx, f.client.ID, m1.ID)
	requireAppErrCode(t, err, models.CodeUnauthorized)

	started, err := f.svc.StartMilestone(ctx, f.vendor.ID, m1.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MilestoneStatusInProgress, started.Status)

	// Starting again conflicts with the already started milestone.
	_, err = f.svc.StartMilestone(ctx, f.vendor.ID, m1.ID)
	requireAppErrCode(t, err, models.CodeStaleState)
}

func TestStartMilestoneOutOfOrder(t *testing.T) {
	f := setupEscrow(t)
	ctx := context.Background()
	m1 := f.addMilestone(t, 100000)
	m2 := f.addMilestone(t, 50000)

	_, err := f.svc.StartMilestone(ctx, f.vendor.ID, m1.ID)
	require.NoError(t, err)

	// m1 is in progress, not done, so m2 cannot start.
	_, err = f.svc.StartMilestone(ctx, f.vendor.ID, m2.ID)
	requireAppErrCode(t, err, models.CodeOutOfOrder)
}

func TestStartMilestoneAfterPredecessorCompletes(t *testing.T) {
	f := setupEscrow(t)
	ctx := context.Background()
	m1 := f.addMilestone(t, 0)
	m2 := f.addMilestone(t, 50000)

	_, err := f.svc.StartMilestone(ctx, f.vendor.ID, m1.ID)
	require.NoError(t, err)
	_, err = f.svc.CompleteMilestone(ctx, f.vendor.ID, m1.ID, "done")
	require.NoError(t, err)

	started, err := f.svc.StartMilestone(ctx, f.vendor.ID, m2.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MilestoneStatusInProgress, started.Status)
}

func TestCompleteMilestoneZeroAmount(t *testing.T) {
	f := setupEscrow(t)
	ctx := context.Background()
	m := f.addMilestone(t, 0)
	f.addFolder(t, m.ID)

	_, err := f.svc.StartMilestone(ctx, f.vendor.ID, m.ID)
	require.NoError(t, err)

	_, err = f.svc.CompleteMilestone(ctx, f.vendor.ID, m.ID, "   ")
	requireAppErrCode(t, err, models.CodeValidation)

	completed, err := f.svc.CompleteMilestone(ctx, f.vendor.ID, m.ID, "done")
	require.NoError(t, err)
	assert.Equal(t, models.MilestoneStatusCompleted, completed.Status)
	assert.True(t, completed.IsPaid)
	assert.Equal(t, "done", completed.CompletionNote)
	require.NotNil(t, completed.CompletedAt)

	// No payment request ever existed.
	var requestCount int64
	require.NoError(t, f.db.Model(&models.PaymentRequest{}).Where("milestone_id = ?", m.ID).Count(&requestCount).Error)
	assert.Zero(t, requestCount)

	var folder models.ProtectedFolder
	require.NoError(t, f.db.Where("milestone_id = ?", m.ID).First(&folder).Error)
	assert.Equal(t, models.FolderStatusUnlocked, folder.Status)
	require.NotNil(t, folder.UnlockedAt)
}

func TestCompleteMilestoneWithEscrowFails(t *testing.T) {
	f := setupEscrow(t)
	ctx := context.Background()
	m := f.addMilestone(t, 100000)

	_, err := f.svc.StartMilestone(ctx, f.vendor.ID, m.ID)
	require.NoError(t, err)

	_, err = f.svc.CompleteMilestone(ctx, f.vendor.ID, m.ID, "done")
	requireAppErrCode(t, err, models.CodeValidation)
}

func TestRequestPaymentAndApproveFlow(t *testing.T) {
	f := setupEscrow(t)
	ctx := context.Background()
	m := f.addMilestone(t, 100000)
	f.addFolder(t, m.ID)

	_, err := f.svc.StartMilestone(ctx, f.vendor.ID, m.ID)
	require.NoError(t, err)

	updated, request, err := f.svc.RequestPayment(ctx, f.vendor.ID, m.ID, "all done")
	require.NoError(t, err)
	assert.Equal(t, models.MilestoneStatusReadyForReview, updated.Status)
	require.NotNil(t, updated.ReviewDeadline)
	assert.Equal(t, f.clock.Now().Add(168*time.Hour), *updated.ReviewDeadline)
	assert.Equal(t, models.PaymentRequestStatusPending, request.Status)
	assert.Equal(t, int64(100000), request.AmountCents)
	assert.NotEmpty(t, request.Reference)

	// A second request while one is undecided conflicts.
	_, _, err = f.svc.RequestPayment(ctx, f.vendor.ID, m.ID, "again")
	requireAppErrCode(t, err, models.CodeStaleState)

	// The vendor cannot approve their own request.
	_, err = f.svc.ApprovePayment(ctx, f.vendor.ID, request.ID)
	requireAppErrCode(t, err, models.CodeUnauthorized)

	released, err := f.svc.ApprovePayment(ctx, f.client.ID, request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MilestoneStatusCompleted, released.Status)
	assert.True(t, released.IsPaid)
	assert.Nil(t, released.ReviewDeadline)

	var settled models.PaymentRequest
	require.NoError(t, f.db.First(&settled, request.ID).Error)
	assert.Equal(t, models.PaymentRequestStatusCompleted, settled.Status)
	assert.False(t, settled.AutoApproved)
	require.NotNil(t, settled.DecidedAt)

	var reviews []models.Review
	require.NoError(t, f.db.Where("milestone_id = ?", m.ID).Order("review_number ASC").Find(&reviews).Error)
	require.Len(t, reviews, 1)
	assert.Equal(t, 1, reviews[0].ReviewNumber)
	assert.Equal(t, models.ReviewOutcomeApproved, reviews[0].Outcome)

	var folder models.ProtectedFolder
	require.NoError(t, f.db.Where("milestone_id = ?", m.ID).First(&folder).Error)
	assert.Equal(t, models.FolderStatusUnlocked, folder.Status)
}

func TestRejectPayment(t *testing.T) {
	f := setupEscrow(t)
	ctx := context.Background()
	m := f.addMilestone(t, 100000)
	request := f.submitPayment(t, m.ID)

	_, err := f.svc.RejectPayment(ctx, f.client.ID, request.ID, "")
	requireAppErrCode(t, err, models.CodeValidation)

	_, err = f.svc.RejectPayment(ctx, f.vendor.ID, request.ID, "not there yet")
	requireAppErrCode(t, err, models.CodeUnauthorized)

	updated, err := f.svc.RejectPayment(ctx, f.client.ID, request.ID, "not there yet")
	require.NoError(t, err)
	assert.Equal(t, models.MilestoneStatusChangesRequested, updated.Status)
	assert.False(t, updated.IsPaid)
	assert.Nil(t, updated.ReviewDeadline)

	var rejected models.PaymentRequest
	require.NoError(t, f.db.First(&rejected, request.ID).Error)
	assert.Equal(t, models.PaymentRequestStatusRejected, rejected.Status)
	assert.Equal(t, "not there yet", rejected.RejectionReason)

	// A rejected request admits no further decisions.
	_, err = f.svc.RejectPayment(ctx, f.client.ID, request.ID, "again")
	requireAppErrCode(t, err, models.CodeStaleState)
	_, err = f.svc.ApprovePayment(ctx, f.client.ID, request.ID)
	requireAppErrCode(t, err, models.CodeStaleState)
}

func TestRejectThenRerequestThenApproveHistory(t *testing.T) {
	f := setupEscrow(t)
	ctx := context.Background()
	m := f.addMilestone(t, 100000)

	first := f.submitPayment(t, m.ID)
	_, err := f.svc.RejectPayment(ctx, f.client.ID, first.ID, "needs polish")
	require.NoError(t, err)

	_, second, err := f.svc.RequestPayment(ctx, f.vendor.ID, m.ID, "polished")
	require.NoError(t, err)
	_, err = f.svc.ApprovePayment(ctx, f.client.ID, second.ID)
	require.NoError(t, err)

	var requests []models.PaymentRequest
	require.NoError(t, f.db.Where("milestone_id = ?", m.ID).Order("created_at ASC").Find(&requests).Error)
	require.Len(t, requests, 2)
	assert.Equal(t, models.PaymentRequestStatusRejected, requests[0].Status)
	assert.Equal(t, models.PaymentRequestStatusCompleted, requests[1].Status)

	var reviews []models.Review
	require.NoError(t, f.db.Where("milestone_id = ?", m.ID).Order("review_number ASC").Find(&reviews).Error)
	require.Len(t, reviews, 2)
	assert.Equal(t, models.ReviewOutcomeRejected, reviews[0].Outcome)
	assert.Equal(t, models.ReviewOutcomeApproved, reviews[1].Outcome)
}

func TestAmountSnapshotSurvivesRoadmapEdit(t *testing.T) {
	f := setupEscrow(t)
	ctx := context.Background()
	m := f.addMilestone(t, 100000)
	request := f.submitPayment(t, m.ID)

	// Roadmap edit while the request is in flight.
	require.NoError(t, f.db.Model(&models.Milestone{}).Where("id = ?", m.ID).
		Update("amount_cents", 200000).Error)

	_, err := f.svc.ApprovePayment(ctx, f.client.ID, request.ID)
	require.NoError(t, err)

	var settled models.PaymentRequest
	require.NoError(t, f.db.First(&settled, request.ID).Error)
	assert.Equal(t, int64(100000), settled.AmountCents)
}

func TestDisputeThreshold(t *testing.T) {
	f := setupEscrow(t)
	ctx := context.Background()
	m := f.addMilestone(t, 100000)

	for i := 0; i < 2; i++ {
		request := f.submitPayment(t, m.ID)
		_, err := f.svc.RejectPayment(ctx, f.client.ID, request.ID, "no")
		require.NoError(t, err)
	}

	can, err := f.svc.CanOpenDispute(ctx, m.ID)
	require.NoError(t, err)
	assert.False(t, can)

	_, err = f.svc.OpenDispute(ctx, f.vendor.ID, m.ID, "stonewalled")
	requireAppErrCode(t, err, models.CodeEscalationNotAllowed)

	request := f.submitPayment(t, m.ID)
	_, err = f.svc.RejectPayment(ctx, f.client.ID, request.ID, "no")
	require.NoError(t, err)

	can, err = f.svc.CanOpenDispute(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, can)

	// A fourth rejection keeps eligibility true, it does not change the fact.
	request = f.submitPayment(t, m.ID)
	_, err = f.svc.RejectPayment(ctx, f.client.ID, request.ID, "still no")
	require.NoError(t, err)

	can, err = f.svc.CanOpenDispute(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, can)

	count, err := f.svc.RejectionCount(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestOpenDispute(t *testing.T) {
	f := setupEscrow(t)
	ctx := context.Background()
	m := f.addMilestone(t, 100000)

	for i := 0; i < 3; i++ {
		request := f.submitPayment(t, m.ID)
		_, err := f.svc.RejectPayment(ctx, f.client.ID, request.ID, "no")
		require.NoError(t, err)
	}

	_, err := f.svc.OpenDispute(ctx, f.vendor.ID, m.ID, "")
	requireAppErrCode(t, err, models.CodeValidation)

	_, err = f.svc.OpenDispute(ctx, f.client.ID, m.ID, "stonewalled")
	requireAppErrCode(t, err, models.CodeUnauthorized)

	disputed, err := f.svc.OpenDispute(ctx, f.vendor.ID, m.ID, "stonewalled")
	require.NoError(t, err)
	assert.Equal(t, models.MilestoneStatusInDispute, disputed.Status)

	var reviews []models.Review
	require.NoError(t, f.db.Where("milestone_id = ?", m.ID).Order("review_number ASC").Find(&reviews).Error)
	require.Len(t, reviews, 4)
	assert.Equal(t, models.ReviewOutcomeDisputed, reviews[3].Outcome)

	// Once in dispute, the review cycle is frozen.
	_, _, err = f.svc.RequestPayment(ctx, f.vendor.ID, m.ID, "again")
	requireAppErrCode(t, err, models.CodeStaleState)
	_, err = f.svc.OpenDispute(ctx, f.vendor.ID, m.ID, "again")
	requireAppErrCode(t, err, models.CodeStaleState)
}

func TestResolveDispute(t *testing.T) {
	f := setupEscrow(t)
	ctx := context.Background()

	openDisputed := func() *models.Milestone {
		m := f.addMilestone(t, 100000)
		for i := 0; i < 3; i++ {
			request := f.submitPayment(t, m.ID)
			_, err := f.svc.RejectPayment(ctx, f.client.ID, request.ID, "no")
			require.NoError(t, err)
		}
		disputed, err := f.svc.OpenDispute(ctx, f.vendor.ID, m.ID, "stonewalled")
		require.NoError(t, err)
		return disputed
	}

	// Projects are sequential, so complete each disputed milestone before
	// opening the next by resolving in the vendor's favor.
	release := openDisputed()
	f.addFolder(t, release.ID)

	_, err := f.svc.ResolveDispute(ctx, f.vendor.ID, release.ID, DisputeOutcomeRelease, "")
	requireAppErrCode(t, err, models.CodeUnauthorized)
	_, err = f.svc.ResolveDispute(ctx, f.admin.ID, release.ID, "split", "")
	requireAppErrCode(t, err, models.CodeValidation)

	resolved, err := f.svc.ResolveDispute(ctx, f.admin.ID, release.ID, DisputeOutcomeRelease, "mediation found for vendor")
	require.NoError(t, err)
	assert.Equal(t, models.MilestoneStatusCompleted, resolved.Status)
	assert.True(t, resolved.IsPaid)

	var folder models.ProtectedFolder
	require.NoError(t, f.db.Where("milestone_id = ?", release.ID).First(&folder).Error)
	assert.Equal(t, models.FolderStatusUnlocked, folder.Status)

	rework := openDisputed()
	resolved, err = f.svc.ResolveDispute(ctx, f.admin.ID, rework.ID, DisputeOutcomeRework, "")
	require.NoError(t, err)
	assert.Equal(t, models.MilestoneStatusInProgress, resolved.Status)
	assert.False(t, resolved.IsPaid)

	// Resolving twice conflicts.
	_, err = f.svc.ResolveDispute(ctx, f.admin.ID, rework.ID, DisputeOutcomeRework, "")
	requireAppErrCode(t, err, models.CodeStaleState)
}

func TestAutoApprove(t *testing.T) {
	f := setupEscrow(t)
	ctx := context.Background()
	m := f.addMilestone(t, 50000)
	request := f.submitPayment(t, m.ID)

	// Deadline not yet elapsed.
	_, err := f.svc.AutoApprove(ctx, m.ID)
	requireAppErrCode(t, err, models.CodeStaleState)

	f.clock.Advance(169 * time.Hour)

	released, err := f.svc.AutoApprove(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MilestoneStatusCompleted, released.Status)
	assert.True(t, released.IsPaid)

	var settled models.PaymentRequest
	require.NoError(t, f.db.First(&settled, request.ID).Error)
	assert.Equal(t, models.PaymentRequestStatusCompleted, settled.Status)
	assert.True(t, settled.AutoApproved)
}

func TestAutoApproveLosesRaceToClientReject(t *testing.T) {
	f := setupEscrow(t)
	ctx := context.Background()
	m := f.addMilestone(t, 50000)
	request := f.submitPayment(t, m.ID)

	f.clock.Advance(169 * time.Hour)

	// The client's rejection lands first; the sweep's auto-approval must see
	// stale state and must not double-pay.
	_, err := f.svc.RejectPayment(ctx, f.client.ID, request.ID, "missed the brief")
	require.NoError(t, err)

	_, err = f.svc.AutoApprove(ctx, m.ID)
	requireAppErrCode(t, err, models.CodeStaleState)

	var reloaded models.Milestone
	require.NoError(t, f.db.First(&reloaded, m.ID).Error)
	assert.Equal(t, models.MilestoneStatusChangesRequested, reloaded.Status)
	assert.False(t, reloaded.IsPaid)

	var settled models.PaymentRequest
	require.NoError(t, f.db.First(&settled, request.ID).Error)
	assert.Equal(t, models.PaymentRequestStatusRejected, settled.Status)
	assert.False(t, settled.AutoApproved)

	// Exactly one terminal transition, exactly one review row.
	var reviewCount int64
	require.NoError(t, f.db.Model(&models.Review{}).Where("milestone_id = ?", m.ID).Count(&reviewCount).Error)
	assert.Equal(t, int64(1), reviewCount)
}

func TestClientDecisionLosesRaceToSweep(t *testing.T) {
	f := setupEscrow(t)
	ctx := context.Background()
	m := f.addMilestone(t, 50000)
	request := f.submitPayment(t, m.ID)

	f.clock.Advance(169 * time.Hour)

	_, err := f.svc.AutoApprove(ctx, m.ID)
	require.NoError(t, err)

	// The window closed with the sweep's commit; a late client decision is a
	// conflict, never a silent success.
	_, err = f.svc.RejectPayment(ctx, f.client.ID, request.ID, "too late")
	requireAppErrCode(t, err, models.CodeStaleState)

	var reloaded models.Milestone
	require.NoError(t, f.db.First(&reloaded, m.ID).Error)
	assert.True(t, reloaded.IsPaid)
}

func TestPaidImpliesCompleted(t *testing.T) {
	f := setupEscrow(t)
	ctx := context.Background()

	zero := f.addMilestone(t, 0)
	_, err := f.svc.StartMilestone(ctx, f.vendor.ID, zero.ID)
	require.NoError(t, err)
	_, err = f.svc.CompleteMilestone(ctx, f.vendor.ID, zero.ID, "done")
	require.NoError(t, err)

	escrowed := f.addMilestone(t, 75000)
	request := f.submitPayment(t, escrowed.ID)
	_, err = f.svc.ApprovePayment(ctx, f.client.ID, request.ID)
	require.NoError(t, err)

	var paid []models.Milestone
	require.NoError(t, f.db.Where("is_paid = ?", true).Find(&paid).Error)
	require.NotEmpty(t, paid)
	for _, m := range paid {
		assert.Equal(t, models.MilestoneStatusCompleted, m.Status)
	}
}
