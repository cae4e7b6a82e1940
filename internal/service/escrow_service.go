// Package service implements the milestone escrow lifecycle: the state
// machine, the payment request ledger, the review cycle tracker, dispute
// escalation, and the protected-folder unlock cascade.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"atelier/internal/models"
	"atelier/internal/notifications"
	"atelier/internal/observability"
	"atelier/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Triggers for a fund release, used for metrics and audit.
const (
	ReleaseTriggerClient  = "client"
	ReleaseTriggerSweep   = "sweep"
	ReleaseTriggerDispute = "dispute"
)

// DisputeOutcome is the external mediation decision fed back into the machine.
type DisputeOutcome string

const (
	// DisputeOutcomeRework sends the milestone back to the vendor.
	DisputeOutcomeRework DisputeOutcome = "rework"
	// DisputeOutcomeRelease resolves in the vendor's favor and releases funds.
	DisputeOutcomeRelease DisputeOutcome = "release"
)

// EscrowService owns every write to milestones, payment requests, reviews,
// and protected folders. Each command runs in a transaction that takes a row
// lock on the milestone, so commands on the same milestone are serialized;
// the loser of any race observes the winner's committed state and fails with
// a stale-state conflict.
type EscrowService struct {
	db               *gorm.DB
	notifier         *notifications.Notifier
	clock            Clock
	reviewWindow     time.Duration
	disputeThreshold int
}

// NewEscrowService returns a new EscrowService. A nil clock defaults to the
// wall clock.
func NewEscrowService(
	db *gorm.DB,
	notifier *notifications.Notifier,
	clock Clock,
	reviewWindow time.Duration,
	disputeThreshold int,
) *EscrowService {
	if clock == nil {
		clock = SystemClock()
	}
	return &EscrowService{
		db:               db,
		notifier:         notifier,
		clock:            clock,
		reviewWindow:     reviewWindow,
		disputeThreshold: disputeThreshold,
	}
}

// StartMilestone moves a pending milestone into progress. Only the project's
// vendor may start work, and only once the preceding milestone on the roadmap
// is done.
func (s *EscrowService) StartMilestone(ctx context.Context, actorID, milestoneID uint) (*models.Milestone, error) {
	var milestone *models.Milestone

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		milestone, err = lockMilestone(tx, milestoneID)
		if err != nil {
			return err
		}
		project, err := loadProject(tx, milestone.ProjectID)
		if err != nil {
			return err
		}
		if !project.IsVendor(actorID) {
			return models.NewUnauthorizedError("Only the project vendor can start a milestone")
		}

		if milestone.Status != models.MilestoneStatusPending {
			return models.NewStaleStateError(
				fmt.Sprintf("Milestone is %s, not pending", milestone.Status))
		}
		if milestone.Position > 1 {
			var prev models.Milestone
			err := tx.Where("project_id = ? AND position = ?", milestone.ProjectID, milestone.Position-1).
				First(&prev).Error
			if err != nil {
				return err
			}
			if !prev.IsDone() {
				return models.NewOutOfOrderError(fmt.Sprintf(
					"Milestone %d cannot start until milestone %d is completed", milestone.Position, prev.Position))
			}
		}

		if err := transition(milestone, models.MilestoneStatusInProgress); err != nil {
			return err
		}
		return tx.Save(milestone).Error
	})
	if txErr != nil {
		return nil, s.commandError(txErr)
	}

	observability.MilestoneTransitions.WithLabelValues(string(models.MilestoneStatusInProgress)).Inc()
	s.publish(ctx, notifications.Event{
		Name:        notifications.EventMilestoneStarted,
		ProjectID:   milestone.ProjectID,
		MilestoneID: milestone.ID,
		ActorUserID: actorID,
	})
	return milestone, nil
}

// CompleteMilestone closes out a zero-escrow milestone directly. Milestones
// with a positive amount complete through payment approval instead. A
// non-empty completion note is required.
func (s *EscrowService) CompleteMilestone(ctx context.Context, actorID, milestoneID uint, note string) (*models.Milestone, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, s.commandError(models.NewValidationError("Completion note is required"))
	}

	var milestone *models.Milestone
	var unlocked bool

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		milestone, err = lockMilestone(tx, milestoneID)
		if err != nil {
			return err
		}
		project, err := loadProject(tx, milestone.ProjectID)
		if err != nil {
			return err
		}
		if !project.IsVendor(actorID) {
			return models.NewUnauthorizedError("Only the project vendor can complete a milestone")
		}

		if milestone.Status != models.MilestoneStatusInProgress {
			return models.NewStaleStateError(
				fmt.Sprintf("Milestone is %s, not in progress", milestone.Status))
		}
		if milestone.HasEscrow() {
			return models.NewValidationError("Escrowed milestones are completed through payment approval")
		}

		if err := transition(milestone, models.MilestoneStatusCompleted); err != nil {
			return err
		}
		now := s.clock.Now()
		milestone.CompletionNote = note
		milestone.CompletedAt = &now
		milestone.IsPaid = true // zero escrow, nothing left owing
		if err := tx.Save(milestone).Error; err != nil {
			return err
		}

		unlocked, err = unlockFolder(tx, milestone.ID, now)
		return err
	})
	if txErr != nil {
		return nil, s.commandError(txErr)
	}

	observability.MilestoneTransitions.WithLabelValues(string(models.MilestoneStatusCompleted)).Inc()
	s.publish(ctx, notifications.Event{
		Name:        notifications.EventMilestoneCompleted,
		ProjectID:   milestone.ProjectID,
		MilestoneID: milestone.ID,
		ActorUserID: actorID,
		Detail:      note,
	})
	if unlocked {
		s.publishFolderUnlocked(ctx, milestone, actorID)
	}
	return milestone, nil
}

// RequestPayment opens a payment request against an escrowed milestone,
// snapshotting the amount and starting the client's review window. The
// milestone moves to ready_for_review.
func (s *EscrowService) RequestPayment(ctx context.Context, actorID, milestoneID uint, vendorNote string) (*models.Milestone, *models.PaymentRequest, error) {
	var milestone *models.Milestone
	var request *models.PaymentRequest

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		milestone, err = lockMilestone(tx, milestoneID)
		if err != nil {
			return err
		}
		project, err := loadProject(tx, milestone.ProjectID)
		if err != nil {
			return err
		}
		if !project.IsVendor(actorID) {
			return models.NewUnauthorizedError("Only the project vendor can request payment")
		}

		if milestone.Status != models.MilestoneStatusInProgress &&
			milestone.Status != models.MilestoneStatusChangesRequested {
			return models.NewStaleStateError(
				fmt.Sprintf("Milestone is %s, payment can only be requested while work is in progress or changes were requested", milestone.Status))
		}
		if !milestone.HasEscrow() {
			return models.NewValidationError("Milestone holds no escrow; complete it directly")
		}

		active, err := repository.NewPaymentRequestRepository(tx).GetActiveByMilestone(ctx, milestone.ID)
		if err != nil {
			return err
		}
		if active != nil {
			return models.NewStaleStateError("Milestone already has an undecided payment request")
		}

		now := s.clock.Now()
		deadline := now.Add(s.reviewWindow)
		request = &models.PaymentRequest{
			Reference:   uuid.NewString(),
			MilestoneID: milestone.ID,
			Status:      models.PaymentRequestStatusPending,
			AmountCents: milestone.AmountCents,
			VendorNote:  strings.TrimSpace(vendorNote),
		}
		if err := tx.Create(request).Error; err != nil {
			return err
		}

		if err := transition(milestone, models.MilestoneStatusReadyForReview); err != nil {
			return err
		}
		milestone.SubmittedAt = &now
		milestone.ReviewDeadline = &deadline
		return tx.Save(milestone).Error
	})
	if txErr != nil {
		return nil, nil, s.commandError(txErr)
	}

	observability.MilestoneTransitions.WithLabelValues(string(models.MilestoneStatusReadyForReview)).Inc()
	s.publish(ctx, notifications.Event{
		Name:        notifications.EventPaymentRequested,
		ProjectID:   milestone.ProjectID,
		MilestoneID: milestone.ID,
		ActorUserID: actorID,
		AmountCents: request.AmountCents,
	})
	return milestone, request, nil
}

// ApprovePayment records the client's explicit decision to release funds. The
// request terminates, a review is appended, the milestone completes as paid,
// and the protected folder unlocks, all in one transaction.
func (s *EscrowService) ApprovePayment(ctx context.Context, actorID, requestID uint) (*models.Milestone, error) {
	request, err := repository.NewPaymentRequestRepository(s.db).GetByID(ctx, requestID)
	if err != nil {
		return nil, s.commandError(err)
	}

	var milestone *models.Milestone
	var unlocked bool

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		milestone, err = lockMilestone(tx, request.MilestoneID)
		if err != nil {
			return err
		}
		project, err := loadProject(tx, milestone.ProjectID)
		if err != nil {
			return err
		}
		if !project.IsClient(actorID) {
			return models.NewUnauthorizedError("Only the project client can approve a payment request")
		}

		// Reload under the milestone lock; the first read raced freely.
		if err := tx.First(request, request.ID).Error; err != nil {
			return err
		}
		unlocked, err = s.release(ctx, tx, milestone, request, false, "")
		return err
	})
	if txErr != nil {
		return nil, s.commandError(txErr)
	}

	s.recordRelease(ctx, milestone, request, ReleaseTriggerClient, actorID, unlocked)
	return milestone, nil
}

// AutoApprove releases funds for a milestone whose review deadline elapsed
// with the payment request still undecided. The sweep calls it with candidate
// milestone ids from a free-running scan; every precondition is re-checked
// under the row lock, so stale candidates fail with a conflict instead of
// double-paying.
func (s *EscrowService) AutoApprove(ctx context.Context, milestoneID uint) (*models.Milestone, error) {
	var milestone *models.Milestone
	var request *models.PaymentRequest
	var unlocked bool

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		milestone, err = lockMilestone(tx, milestoneID)
		if err != nil {
			return err
		}
		if milestone.Status != models.MilestoneStatusReadyForReview {
			return models.NewStaleStateError(
				fmt.Sprintf("Milestone is %s, not awaiting review", milestone.Status))
		}
		now := s.clock.Now()
		if milestone.ReviewDeadline == nil || milestone.ReviewDeadline.After(now) {
			return models.NewStaleStateError("Review deadline has not elapsed")
		}

		request, err = repository.NewPaymentRequestRepository(tx).GetActiveByMilestone(ctx, milestone.ID)
		if err != nil {
			return err
		}
		if request == nil || request.Status != models.PaymentRequestStatusPending {
			return models.NewStaleStateError("Payment request is no longer pending")
		}

		unlocked, err = s.release(ctx, tx, milestone, request, true, "Auto-approved after review deadline")
		return err
	})
	if txErr != nil {
		return nil, s.commandError(txErr)
	}

	s.recordRelease(ctx, milestone, request, ReleaseTriggerSweep, 0, unlocked)
	return milestone, nil
}

// RejectPayment records the client's request for changes. The payment request
// terminates as rejected, a review is appended, and the milestone returns to
// the vendor as changes_requested. A non-empty reason is required.
func (s *EscrowService) RejectPayment(ctx context.Context, actorID, requestID uint, reason string) (*models.Milestone, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, s.commandError(models.NewValidationError("Rejection reason is required"))
	}

	request, err := repository.NewPaymentRequestRepository(s.db).GetByID(ctx, requestID)
	if err != nil {
		return nil, s.commandError(err)
	}

	var milestone *models.Milestone

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		milestone, err = lockMilestone(tx, request.MilestoneID)
		if err != nil {
			return err
		}
		project, err := loadProject(tx, milestone.ProjectID)
		if err != nil {
			return err
		}
		if !project.IsClient(actorID) {
			return models.NewUnauthorizedError("Only the project client can reject a payment request")
		}

		if err := tx.First(request, request.ID).Error; err != nil {
			return err
		}
		if request.Status != models.PaymentRequestStatusPending {
			return models.NewStaleStateError(
				fmt.Sprintf("Payment request is %s, not pending", request.Status))
		}

		now := s.clock.Now()
		request.Status = models.PaymentRequestStatusRejected
		request.RejectionReason = reason
		request.DecidedAt = &now
		if err := tx.Save(request).Error; err != nil {
			return err
		}

		if err := appendReview(ctx, tx, milestone.ID, models.ReviewOutcomeRejected, reason); err != nil {
			return err
		}

		if err := transition(milestone, models.MilestoneStatusChangesRequested); err != nil {
			return err
		}
		milestone.ReviewDeadline = nil
		return tx.Save(milestone).Error
	})
	if txErr != nil {
		return nil, s.commandError(txErr)
	}

	observability.MilestoneTransitions.WithLabelValues(string(models.MilestoneStatusChangesRequested)).Inc()
	s.publish(ctx, notifications.Event{
		Name:        notifications.EventChangesRequested,
		ProjectID:   milestone.ProjectID,
		MilestoneID: milestone.ID,
		ActorUserID: actorID,
		Detail:      reason,
	})
	return milestone, nil
}

// OpenDispute escalates a milestone to mediation. The vendor may escalate only
// from changes_requested, and only after the trailing run of rejections has
// reached the configured threshold.
func (s *EscrowService) OpenDispute(ctx context.Context, actorID, milestoneID uint, reason string) (*models.Milestone, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, s.commandError(models.NewValidationError("Dispute reason is required"))
	}

	var milestone *models.Milestone

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		milestone, err = lockMilestone(tx, milestoneID)
		if err != nil {
			return err
		}
		project, err := loadProject(tx, milestone.ProjectID)
		if err != nil {
			return err
		}
		if !project.IsVendor(actorID) {
			return models.NewUnauthorizedError("Only the project vendor can open a dispute")
		}

		if milestone.Status != models.MilestoneStatusChangesRequested {
			return models.NewStaleStateError(
				fmt.Sprintf("Milestone is %s, disputes open only after changes were requested", milestone.Status))
		}

		rejections, err := repository.NewReviewRepository(tx).TrailingRejectionCount(ctx, milestone.ID)
		if err != nil {
			return err
		}
		if rejections < s.disputeThreshold {
			return models.NewEscalationNotAllowedError(fmt.Sprintf(
				"Dispute requires %d consecutive rejections, milestone has %d", s.disputeThreshold, rejections))
		}

		if err := appendReview(ctx, tx, milestone.ID, models.ReviewOutcomeDisputed, reason); err != nil {
			return err
		}
		if err := transition(milestone, models.MilestoneStatusInDispute); err != nil {
			return err
		}
		return tx.Save(milestone).Error
	})
	if txErr != nil {
		return nil, s.commandError(txErr)
	}

	observability.MilestoneTransitions.WithLabelValues(string(models.MilestoneStatusInDispute)).Inc()
	s.publish(ctx, notifications.Event{
		Name:        notifications.EventDisputeOpened,
		ProjectID:   milestone.ProjectID,
		MilestoneID: milestone.ID,
		ActorUserID: actorID,
		Detail:      reason,
	})
	return milestone, nil
}

// ResolveDispute applies an external mediation decision. Rework sends the
// milestone back to in_progress; release completes it in the vendor's favor,
// marks it paid, and unlocks the folder. Admin only.
func (s *EscrowService) ResolveDispute(ctx context.Context, actorID, milestoneID uint, outcome DisputeOutcome, note string) (*models.Milestone, error) {
	if outcome != DisputeOutcomeRework && outcome != DisputeOutcomeRelease {
		return nil, s.commandError(models.NewValidationError("Dispute outcome must be rework or release"))
	}

	var milestone *models.Milestone
	var unlocked bool

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var actor models.User
		if err := tx.First(&actor, actorID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewUnauthorizedError("Unknown actor")
			}
			return err
		}
		if !actor.IsAdmin {
			return models.NewUnauthorizedError("Only an administrator can resolve a dispute")
		}

		var err error
		milestone, err = lockMilestone(tx, milestoneID)
		if err != nil {
			return err
		}
		if milestone.Status != models.MilestoneStatusInDispute {
			return models.NewStaleStateError(
				fmt.Sprintf("Milestone is %s, not in dispute", milestone.Status))
		}

		now := s.clock.Now()
		if outcome == DisputeOutcomeRework {
			if err := transition(milestone, models.MilestoneStatusInProgress); err != nil {
				return err
			}
			milestone.ReviewDeadline = nil
			return tx.Save(milestone).Error
		}

		if err := appendReview(ctx, tx, milestone.ID, models.ReviewOutcomeApproved, strings.TrimSpace(note)); err != nil {
			return err
		}
		if err := transition(milestone, models.MilestoneStatusCompleted); err != nil {
			return err
		}
		milestone.IsPaid = true
		milestone.CompletedAt = &now
		milestone.ReviewDeadline = nil
		if err := tx.Save(milestone).Error; err != nil {
			return err
		}
		unlocked, err = unlockFolder(tx, milestone.ID, now)
		return err
	})
	if txErr != nil {
		return nil, s.commandError(txErr)
	}

	if outcome == DisputeOutcomeRework {
		observability.MilestoneTransitions.WithLabelValues(string(models.MilestoneStatusInProgress)).Inc()
	} else {
		observability.MilestoneTransitions.WithLabelValues(string(models.MilestoneStatusCompleted)).Inc()
		observability.FundsReleased.WithLabelValues(ReleaseTriggerDispute).Inc()
		observability.FundsReleasedCents.Add(float64(milestone.AmountCents))
	}
	s.publish(ctx, notifications.Event{
		Name:        notifications.EventDisputeResolved,
		ProjectID:   milestone.ProjectID,
		MilestoneID: milestone.ID,
		ActorUserID: actorID,
		Detail:      string(outcome),
	})
	if unlocked {
		s.publishFolderUnlocked(ctx, milestone, actorID)
	}
	return milestone, nil
}

// RejectionCount returns the length of the milestone's trailing run of
// rejected reviews. The counter resets whenever an approval or dispute breaks
// the run; earlier rejections stay in history but no longer count toward
// escalation.
func (s *EscrowService) RejectionCount(ctx context.Context, milestoneID uint) (int, error) {
	return repository.NewReviewRepository(s.db).TrailingRejectionCount(ctx, milestoneID)
}

// CanOpenDispute reports whether the vendor's escalation is unlocked for the
// milestone.
func (s *EscrowService) CanOpenDispute(ctx context.Context, milestoneID uint) (bool, error) {
	count, err := s.RejectionCount(ctx, milestoneID)
	if err != nil {
		return false, err
	}
	return count >= s.disputeThreshold, nil
}

// release is the single fund-release path shared by explicit approval, the
// deadline sweep, and dispute resolution through a pending request. It must
// run inside a transaction holding the milestone row lock.
func (s *EscrowService) release(ctx context.Context, tx *gorm.DB, milestone *models.Milestone, request *models.PaymentRequest, autoApproved bool, comment string) (bool, error) {
	if request.Status != models.PaymentRequestStatusPending {
		return false, models.NewStaleStateError(
			fmt.Sprintf("Payment request is %s, not pending", request.Status))
	}

	now := s.clock.Now()
	request.Status = models.PaymentRequestStatusCompleted
	request.AutoApproved = autoApproved
	request.DecidedAt = &now
	if err := tx.Save(request).Error; err != nil {
		return false, err
	}

	if err := appendReview(ctx, tx, milestone.ID, models.ReviewOutcomeApproved, comment); err != nil {
		return false, err
	}

	if err := transition(milestone, models.MilestoneStatusCompleted); err != nil {
		return false, err
	}
	milestone.IsPaid = true
	milestone.CompletedAt = &now
	milestone.ReviewDeadline = nil
	if err := tx.Save(milestone).Error; err != nil {
		return false, err
	}

	return unlockFolder(tx, milestone.ID, now)
}

// recordRelease emits the metrics and events for a committed fund release.
func (s *EscrowService) recordRelease(ctx context.Context, milestone *models.Milestone, request *models.PaymentRequest, trigger string, actorID uint, unlocked bool) {
	observability.MilestoneTransitions.WithLabelValues(string(models.MilestoneStatusCompleted)).Inc()
	observability.FundsReleased.WithLabelValues(trigger).Inc()
	observability.FundsReleasedCents.Add(float64(request.AmountCents))

	s.publish(ctx, notifications.Event{
		Name:        notifications.EventFundsReleased,
		ProjectID:   milestone.ProjectID,
		MilestoneID: milestone.ID,
		ActorUserID: actorID,
		AmountCents: request.AmountCents,
		Detail:      trigger,
	})
	if unlocked {
		s.publishFolderUnlocked(ctx, milestone, actorID)
	}
}

func (s *EscrowService) publishFolderUnlocked(ctx context.Context, milestone *models.Milestone, actorID uint) {
	observability.FoldersUnlocked.Inc()
	s.publish(ctx, notifications.Event{
		Name:        notifications.EventFolderUnlocked,
		ProjectID:   milestone.ProjectID,
		MilestoneID: milestone.ID,
		ActorUserID: actorID,
	})
}

// publish sends a lifecycle event after commit. Failures are logged and
// swallowed; a lost notification never unwinds a committed transition.
func (s *EscrowService) publish(ctx context.Context, event notifications.Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.PublishEvent(ctx, event); err != nil {
		observability.NotificationFailures.WithLabelValues(event.Name).Inc()
		slog.ErrorContext(ctx, "Failed to publish escrow event",
			"event", event.Name, "milestone_id", event.MilestoneID, "error", err)
	}
}

// commandError counts and normalizes a rejected command. Unexpected errors
// are wrapped so callers always see an AppError.
func (s *EscrowService) commandError(err error) error {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		appErr = models.NewInternalError(err)
	}
	observability.CommandRejections.WithLabelValues(appErr.Code).Inc()
	return appErr
}

// transition applies a status change after validating it against the
// lifecycle transition table.
func transition(m *models.Milestone, to models.MilestoneStatus) error {
	if !models.CanTransition(m.Status, to) {
		return models.NewStaleStateError(
			fmt.Sprintf("Milestone cannot move from %s to %s", m.Status, to))
	}
	m.Status = to
	return nil
}

// lockMilestone loads a milestone under a row lock, serializing all state
// machine commands targeting it for the duration of the transaction.
func lockMilestone(tx *gorm.DB, id uint) (*models.Milestone, error) {
	var milestone models.Milestone
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&milestone, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Milestone", id)
		}
		return nil, err
	}
	return &milestone, nil
}

func loadProject(tx *gorm.DB, id uint) (*models.Project, error) {
	var project models.Project
	if err := tx.First(&project, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Project", id)
		}
		return nil, err
	}
	return &project, nil
}

// appendReview adds the next entry to the milestone's append-only decision
// history. Review numbers are 1-based and assigned under the milestone lock.
func appendReview(ctx context.Context, tx *gorm.DB, milestoneID uint, outcome models.ReviewOutcome, comment string) error {
	count, err := repository.NewReviewRepository(tx).CountByMilestone(ctx, milestoneID)
	if err != nil {
		return err
	}
	review := models.Review{
		MilestoneID:  milestoneID,
		ReviewNumber: count + 1,
		Outcome:      outcome,
		Comment:      comment,
	}
	return tx.Create(&review).Error
}

// unlockFolder flips the milestone's protected folder to unlocked, once. A
// missing folder or an already unlocked one is a no-op, not an error.
func unlockFolder(tx *gorm.DB, milestoneID uint, now time.Time) (bool, error) {
	var folder models.ProtectedFolder
	if err := tx.Where("milestone_id = ?", milestoneID).First(&folder).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	if folder.Status == models.FolderStatusUnlocked {
		return false, nil
	}
	folder.Status = models.FolderStatusUnlocked
	folder.UnlockedAt = &now
	if err := tx.Save(&folder).Error; err != nil {
		return false, err
	}
	return true, nil
}
