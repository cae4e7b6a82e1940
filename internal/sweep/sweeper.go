// Package sweep runs the periodic review-deadline scan that auto-approves
// payment requests the client never decided on.
package sweep

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"atelier/internal/models"
	"atelier/internal/observability"
	"atelier/internal/repository"
	"atelier/internal/service"

	"github.com/robfig/cron/v3"
)

// Sweeper periodically scans for milestones whose review deadline elapsed and
// feeds them through the same approval path a client decision uses. Runs are
// idempotent: each candidate is re-checked under the milestone row lock, so a
// candidate decided between scan and action is skipped, and transient errors
// are simply retried on the next cycle.
type Sweeper struct {
	milestoneRepo repository.MilestoneRepository
	escrow        *service.EscrowService
	clock         service.Clock
	schedule      string
	cron          *cron.Cron
}

// NewSweeper returns a Sweeper using the given cron schedule (with seconds
// field). A nil clock defaults to the wall clock.
func NewSweeper(
	milestoneRepo repository.MilestoneRepository,
	escrow *service.EscrowService,
	clock service.Clock,
	schedule string,
) *Sweeper {
	if clock == nil {
		clock = service.SystemClock()
	}
	return &Sweeper{
		milestoneRepo: milestoneRepo,
		escrow:        escrow,
		clock:         clock,
		schedule:      schedule,
	}
}

// Start schedules the sweep. The context bounds each run.
func (s *Sweeper) Start(ctx context.Context) error {
	c := cron.New(cron.WithSeconds())
	_, err := c.AddFunc(s.schedule, func() {
		s.Run(ctx)
	})
	if err != nil {
		return err
	}
	s.cron = c
	c.Start()
	slog.Info("Review-deadline sweep scheduled", "schedule", s.schedule)
	return nil
}

// Stop halts the schedule and waits for an in-flight run to finish.
func (s *Sweeper) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// Run executes one sweep pass and reports how many milestones were
// auto-approved.
func (s *Sweeper) Run(ctx context.Context) int {
	span, ctx := observability.NewSpan(ctx, "sweep.run")
	defer span.End()

	start := time.Now()
	now := s.clock.Now()

	candidates, err := s.milestoneRepo.DueForAutoApproval(ctx, now)
	if err != nil {
		observability.SweepRuns.WithLabelValues("error").Inc()
		span.SetError(err)
		slog.ErrorContext(ctx, "Review-deadline sweep scan failed", "error", err)
		return 0
	}

	released := 0
	for _, candidate := range candidates {
		if _, err := s.escrow.AutoApprove(ctx, candidate.ID); err != nil {
			var appErr *models.AppError
			if errors.As(err, &appErr) && appErr.Code == models.CodeStaleState {
				// Decided between scan and lock; the winner's state stands.
				continue
			}
			slog.ErrorContext(ctx, "Auto-approval failed, will retry next sweep",
				"milestone_id", candidate.ID, "error", err)
			continue
		}
		released++
		slog.InfoContext(ctx, "Auto-approved payment after review deadline",
			"milestone_id", candidate.ID, "amount_cents", candidate.AmountCents)
	}

	observability.SweepRuns.WithLabelValues("ok").Inc()
	observability.SweepDuration.Observe(time.Since(start).Seconds())
	return released
}
