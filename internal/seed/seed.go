package seed

import (
	"fmt"
	"log"
	"time"

	"atelier/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumProjects int
	ShouldClean bool
}

// Demo seeds a small demo data set. Used by server startup when demo
// seeding is requested.
func Demo(db *gorm.DB) error {
	return Seed(db, Options{NumProjects: 4})
}

// Seed populates the database with demo projects whose roadmaps sit at
// different points of the escrow lifecycle.
func Seed(db *gorm.DB, opts Options) error {
	log.Printf("🌱 Starting database seeding with %d projects...", opts.NumProjects)

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			log.Println("⚠️  Warning: Could not clear all existing data, but continuing anyway...")
		}
	}

	factory := NewFactory(db)

	admin, err := ensureMediator(db, factory)
	if err != nil {
		return fmt.Errorf("failed to create mediator: %w", err)
	}
	log.Printf("✓ mediator account ready (user %d)", admin.ID)

	scenarios := []func(*Factory, *models.Project) error{
		seedFreshProject,
		seedActiveProject,
		seedUnderReviewProject,
		seedContestedProject,
	}

	for i := 0; i < opts.NumProjects; i++ {
		client, err := factory.CreateUser()
		if err != nil {
			return fmt.Errorf("failed to create client: %w", err)
		}
		vendor, err := factory.CreateUser()
		if err != nil {
			return fmt.Errorf("failed to create vendor: %w", err)
		}
		project, err := factory.CreateProject(client, vendor)
		if err != nil {
			return fmt.Errorf("failed to create project: %w", err)
		}

		if err := scenarios[i%len(scenarios)](factory, project); err != nil {
			return fmt.Errorf("failed to seed project %d: %w", project.ID, err)
		}
	}
	log.Printf("✓ %d projects seeded", opts.NumProjects)

	log.Println("🎉 Database seeding completed successfully!")
	return nil
}

// ensureMediator guarantees an admin account exists so seeded disputes can be
// resolved. Safe to call on an already-seeded database.
func ensureMediator(db *gorm.DB, factory *Factory) (*models.User, error) {
	var mediator models.User
	err := db.Where(models.User{Username: "mediator"}).
		Attrs(models.User{
			Email:    "mediator@example.com",
			Password: factory.passwordHash,
			IsAdmin:  true,
		}).
		FirstOrCreate(&mediator).Error
	if err != nil {
		return nil, err
	}
	return &mediator, nil
}

func clearData(db *gorm.DB) error {
	log.Println("🗑️  Clearing existing data...")
	sql := `TRUNCATE TABLE reviews, payment_requests, protected_folders, milestones, projects, users RESTART IDENTITY CASCADE;`
	return db.Exec(sql).Error
}

// seedFreshProject leaves the whole roadmap pending.
func seedFreshProject(f *Factory, project *models.Project) error {
	for position := 1; position <= 3; position++ {
		if _, err := f.CreateMilestone(project, position); err != nil {
			return err
		}
	}
	return nil
}

// seedActiveProject has one settled milestone and one underway.
func seedActiveProject(f *Factory, project *models.Project) error {
	if err := seedSettledMilestone(f, project, 1); err != nil {
		return err
	}

	started, err := f.CreateMilestone(project, 2, func(m *models.Milestone) {
		m.Status = models.MilestoneStatusInProgress
	})
	if err != nil {
		return err
	}
	if _, err := f.CreateFolder(started); err != nil {
		return err
	}

	_, err = f.CreateMilestone(project, 3)
	return err
}

// seedUnderReviewProject has a pending payment request awaiting the client.
func seedUnderReviewProject(f *Factory, project *models.Project) error {
	if err := seedSettledMilestone(f, project, 1); err != nil {
		return err
	}

	submitted := time.Now().Add(-24 * time.Hour)
	deadline := submitted.Add(168 * time.Hour)
	milestone, err := f.CreateMilestone(project, 2, func(m *models.Milestone) {
		m.Status = models.MilestoneStatusReadyForReview
		m.SubmittedAt = &submitted
		m.ReviewDeadline = &deadline
	})
	if err != nil {
		return err
	}
	if _, err := f.CreatePaymentRequest(milestone, models.PaymentRequestStatusPending); err != nil {
		return err
	}
	_, err = f.CreateFolder(milestone)
	return err
}

// seedContestedProject has a milestone in dispute after three straight
// rejections.
func seedContestedProject(f *Factory, project *models.Project) error {
	milestone, err := f.CreateMilestone(project, 1, func(m *models.Milestone) {
		m.Status = models.MilestoneStatusInDispute
	})
	if err != nil {
		return err
	}

	for i := 1; i <= 3; i++ {
		if _, err := f.CreatePaymentRequest(milestone, models.PaymentRequestStatusRejected); err != nil {
			return err
		}
		if _, err := f.CreateReview(milestone, i, models.ReviewOutcomeRejected); err != nil {
			return err
		}
	}
	if _, err := f.CreateReview(milestone, 4, models.ReviewOutcomeDisputed); err != nil {
		return err
	}
	if _, err := f.CreateFolder(milestone); err != nil {
		return err
	}

	_, err = f.CreateMilestone(project, 2)
	return err
}

// seedSettledMilestone creates a completed milestone with released funds, a
// settled payment request, its approval entry, and an unlocked folder.
func seedSettledMilestone(f *Factory, project *models.Project, position int) error {
	completed := time.Now().Add(-7 * 24 * time.Hour)
	submitted := completed.Add(-48 * time.Hour)
	milestone, err := f.CreateMilestone(project, position, func(m *models.Milestone) {
		m.Status = models.MilestoneStatusCompleted
		m.IsPaid = true
		m.SubmittedAt = &submitted
		m.CompletedAt = &completed
	})
	if err != nil {
		return err
	}
	if _, err := f.CreatePaymentRequest(milestone, models.PaymentRequestStatusCompleted); err != nil {
		return err
	}
	if _, err := f.CreateReview(milestone, 1, models.ReviewOutcomeApproved); err != nil {
		return err
	}
	_, err = f.CreateFolder(milestone)
	return err
}
