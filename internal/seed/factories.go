// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"time"

	"atelier/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by seed presets and tests.
type Factory struct {
	db *gorm.DB
	// bcrypt is slow; every seeded account shares one demo password hash
	passwordHash string
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	hashed, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	return &Factory{db: db, passwordHash: string(hashed)}
}

// CreateUser constructs and persists a sample `models.User`. Optional
// override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := &models.User{
		Username: fmt.Sprintf("%s%d", gofakeit.Username(), gofakeit.Number(100, 999)),
		Email:    gofakeit.Email(),
		Password: f.passwordHash,
	}

	for _, override := range overrides {
		override(user)
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreateProject persists a project between the given client and vendor.
func (f *Factory) CreateProject(client, vendor *models.User, overrides ...func(*models.Project)) (*models.Project, error) {
	project := &models.Project{
		Name:         fmt.Sprintf("%s %s", gofakeit.BuzzWord(), gofakeit.NounAbstract()),
		Description:  gofakeit.Paragraph(1, 2, 8, "\n"),
		ClientUserID: client.ID,
		VendorUserID: vendor.ID,
	}

	for _, override := range overrides {
		override(project)
	}

	if err := f.db.Create(project).Error; err != nil {
		return nil, err
	}
	return project, nil
}

// CreateMilestone persists a milestone at the given roadmap position.
func (f *Factory) CreateMilestone(project *models.Project, position int, overrides ...func(*models.Milestone)) (*models.Milestone, error) {
	milestone := &models.Milestone{
		ProjectID:   project.ID,
		Position:    position,
		Title:       gofakeit.Sentence(3),
		Description: gofakeit.Paragraph(1, 2, 6, "\n"),
		AmountCents: int64(gofakeit.Number(200, 5000)) * 100,
		Status:      models.MilestoneStatusPending,
	}

	for _, override := range overrides {
		override(milestone)
	}

	if err := f.db.Create(milestone).Error; err != nil {
		return nil, err
	}
	return milestone, nil
}

// CreatePaymentRequest persists a fund-release request snapshotting the
// milestone's current amount.
func (f *Factory) CreatePaymentRequest(milestone *models.Milestone, status models.PaymentRequestStatus, overrides ...func(*models.PaymentRequest)) (*models.PaymentRequest, error) {
	request := &models.PaymentRequest{
		Reference:   uuid.NewString(),
		MilestoneID: milestone.ID,
		Status:      status,
		AmountCents: milestone.AmountCents,
		VendorNote:  gofakeit.Sentence(8),
	}
	if status.IsTerminal() || status == models.PaymentRequestStatusApproved {
		decided := time.Now().Add(-time.Duration(gofakeit.Number(1, 72)) * time.Hour)
		request.DecidedAt = &decided
	}
	if status == models.PaymentRequestStatusRejected {
		request.RejectionReason = gofakeit.Sentence(10)
	}

	for _, override := range overrides {
		override(request)
	}

	if err := f.db.Create(request).Error; err != nil {
		return nil, err
	}
	return request, nil
}

// CreateReview appends a review entry with the given 1-based number.
func (f *Factory) CreateReview(milestone *models.Milestone, number int, outcome models.ReviewOutcome, overrides ...func(*models.Review)) (*models.Review, error) {
	review := &models.Review{
		MilestoneID:  milestone.ID,
		ReviewNumber: number,
		Outcome:      outcome,
		Comment:      gofakeit.Sentence(12),
	}

	for _, override := range overrides {
		override(review)
	}

	if err := f.db.Create(review).Error; err != nil {
		return nil, err
	}
	return review, nil
}

// CreateFolder persists a deliverable folder for the milestone. The folder is
// unlocked when the milestone's funds have been released.
func (f *Factory) CreateFolder(milestone *models.Milestone, overrides ...func(*models.ProtectedFolder)) (*models.ProtectedFolder, error) {
	folder := &models.ProtectedFolder{
		MilestoneID: milestone.ID,
		Name:        fmt.Sprintf("deliverables-%d", milestone.Position),
		StoragePath: fmt.Sprintf("projects/%d/milestones/%d", milestone.ProjectID, milestone.ID),
		Status:      models.FolderStatusLocked,
	}
	if milestone.IsPaid {
		now := time.Now()
		folder.Status = models.FolderStatusUnlocked
		folder.UnlockedAt = &now
	}

	for _, override := range overrides {
		override(folder)
	}

	if err := f.db.Create(folder).Error; err != nil {
		return nil, err
	}
	return folder, nil
}
