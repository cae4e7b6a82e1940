package service

import (
	"context"
	"strings"
	"time"

	"atelier/internal/models"
	"atelier/internal/repository"
	"atelier/internal/validation"
)

// RoadmapService provides project and milestone authoring around the escrow
// state machine: creating projects, shaping the ordered roadmap, and
// designating protected deliverable folders.
type RoadmapService struct {
	projectRepo   repository.ProjectRepository
	milestoneRepo repository.MilestoneRepository
	paymentRepo   repository.PaymentRequestRepository
	reviewRepo    repository.ReviewRepository
	folderRepo    repository.FolderRepository
	escrow        *EscrowService
}

// NewRoadmapService returns a new RoadmapService.
func NewRoadmapService(
	projectRepo repository.ProjectRepository,
	milestoneRepo repository.MilestoneRepository,
	paymentRepo repository.PaymentRequestRepository,
	reviewRepo repository.ReviewRepository,
	folderRepo repository.FolderRepository,
	escrow *EscrowService,
) *RoadmapService {
	return &RoadmapService{
		projectRepo:   projectRepo,
		milestoneRepo: milestoneRepo,
		paymentRepo:   paymentRepo,
		reviewRepo:    reviewRepo,
		folderRepo:    folderRepo,
		escrow:        escrow,
	}
}

// CreateProjectInput carries the fields for a new project.
type CreateProjectInput struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	ClientUserID uint   `json:"client_user_id"`
	VendorUserID uint   `json:"vendor_user_id"`
}

// CreateProject creates an engagement between one client and one vendor. The
// creator must be one of the two parties.
func (s *RoadmapService) CreateProject(ctx context.Context, actorID uint, input CreateProjectInput) (*models.Project, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, models.NewValidationError("Project name is required")
	}
	if input.ClientUserID == 0 || input.VendorUserID == 0 {
		return nil, models.NewValidationError("Project requires both a client and a vendor")
	}
	if input.ClientUserID == input.VendorUserID {
		return nil, models.NewValidationError("Client and vendor must be different users")
	}
	if actorID != input.ClientUserID && actorID != input.VendorUserID {
		return nil, models.NewUnauthorizedError("You can only create projects you participate in")
	}

	project := &models.Project{
		Name:         input.Name,
		Description:  strings.TrimSpace(input.Description),
		ClientUserID: input.ClientUserID,
		VendorUserID: input.VendorUserID,
	}
	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, err
	}
	return s.projectRepo.GetByID(ctx, project.ID)
}

// ListProjects returns the projects the user participates in.
func (s *RoadmapService) ListProjects(ctx context.Context, userID uint) ([]models.Project, error) {
	return s.projectRepo.ListForUser(ctx, userID)
}

// GetProject returns a project the user participates in.
func (s *RoadmapService) GetProject(ctx context.Context, actorID, projectID uint) (*models.Project, error) {
	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !project.IsClient(actorID) && !project.IsVendor(actorID) {
		return nil, models.NewUnauthorizedError("You are not a participant in this project")
	}
	return project, nil
}

// MilestoneInput carries the authorable milestone fields.
type MilestoneInput struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	AmountCents int64   `json:"amount_cents"`
	DueDate     *string `json:"due_date,omitempty"`
}

func (in *MilestoneInput) validate() error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return models.NewValidationError("Milestone title is required")
	}
	if in.AmountCents < 0 {
		return models.NewValidationError("Milestone amount cannot be negative")
	}
	return nil
}

// AddMilestone appends a milestone to the project roadmap. Either participant
// may author the roadmap; new milestones always enter at the end, pending.
func (s *RoadmapService) AddMilestone(ctx context.Context, actorID, projectID uint, input MilestoneInput) (*models.Milestone, error) {
	if _, err := s.GetProject(ctx, actorID, projectID); err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	milestone := &models.Milestone{
		ProjectID:   projectID,
		Title:       input.Title,
		Description: strings.TrimSpace(input.Description),
		AmountCents: input.AmountCents,
		Status:      models.MilestoneStatusPending,
	}
	if due, err := parseDueDate(input.DueDate); err != nil {
		return nil, err
	} else {
		milestone.DueDate = due
	}
	if err := s.milestoneRepo.Create(ctx, milestone); err != nil {
		return nil, err
	}
	return milestone, nil
}

// ListMilestones returns the project roadmap in position order.
func (s *RoadmapService) ListMilestones(ctx context.Context, actorID, projectID uint) ([]models.Milestone, error) {
	if _, err := s.GetProject(ctx, actorID, projectID); err != nil {
		return nil, err
	}
	return s.milestoneRepo.ListByProject(ctx, projectID)
}

// MilestoneDetail is a milestone with its full decision history and the
// vendor's current dispute eligibility.
type MilestoneDetail struct {
	Milestone      *models.Milestone `json:"milestone"`
	RejectionCount int               `json:"rejection_count"`
	CanOpenDispute bool              `json:"can_open_dispute"`
}

// GetMilestoneDetail returns a milestone with payment and review history plus
// dispute eligibility.
func (s *RoadmapService) GetMilestoneDetail(ctx context.Context, actorID, milestoneID uint) (*MilestoneDetail, error) {
	milestone, err := s.milestoneRepo.GetWithHistory(ctx, milestoneID)
	if err != nil {
		return nil, err
	}
	if milestone.Project == nil ||
		(!milestone.Project.IsClient(actorID) && !milestone.Project.IsVendor(actorID)) {
		return nil, models.NewUnauthorizedError("You are not a participant in this project")
	}

	rejections, err := s.escrow.RejectionCount(ctx, milestone.ID)
	if err != nil {
		return nil, err
	}
	return &MilestoneDetail{
		Milestone:      milestone,
		RejectionCount: rejections,
		CanOpenDispute: milestone.Status == models.MilestoneStatusChangesRequested &&
			rejections >= s.escrow.disputeThreshold,
	}, nil
}

// UpdateMilestone edits the authorable fields of a milestone that has not
// completed. Amount edits never touch in-flight payment requests; those keep
// the amount snapshotted at request creation.
func (s *RoadmapService) UpdateMilestone(ctx context.Context, actorID, milestoneID uint, input MilestoneInput) (*models.Milestone, error) {
	milestone, err := s.milestoneRepo.GetByID(ctx, milestoneID)
	if err != nil {
		return nil, err
	}
	if milestone.Project == nil ||
		(!milestone.Project.IsClient(actorID) && !milestone.Project.IsVendor(actorID)) {
		return nil, models.NewUnauthorizedError("You are not a participant in this project")
	}
	if milestone.IsDone() {
		return nil, models.NewStaleStateError("Completed milestones cannot be edited")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	milestone.Title = input.Title
	milestone.Description = strings.TrimSpace(input.Description)
	milestone.AmountCents = input.AmountCents
	if due, err := parseDueDate(input.DueDate); err != nil {
		return nil, err
	} else if input.DueDate != nil {
		milestone.DueDate = due
	}
	if err := s.milestoneRepo.Update(ctx, milestone); err != nil {
		return nil, err
	}
	return milestone, nil
}

// DeleteMilestone removes a milestone that is still pending and carries no
// payment or review history. Positions of later milestones are re-compacted.
func (s *RoadmapService) DeleteMilestone(ctx context.Context, actorID, milestoneID uint) error {
	milestone, err := s.milestoneRepo.GetByID(ctx, milestoneID)
	if err != nil {
		return err
	}
	if milestone.Project == nil ||
		(!milestone.Project.IsClient(actorID) && !milestone.Project.IsVendor(actorID)) {
		return models.NewUnauthorizedError("You are not a participant in this project")
	}
	if milestone.Status != models.MilestoneStatusPending {
		return models.NewStaleStateError("Only pending milestones can be deleted")
	}

	requests, err := s.paymentRepo.ListByMilestone(ctx, milestoneID)
	if err != nil {
		return err
	}
	reviews, err := s.reviewRepo.CountByMilestone(ctx, milestoneID)
	if err != nil {
		return err
	}
	if len(requests) > 0 || reviews > 0 {
		return models.NewValidationError("Milestones with payment or review history cannot be deleted")
	}

	return s.milestoneRepo.Delete(ctx, milestoneID)
}

// FolderInput carries the fields for designating deliverable storage.
type FolderInput struct {
	Name        string `json:"name"`
	StoragePath string `json:"storage_path"`
}

// CreateFolder designates protected deliverable storage for a milestone. The
// folder starts locked and unlocks when the milestone's funds are released.
// Vendor only, one folder per milestone.
func (s *RoadmapService) CreateFolder(ctx context.Context, actorID, milestoneID uint, input FolderInput) (*models.ProtectedFolder, error) {
	milestone, err := s.milestoneRepo.GetByID(ctx, milestoneID)
	if err != nil {
		return nil, err
	}
	if milestone.Project == nil || !milestone.Project.IsVendor(actorID) {
		return nil, models.NewUnauthorizedError("Only the project vendor can designate a deliverable folder")
	}

	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, models.NewValidationError("Folder name is required")
	}
	if err := validation.ValidateFolderName(input.Name); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing, err := s.folderRepo.GetByMilestone(ctx, milestoneID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewValidationError("Milestone already has a deliverable folder")
	}

	folder := &models.ProtectedFolder{
		MilestoneID: milestoneID,
		Name:        input.Name,
		StoragePath: strings.TrimSpace(input.StoragePath),
		Status:      models.FolderStatusLocked,
	}
	if milestone.IsPaid {
		// Funds already released; the folder is born unlocked.
		now := s.escrow.clock.Now()
		folder.Status = models.FolderStatusUnlocked
		folder.UnlockedAt = &now
	}
	if err := s.folderRepo.Create(ctx, folder); err != nil {
		return nil, err
	}
	return folder, nil
}

// GetFolder returns the milestone's deliverable folder. The vendor always
// sees it; the client only once it has unlocked.
func (s *RoadmapService) GetFolder(ctx context.Context, actorID, milestoneID uint) (*models.ProtectedFolder, error) {
	milestone, err := s.milestoneRepo.GetByID(ctx, milestoneID)
	if err != nil {
		return nil, err
	}
	if milestone.Project == nil ||
		(!milestone.Project.IsClient(actorID) && !milestone.Project.IsVendor(actorID)) {
		return nil, models.NewUnauthorizedError("You are not a participant in this project")
	}

	folder, err := s.folderRepo.GetByMilestone(ctx, milestoneID)
	if err != nil {
		return nil, err
	}
	if folder == nil {
		return nil, models.NewNotFoundError("Folder for milestone", milestoneID)
	}
	if !folder.VisibleTo(milestone.Project, actorID) {
		return nil, models.NewUnauthorizedError("Folder is locked until the milestone's funds are released")
	}
	return folder, nil
}

func parseDueDate(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	due, err := time.Parse("2006-01-02", strings.TrimSpace(*raw))
	if err != nil {
		return nil, models.NewValidationError("Due date must be in YYYY-MM-DD format")
	}
	return &due, nil
}
