package models

import "time"

// MilestoneStatus defines lifecycle states for a roadmap milestone.
//
// The historical schema carried both COMPLETED and PAID as terminal-ish
// values. This service keeps a single terminal status, completed; escrow
// release is recorded separately by the IsPaid flag.
type MilestoneStatus string

const (
	// MilestoneStatusPending indicates the milestone has not been started.
	MilestoneStatusPending MilestoneStatus = "pending"
	// MilestoneStatusInProgress indicates the vendor is working on the milestone.
	MilestoneStatusInProgress MilestoneStatus = "in_progress"
	// MilestoneStatusReadyForReview indicates a payment request is awaiting the client.
	MilestoneStatusReadyForReview MilestoneStatus = "ready_for_review"
	// MilestoneStatusChangesRequested indicates the client rejected the work and
	// sent it back to the vendor.
	MilestoneStatusChangesRequested MilestoneStatus = "changes_requested"
	// MilestoneStatusInDispute indicates the review cycle was exhausted and the
	// milestone awaits external mediation.
	MilestoneStatusInDispute MilestoneStatus = "in_dispute"
	// MilestoneStatusCompleted is the single terminal state.
	MilestoneStatusCompleted MilestoneStatus = "completed"
)

// milestoneTransitions is the authoritative transition table. Every
// state-machine operation validates against it before writing.
var milestoneTransitions = map[MilestoneStatus][]MilestoneStatus{
	MilestoneStatusPending:          {MilestoneStatusInProgress},
	MilestoneStatusInProgress:       {MilestoneStatusReadyForReview, MilestoneStatusCompleted},
	MilestoneStatusReadyForReview:   {MilestoneStatusCompleted, MilestoneStatusChangesRequested},
	MilestoneStatusChangesRequested: {MilestoneStatusReadyForReview, MilestoneStatusInDispute},
	MilestoneStatusInDispute:        {MilestoneStatusInProgress, MilestoneStatusCompleted},
	MilestoneStatusCompleted:        {},
}

// CanTransition reports whether the status change is allowed by the
// lifecycle transition table.
func CanTransition(from, to MilestoneStatus) bool {
	for _, next := range milestoneTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Milestone is one billable unit of a project roadmap. Position is 1-based
// and contiguous per project; a milestone may only start once its predecessor
// is done.
type Milestone struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	ProjectID      uint            `gorm:"not null;index;uniqueIndex:idx_project_position" json:"project_id"`
	Project        *Project        `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Position       int             `gorm:"not null;uniqueIndex:idx_project_position" json:"position"`
	Title          string          `gorm:"size:160;not null" json:"title"`
	Description    string          `gorm:"type:text" json:"description"`
	AmountCents    int64           `gorm:"not null;default:0" json:"amount_cents"`
	DueDate        *time.Time      `json:"due_date,omitempty"`
	Status         MilestoneStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	IsPaid         bool            `gorm:"not null;default:false" json:"is_paid"`
	CompletionNote string          `gorm:"type:text" json:"completion_note"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	SubmittedAt    *time.Time      `json:"submitted_at,omitempty"`
	ReviewDeadline *time.Time      `gorm:"index" json:"review_deadline,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	PaymentRequests []PaymentRequest `gorm:"foreignKey:MilestoneID" json:"payment_requests,omitempty"`
	Reviews         []Review         `gorm:"foreignKey:MilestoneID" json:"reviews,omitempty"`
	Folder          *ProtectedFolder `gorm:"foreignKey:MilestoneID" json:"folder,omitempty"`
}

// TableName specifies the table name for GORM.
func (Milestone) TableName() string {
	return "milestones"
}

// IsDone reports whether the milestone reached its terminal state.
func (m *Milestone) IsDone() bool {
	return m.Status == MilestoneStatusCompleted
}

// HasEscrow reports whether funds are held against this milestone.
func (m *Milestone) HasEscrow() bool {
	return m.AmountCents > 0
}
