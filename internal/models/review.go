package models

import "time"

// ReviewOutcome defines the client's recorded decision against a pending
// payment request.
type ReviewOutcome string

const (
	// ReviewOutcomeApproved records a fund release, explicit or by deadline.
	ReviewOutcomeApproved ReviewOutcome = "approved"
	// ReviewOutcomeRejected records a request for changes.
	ReviewOutcomeRejected ReviewOutcome = "rejected"
	// ReviewOutcomeDisputed records the vendor escalating to mediation.
	ReviewOutcomeDisputed ReviewOutcome = "disputed"
)

// Review is one entry in a milestone's append-only decision history.
// ReviewNumber is 1-based and strictly increasing per milestone; rows are
// never mutated or deleted.
type Review struct {
	ID           uint          `gorm:"primaryKey" json:"id"`
	MilestoneID  uint          `gorm:"not null;index;uniqueIndex:idx_milestone_review_number" json:"milestone_id"`
	Milestone    *Milestone    `gorm:"foreignKey:MilestoneID" json:"milestone,omitempty"`
	ReviewNumber int           `gorm:"not null;uniqueIndex:idx_milestone_review_number" json:"review_number"`
	Outcome      ReviewOutcome `gorm:"type:varchar(20);not null" json:"outcome"`
	Comment      string        `gorm:"type:text" json:"comment"`
	CreatedAt    time.Time     `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (Review) TableName() string {
	return "reviews"
}
