package models

import "time"

// PaymentRequestStatus defines lifecycle states for a fund-release request.
type PaymentRequestStatus string

const (
	// PaymentRequestStatusPending indicates the request is awaiting the client's decision.
	PaymentRequestStatusPending PaymentRequestStatus = "pending"
	// PaymentRequestStatusApproved indicates the client (or deadline sweep) released funds.
	PaymentRequestStatusApproved PaymentRequestStatus = "approved"
	// PaymentRequestStatusRejected indicates the client declined and requested changes.
	PaymentRequestStatusRejected PaymentRequestStatus = "rejected"
	// PaymentRequestStatusCompleted indicates an approved request was settled.
	PaymentRequestStatusCompleted PaymentRequestStatus = "completed"
)

// IsTerminal reports whether the status admits no further transitions.
func (s PaymentRequestStatus) IsTerminal() bool {
	return s == PaymentRequestStatusRejected || s == PaymentRequestStatusCompleted
}

// PaymentRequest is a vendor's ask to release escrowed funds for a milestone.
// AmountCents is snapshotted from the milestone at creation and is immutable:
// later roadmap edits never alter an in-flight request. At most one
// non-terminal request exists per milestone.
type PaymentRequest struct {
	ID              uint                 `gorm:"primaryKey" json:"id"`
	Reference       string               `gorm:"size:36;not null;uniqueIndex" json:"reference"`
	MilestoneID     uint                 `gorm:"not null;index" json:"milestone_id"`
	Milestone       *Milestone           `gorm:"foreignKey:MilestoneID" json:"milestone,omitempty"`
	Status          PaymentRequestStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	AmountCents     int64                `gorm:"not null" json:"amount_cents"`
	VendorNote      string               `gorm:"type:text" json:"vendor_note"`
	RejectionReason string               `gorm:"type:text" json:"rejection_reason"`
	AutoApproved    bool                 `gorm:"not null;default:false" json:"auto_approved"`
	DecidedAt       *time.Time           `json:"decided_at,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (PaymentRequest) TableName() string {
	return "payment_requests"
}
