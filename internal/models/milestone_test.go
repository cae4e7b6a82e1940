package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    MilestoneStatus
		to      MilestoneStatus
		allowed bool
	}{
		{"start", MilestoneStatusPending, MilestoneStatusInProgress, true},
		{"submit for review", MilestoneStatusInProgress, MilestoneStatusReadyForReview, true},
		{"complete without escrow", MilestoneStatusInProgress, MilestoneStatusCompleted, true},
		{"approve", MilestoneStatusReadyForReview, MilestoneStatusCompleted, true},
		{"reject", MilestoneStatusReadyForReview, MilestoneStatusChangesRequested, true},
		{"resubmit after rejection", MilestoneStatusChangesRequested, MilestoneStatusReadyForReview, true},
		{"escalate", MilestoneStatusChangesRequested, MilestoneStatusInDispute, true},
		{"dispute resolved to rework", MilestoneStatusInDispute, MilestoneStatusInProgress, true},
		{"dispute resolved to release", MilestoneStatusInDispute, MilestoneStatusCompleted, true},
		{"skip start", MilestoneStatusPending, MilestoneStatusReadyForReview, false},
		{"reopen terminal", MilestoneStatusCompleted, MilestoneStatusInProgress, false},
		{"dispute from review", MilestoneStatusReadyForReview, MilestoneStatusInDispute, false},
		{"dispute from pending", MilestoneStatusPending, MilestoneStatusInDispute, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to))
		})
	}
}

func TestPaymentRequestStatusIsTerminal(t *testing.T) {
	assert.False(t, PaymentRequestStatusPending.IsTerminal())
	assert.False(t, PaymentRequestStatusApproved.IsTerminal())
	assert.True(t, PaymentRequestStatusRejected.IsTerminal())
	assert.True(t, PaymentRequestStatusCompleted.IsTerminal())
}

func TestProtectedFolderVisibleTo(t *testing.T) {
	project := &Project{ClientUserID: 1, VendorUserID: 2}
	folder := &ProtectedFolder{Status: FolderStatusLocked}

	assert.True(t, folder.VisibleTo(project, 2), "vendor sees locked folder")
	assert.False(t, folder.VisibleTo(project, 1), "client blocked while locked")

	folder.Status = FolderStatusUnlocked
	assert.True(t, folder.VisibleTo(project, 1), "client sees unlocked folder")
}
