package models

import "time"

// FolderStatus defines client visibility of a deliverable folder.
type FolderStatus string

const (
	// FolderStatusLocked hides the folder's contents from the client.
	FolderStatusLocked FolderStatus = "locked"
	// FolderStatusUnlocked makes the folder visible to the client.
	FolderStatusUnlocked FolderStatus = "unlocked"
)

// ProtectedFolder is deliverable storage whose client visibility is gated by
// the milestone's payment state. It is unlocked exactly once, when funds are
// released; repeated release events are no-ops. The vendor always has access.
// The folder only carries a visibility flag; file bytes live in external
// object storage.
type ProtectedFolder struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	MilestoneID uint         `gorm:"not null;uniqueIndex" json:"milestone_id"`
	Milestone   *Milestone   `gorm:"foreignKey:MilestoneID" json:"milestone,omitempty"`
	Name        string       `gorm:"size:160;not null" json:"name"`
	StoragePath string       `gorm:"size:512" json:"storage_path"`
	Status      FolderStatus `gorm:"type:varchar(20);not null;default:'locked'" json:"status"`
	UnlockedAt  *time.Time   `json:"unlocked_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (ProtectedFolder) TableName() string {
	return "protected_folders"
}

// VisibleTo reports whether the user may see the folder's contents. The
// vendor retains access regardless of lock state.
func (f *ProtectedFolder) VisibleTo(project *Project, userID uint) bool {
	if project.IsVendor(userID) {
		return true
	}
	return f.Status == FolderStatusUnlocked
}
