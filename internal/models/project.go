package models

import "time"

// Project is an engagement between one client and one vendor. Milestones form
// its ordered roadmap.
type Project struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:160;not null" json:"name"`
	Description  string    `gorm:"type:text" json:"description"`
	ClientUserID uint      `gorm:"not null;index" json:"client_user_id"`
	ClientUser   *User     `gorm:"foreignKey:ClientUserID" json:"client_user,omitempty"`
	VendorUserID uint      `gorm:"not null;index" json:"vendor_user_id"`
	VendorUser   *User     `gorm:"foreignKey:VendorUserID" json:"vendor_user,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Project) TableName() string {
	return "projects"
}

// IsClient reports whether the user is the project's client.
func (p *Project) IsClient(userID uint) bool {
	return p.ClientUserID == userID
}

// IsVendor reports whether the user is the project's vendor.
func (p *Project) IsVendor(userID uint) bool {
	return p.VendorUserID == userID
}
