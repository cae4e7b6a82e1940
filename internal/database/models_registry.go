package database

import "atelier/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Project{},
		&models.Milestone{},
		&models.PaymentRequest{},
		&models.Review{},
		&models.ProtectedFolder{},
	}
}
