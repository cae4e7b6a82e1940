package repository

import (
	"context"
	"testing"
	"time"

	"atelier/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.Milestone{},
		&models.PaymentRequest{},
		&models.Review{},
		&models.ProtectedFolder{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}

	return db
}

func createTestProject(t *testing.T, db *gorm.DB) *models.Project {
	t.Helper()
	client := &models.User{Username: "client", Email: "client@example.com", Password: "pw"}
	vendor := &models.User{Username: "vendor", Email: "vendor@example.com", Password: "pw"}
	require.NoError(t, db.Create(client).Error)
	require.NoError(t, db.Create(vendor).Error)

	project := &models.Project{Name: "Site redesign", ClientUserID: client.ID, VendorUserID: vendor.ID}
	require.NoError(t, db.Create(project).Error)
	return project
}

func TestMilestoneRepositoryCreateAssignsContiguousPositions(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMilestoneRepository(db)
	ctx := context.Background()
	project := createTestProject(t, db)

	first := &models.Milestone{ProjectID: project.ID, Title: "Wireframes", AmountCents: 50000}
	second := &models.Milestone{ProjectID: project.ID, Title: "Build", AmountCents: 100000}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	assert.Equal(t, 1, first.Position)
	assert.Equal(t, 2, second.Position)
}

func TestMilestoneRepositoryDeleteCompactsPositions(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMilestoneRepository(db)
	ctx := context.Background()
	project := createTestProject(t, db)

	var ids []uint
	for _, title := range []string{"One", "Two", "Three"} {
		m := &models.Milestone{ProjectID: project.ID, Title: title}
		require.NoError(t, repo.Create(ctx, m))
		ids = append(ids, m.ID)
	}

	require.NoError(t, repo.Delete(ctx, ids[1]))

	remaining, err := repo.ListByProject(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	assert.Equal(t, "One", remaining[0].Title)
	assert.Equal(t, 1, remaining[0].Position)
	assert.Equal(t, "Three", remaining[1].Title)
	assert.Equal(t, 2, remaining[1].Position)
}

func TestMilestoneRepositoryGetByProjectPosition(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMilestoneRepository(db)
	ctx := context.Background()
	project := createTestProject(t, db)

	m := &models.Milestone{ProjectID: project.ID, Title: "Only"}
	require.NoError(t, repo.Create(ctx, m))

	found, err := repo.GetByProjectPosition(ctx, project.ID, 1)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, m.ID, found.ID)

	missing, err := repo.GetByProjectPosition(ctx, project.ID, 2)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMilestoneRepositoryDueForAutoApproval(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMilestoneRepository(db)
	ctx := context.Background()
	project := createTestProject(t, db)

	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	due := &models.Milestone{ProjectID: project.ID, Title: "Due", Position: 1,
		Status: models.MilestoneStatusReadyForReview, ReviewDeadline: &past}
	notDue := &models.Milestone{ProjectID: project.ID, Title: "Not due", Position: 2,
		Status: models.MilestoneStatusReadyForReview, ReviewDeadline: &future}
	decided := &models.Milestone{ProjectID: project.ID, Title: "Decided", Position: 3,
		Status: models.MilestoneStatusChangesRequested}
	require.NoError(t, db.Create(due).Error)
	require.NoError(t, db.Create(notDue).Error)
	require.NoError(t, db.Create(decided).Error)

	candidates, err := repo.DueForAutoApproval(ctx, now)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, due.ID, candidates[0].ID)
}
