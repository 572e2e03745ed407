package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/satria-go-api/internal/models"
)

func setupWorkflowTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Student{},
		&models.Faculty{},
		&models.Activity{},
		&models.FacultyApproval{},
		&models.WorkflowEvent{},
	))
	return db
}

func seedActivity(t *testing.T, db *gorm.DB, status string) models.Activity {
	t.Helper()
	activity := models.Activity{
		StudentID:   1,
		Title:       "Robotics Competition",
		Description: "Regional robotics competition entry",
		Category:    "competition",
		Status:      status,
		StartDate:   time.Now().AddDate(0, 0, -7),
	}
	require.NoError(t, db.Create(&activity).Error)
	return activity
}

func TestActivityRepositoryListFiltersAndPaginates(t *testing.T) {
	db := setupWorkflowTestDB(t)
	repo := NewActivityRepository(db)

	seedActivity(t, db, models.ActivityStatusDraft)
	pending := seedActivity(t, db, models.ActivityStatusPending)
	other := models.Activity{
		StudentID:   2,
		Title:       "Data Workshop",
		Description: "Intro workshop",
		Category:    "workshop",
		Status:      models.ActivityStatusDraft,
		StartDate:   time.Now(),
	}
	require.NoError(t, db.Create(&other).Error)

	studentID := uint(1)
	items, total, err := repo.List(context.Background(), ActivityFilter{StudentID: &studentID})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, items, 2)

	status := models.ActivityStatusPending
	items, total, err = repo.List(context.Background(), ActivityFilter{Status: &status})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, pending.ID, items[0].ID)

	category := "workshop"
	items, _, err = repo.List(context.Background(), ActivityFilter{Category: &category})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, other.ID, items[0].ID)

	paged, total, err := repo.List(context.Background(), ActivityFilter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, paged, 1)
}

func TestActivityRepositoryUpdateCASDetectsStaleVersion(t *testing.T) {
	db := setupWorkflowTestDB(t)
	repo := NewActivityRepository(db)

	activity := seedActivity(t, db, models.ActivityStatusDraft)

	first, err := repo.GetByID(context.Background(), activity.ID)
	require.NoError(t, err)
	second, err := repo.GetByID(context.Background(), activity.ID)
	require.NoError(t, err)

	first.Title = "Updated by first reader"
	require.NoError(t, repo.UpdateCAS(context.Background(), &first))
	require.Equal(t, activity.Version+1, first.Version)

	second.Title = "Updated by stale reader"
	err = repo.UpdateCAS(context.Background(), &second)
	require.ErrorIs(t, err, ErrVersionConflict)

	// Version on the stale copy must be left untouched so callers can reload.
	require.Equal(t, activity.Version, second.Version)

	var stored models.Activity
	require.NoError(t, db.First(&stored, activity.ID).Error)
	require.Equal(t, "Updated by first reader", stored.Title)
}

func TestActivityRepositoryDeleteWithApproval(t *testing.T) {
	db := setupWorkflowTestDB(t)
	repo := NewActivityRepository(db)

	activity := seedActivity(t, db, models.ActivityStatusPending)
	approval := models.FacultyApproval{
		ActivityID:  activity.ID,
		StudentID:   activity.StudentID,
		Category:    activity.Category,
		Status:      models.ApprovalStatusPending,
		Stage:       models.StageSubmitted,
		SubmittedAt: time.Now(),
	}
	require.NoError(t, db.Create(&approval).Error)

	require.NoError(t, repo.DeleteWithApproval(context.Background(), activity.ID))

	var activityCount, approvalCount int64
	require.NoError(t, db.Model(&models.Activity{}).Where("id = ?", activity.ID).Count(&activityCount).Error)
	require.NoError(t, db.Model(&models.FacultyApproval{}).Where("activity_id = ?", activity.ID).Count(&approvalCount).Error)
	require.Zero(t, activityCount)
	require.Zero(t, approvalCount)
}
