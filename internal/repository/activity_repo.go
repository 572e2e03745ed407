package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/satria-go-api/internal/models"
)

// ActivityFilter narrows activity queries.
type ActivityFilter struct {
	StudentID *uint
	Status    *string
	Category  *string
	Page      int
	PageSize  int
}

// ActivityRepository defines data operations for student activities.
type ActivityRepository interface {
	List(ctx context.Context, filter ActivityFilter) ([]models.Activity, int64, error)
	GetByID(ctx context.Context, id uint) (models.Activity, error)
	Create(ctx context.Context, activity *models.Activity) error
	// UpdateCAS writes the record only if its stored version still matches
	// the version it was read at. Returns ErrVersionConflict otherwise.
	UpdateCAS(ctx context.Context, activity *models.Activity) error
	// DeleteWithApproval removes the activity and its linked approval record
	// in a single transaction.
	DeleteWithApproval(ctx context.Context, activityID uint) error
}

type activityRepository struct {
	db *gorm.DB
}

// NewActivityRepository instantiates the repository.
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) List(ctx context.Context, filter ActivityFilter) ([]models.Activity, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Activity{})

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	if filter.Category != nil {
		query = query.Where("category = ?", *filter.Category)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var activities []models.Activity
	if err := query.Order("created_at DESC").Find(&activities).Error; err != nil {
		return nil, 0, err
	}

	return activities, total, nil
}

func (r *activityRepository) GetByID(ctx context.Context, id uint) (models.Activity, error) {
	var activity models.Activity
	if err := r.db.WithContext(ctx).First(&activity, id).Error; err != nil {
		return models.Activity{}, err
	}

	return activity, nil
}

func (r *activityRepository) Create(ctx context.Context, activity *models.Activity) error {
	return r.db.WithContext(ctx).Create(activity).Error
}

func (r *activityRepository) UpdateCAS(ctx context.Context, activity *models.Activity) error {
	return updateActivityCAS(r.db.WithContext(ctx), activity)
}

func (r *activityRepository) DeleteWithApproval(ctx context.Context, activityID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("activity_id = ?", activityID).Delete(&models.FacultyApproval{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Activity{}, activityID).Error
	})
}

// updateActivityCAS performs the compare-and-swap write shared by the plain
// repository and the cross-entity transaction helpers.
func updateActivityCAS(tx *gorm.DB, activity *models.Activity) error {
	expected := activity.Version
	activity.Version = expected + 1

	result := tx.Model(&models.Activity{}).
		Where("id = ? AND version = ?", activity.ID, expected).
		Select("*").
		Omit("id", "created_at").
		Updates(activity)
	if result.Error != nil {
		activity.Version = expected
		return result.Error
	}
	if result.RowsAffected == 0 {
		activity.Version = expected
		return ErrVersionConflict
	}

	return nil
}
