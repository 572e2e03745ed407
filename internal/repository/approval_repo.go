package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/satria-go-api/internal/models"
)

// ApprovalFilter narrows approval queries for review queues and workload scans.
type ApprovalFilter struct {
	FacultyID *uint
	StudentID *uint
	Status    *string
	Category  *string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

// ApprovalRepository defines data operations for faculty approval records.
type ApprovalRepository interface {
	List(ctx context.Context, filter ApprovalFilter) ([]models.FacultyApproval, int64, error)
	GetByID(ctx context.Context, id uint) (models.FacultyApproval, error)
	GetByActivityID(ctx context.Context, activityID uint) (models.FacultyApproval, error)
	Create(ctx context.Context, approval *models.FacultyApproval) error
	// UpdateCAS writes the record only if its stored version still matches
	// the version it was read at. Returns ErrVersionConflict otherwise.
	UpdateCAS(ctx context.Context, approval *models.FacultyApproval) error
	// SavePair writes an approval and its linked activity in one transaction,
	// both CAS-guarded, so a decision never leaves partial cross-entity state.
	SavePair(ctx context.Context, approval *models.FacultyApproval, activity *models.Activity) error
	// CreateWithActivity inserts a new approval and CAS-updates the linked
	// activity atomically; used when a draft activity is first submitted.
	CreateWithActivity(ctx context.Context, approval *models.FacultyApproval, activity *models.Activity) error
}

type approvalRepository struct {
	db *gorm.DB
}

// NewApprovalRepository instantiates the repository.
func NewApprovalRepository(db *gorm.DB) ApprovalRepository {
	return &approvalRepository{db: db}
}

func (r *approvalRepository) List(ctx context.Context, filter ApprovalFilter) ([]models.FacultyApproval, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.FacultyApproval{})

	if filter.FacultyID != nil {
		query = query.Where("faculty_id = ?", *filter.FacultyID)
	}

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	if filter.Category != nil {
		query = query.Where("category = ?", *filter.Category)
	}

	if filter.From != nil {
		query = query.Where("submitted_at >= ?", *filter.From)
	}

	if filter.To != nil {
		query = query.Where("submitted_at <= ?", *filter.To)
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

	var approvals []models.FacultyApproval
	if err := query.Order("submitted_at DESC").Find(&approvals).Error; err != nil {
		return nil, 0, err
	}

	return approvals, total, nil
}

func (r *approvalRepository) GetByID(ctx context.Context, id uint) (models.FacultyApproval, error) {
	var approval models.FacultyApproval
	if err := r.db.WithContext(ctx).First(&approval, id).Error; err != nil {
		return models.FacultyApproval{}, err
	}

	return approval, nil
}

func (r *approvalRepository) GetByActivityID(ctx context.Context, activityID uint) (models.FacultyApproval, error) {
	var approval models.FacultyApproval
	if err := r.db.WithContext(ctx).Where("activity_id = ?", activityID).First(&approval).Error; err != nil {
		return models.FacultyApproval{}, err
	}

	return approval, nil
}

func (r *approvalRepository) Create(ctx context.Context, approval *models.FacultyApproval) error {
	return r.db.WithContext(ctx).Create(approval).Error
}

func (r *approvalRepository) UpdateCAS(ctx context.Context, approval *models.FacultyApproval) error {
	return updateApprovalCAS(r.db.WithContext(ctx), approval)
}

func (r *approvalRepository) SavePair(ctx context.Context, approval *models.FacultyApproval, activity *models.Activity) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := updateApprovalCAS(tx, approval); err != nil {
			return err
		}
		if activity != nil {
			return updateActivityCAS(tx, activity)
		}
		return nil
	})
}

func (r *approvalRepository) CreateWithActivity(ctx context.Context, approval *models.FacultyApproval, activity *models.Activity) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(approval).Error; err != nil {
			return err
		}
		return updateActivityCAS(tx, activity)
	})
}

func updateApprovalCAS(tx *gorm.DB, approval *models.FacultyApproval) error {
	expected := approval.Version
	approval.Version = expected + 1

	result := tx.Model(&models.FacultyApproval{}).
		Where("id = ? AND version = ?", approval.ID, expected).
		Select("*").
		Omit("id", "created_at").
		Updates(approval)
	if result.Error != nil {
		approval.Version = expected
		return result.Error
	}
	if result.RowsAffected == 0 {
		approval.Version = expected
		return ErrVersionConflict
	}

	return nil
}
