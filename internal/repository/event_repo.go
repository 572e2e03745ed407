package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/satria-go-api/internal/models"
)

// WorkflowEventFilter narrows workflow event queries.
type WorkflowEventFilter struct {
	Page       int
	PageSize   int
	ActorID    *uint
	Action     string
	EntityType string
}

// WorkflowEventRecentFilter selects events inside a time window.
type WorkflowEventRecentFilter struct {
	Since      time.Time
	Until      time.Time
	ActorID    *uint
	Action     string
	EntityType string
	Page       int
	PageSize   int
}

// WorkflowEventRepository persists the platform-wide audit trail.
type WorkflowEventRepository interface {
	Create(ctx context.Context, event *models.WorkflowEvent) error
	List(ctx context.Context, filter WorkflowEventFilter) ([]models.WorkflowEvent, int64, error)
	ListRecent(ctx context.Context, filter WorkflowEventRecentFilter) ([]models.WorkflowEvent, int64, error)
}

type workflowEventRepository struct {
	db *gorm.DB
}

// NewWorkflowEventRepository constructs the workflow event repository.
func NewWorkflowEventRepository(db *gorm.DB) WorkflowEventRepository {
	return &workflowEventRepository{db: db}
}

func (r *workflowEventRepository) Create(ctx context.Context, event *models.WorkflowEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *workflowEventRepository) List(ctx context.Context, filter WorkflowEventFilter) ([]models.WorkflowEvent, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.WorkflowEvent{})

	if filter.ActorID != nil {
		query = query.Where("actor_id = ?", *filter.ActorID)
	}

	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}

	if filter.EntityType != "" {
		query = query.Where("entity_type = ?", filter.EntityType)
	}

	return r.paginate(query, filter.Page, filter.PageSize)
}

func (r *workflowEventRepository) ListRecent(ctx context.Context, filter WorkflowEventRecentFilter) ([]models.WorkflowEvent, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.WorkflowEvent{}).
		Where("created_at >= ?", filter.Since).
		Where("created_at <= ?", filter.Until)

	if filter.ActorID != nil {
		query = query.Where("actor_id = ?", *filter.ActorID)
	}

	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}

	if filter.EntityType != "" {
		query = query.Where("entity_type = ?", filter.EntityType)
	}

	return r.paginate(query, filter.Page, filter.PageSize)
}

func (r *workflowEventRepository) paginate(query *gorm.DB, page, pageSize int) ([]models.WorkflowEvent, int64, error) {
	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if pageSize > 0 {
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * pageSize).Limit(pageSize)
	}

	var events []models.WorkflowEvent
	if err := query.Order("created_at DESC").Find(&events).Error; err != nil {
		return nil, 0, err
	}

	return events, total, nil
}
