package dto

import (
	"time"

	"github.com/noah-isme/satria-go-api/internal/models"
)

// WorkflowEventListRequest describes query filters for the event feed.
type WorkflowEventListRequest struct {
	Page       int    `query:"page"`
	PageSize   int    `query:"page_size"`
	ActorID    uint   `query:"actor_id"`
	Action     string `query:"action"`
	EntityType string `query:"entity_type"`
}

// WorkflowEventResponse serializes one audit event.
type WorkflowEventResponse struct {
	ID         uint                   `json:"id"`
	ActorID    uint                   `json:"actor_id"`
	ActorRole  string                 `json:"actor_role"`
	Action     string                 `json:"action"`
	EntityType string                 `json:"entity_type"`
	EntityID   *uint                  `json:"entity_id"`
	Metadata   map[string]interface{} `json:"metadata"`
	CreatedAt  time.Time              `json:"created_at"`
}

// WorkflowEventListResponse wraps a page of audit events.
type WorkflowEventListResponse struct {
	Items      []WorkflowEventResponse `json:"items"`
	Pagination PaginationMeta          `json:"pagination"`
	CacheHit   bool                    `json:"cache_hit"`
}

// NewWorkflowEventResponse maps an event model to its API representation.
func NewWorkflowEventResponse(event models.WorkflowEvent) WorkflowEventResponse {
	return WorkflowEventResponse{
		ID:         event.ID,
		ActorID:    event.ActorID,
		ActorRole:  event.ActorRole,
		Action:     event.Action,
		EntityType: event.EntityType,
		EntityID:   event.EntityID,
		Metadata:   map[string]interface{}(event.Metadata),
		CreatedAt:  event.CreatedAt,
	}
}
