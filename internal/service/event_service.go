package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/satria-go-api/internal/dto"
	"github.com/noah-isme/satria-go-api/internal/models"
	"github.com/noah-isme/satria-go-api/internal/repository"
)

// WorkflowEventEntry captures the details required to persist an audit event.
type WorkflowEventEntry struct {
	ActorID    uint
	ActorRole  string
	Action     string
	EntityType string
	EntityID   *uint
	Metadata   map[string]interface{}
}

// WorkflowEventRecorder defines behaviour for recording workflow audit events.
type WorkflowEventRecorder interface {
	Record(ctx context.Context, entry WorkflowEventEntry) (dto.WorkflowEventResponse, error)
}

// WorkflowEventService exposes methods to query and persist workflow events.
type WorkflowEventService interface {
	WorkflowEventRecorder
	List(ctx context.Context, req dto.WorkflowEventListRequest) (dto.WorkflowEventListResponse, error)
	ListRecent(ctx context.Context, req dto.WorkflowEventListRequest) (dto.WorkflowEventListResponse, error)
}

type workflowEventService struct {
	repo   repository.WorkflowEventRepository
	cache  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
	now    func() time.Time
}

// NewWorkflowEventService constructs the workflow event service.
func NewWorkflowEventService(repo repository.WorkflowEventRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) WorkflowEventService {
	if ttl <= 0 {
		ttl = 45 * time.Second
	}
	return &workflowEventService{
		repo:   repo,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With().Str("component", "workflow_event_service").Logger(),
		now:    time.Now,
	}
}

func (s *workflowEventService) Record(ctx context.Context, entry WorkflowEventEntry) (dto.WorkflowEventResponse, error) {
	if strings.TrimSpace(entry.Action) == "" {
		return dto.WorkflowEventResponse{}, fmt.Errorf("action is required")
	}
	if strings.TrimSpace(entry.EntityType) == "" {
		return dto.WorkflowEventResponse{}, fmt.Errorf("entity type is required")
	}

	model := models.WorkflowEvent{
		ActorID:    entry.ActorID,
		ActorRole:  normalizeRole(entry.ActorRole),
		Action:     strings.ToLower(strings.TrimSpace(entry.Action)),
		EntityType: strings.ToLower(strings.TrimSpace(entry.EntityType)),
		EntityID:   entry.EntityID,
		Metadata:   sanitizeMetadata(entry.Metadata),
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		s.logger.Error().Err(err).Msg("failed to persist workflow event")
		return dto.WorkflowEventResponse{}, err
	}

	return dto.NewWorkflowEventResponse(model), nil
}

func (s *workflowEventService) List(ctx context.Context, req dto.WorkflowEventListRequest) (dto.WorkflowEventListResponse, error) {
	filter := repository.WorkflowEventFilter{
		Page:       req.Page,
		PageSize:   req.PageSize,
		Action:     strings.TrimSpace(req.Action),
		EntityType: strings.TrimSpace(req.EntityType),
	}
	if req.ActorID > 0 {
		filter.ActorID = &req.ActorID
	}

	events, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.WorkflowEventListResponse{}, err
	}

	return s.buildResponse(events, total, req.Page, req.PageSize, false), nil
}

func (s *workflowEventService) ListRecent(ctx context.Context, req dto.WorkflowEventListRequest) (dto.WorkflowEventListResponse, error) {
	page := maxInt(req.Page, 1)
	pageSize := clampPageSize(req.PageSize)
	now := s.now()

	filter := repository.WorkflowEventRecentFilter{
		Since:      now.Add(-24 * time.Hour),
		Until:      now,
		Page:       page,
		PageSize:   pageSize,
		Action:     strings.ToLower(strings.TrimSpace(req.Action)),
		EntityType: strings.ToLower(strings.TrimSpace(req.EntityType)),
	}
	if req.ActorID > 0 {
		filter.ActorID = &req.ActorID
	}

	cacheKey := s.cacheKey(filter)
	if cacheKey != "" {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil && cached != "" {
			var response dto.WorkflowEventListResponse
			if err := json.Unmarshal([]byte(cached), &response); err == nil {
				response.CacheHit = true
				return response, nil
			}
		}
	}

	events, total, err := s.repo.ListRecent(ctx, filter)
	if err != nil {
		return dto.WorkflowEventListResponse{}, err
	}

	response := s.buildResponse(events, total, page, pageSize, false)

	if cacheKey != "" {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.ttl).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to write event feed cache")
			}
		}
	}

	return response, nil
}

func (s *workflowEventService) buildResponse(events []models.WorkflowEvent, total int64, page, pageSize int, cacheHit bool) dto.WorkflowEventListResponse {
	items := make([]dto.WorkflowEventResponse, 0, len(events))
	for _, event := range events {
		items = append(items, dto.NewWorkflowEventResponse(event))
	}

	return dto.WorkflowEventListResponse{
		Items:      items,
		Pagination: paginationMeta(page, pageSize, total),
		CacheHit:   cacheHit,
	}
}

func (s *workflowEventService) cacheKey(filter repository.WorkflowEventRecentFilter) string {
	if s.cache == nil {
		return ""
	}
	actorKey := "0"
	if filter.ActorID != nil {
		actorKey = fmt.Sprintf("%d", *filter.ActorID)
	}
	return fmt.Sprintf("events:recent:v1:%s:%s|%s:%d:%d", actorKey, filter.Action, filter.EntityType, filter.Page, filter.PageSize)
}

func sanitizeMetadata(metadata map[string]interface{}) datatypes.JSONMap {
	if metadata == nil {
		return datatypes.JSONMap{}
	}

	sanitized := datatypes.JSONMap{}
	for key, value := range metadata {
		lower := strings.ToLower(key)
		if strings.Contains(lower, "email") || strings.Contains(lower, "token") {
			sanitized[key] = "***"
			continue
		}
		sanitized[key] = value
	}
	return sanitized
}

func normalizeRole(role string) string {
	r := strings.ToLower(strings.TrimSpace(role))
	if r == "" {
		return "system"
	}
	return r
}

func clampPageSize(size int) int {
	if size <= 0 {
		return 20
	}
	if size > 100 {
		return 100
	}
	return size
}
