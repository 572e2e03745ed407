package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/satria-go-api/internal/dto"
	"github.com/noah-isme/satria-go-api/internal/observability"
	"github.com/noah-isme/satria-go-api/internal/repository"
)

// WorkloadService computes read-only rollups over a faculty member's
// approval records. It never mutates workflow state; each record's state is
// read exactly once per aggregation so a snapshot counts a record under
// exactly one status.
type WorkloadService interface {
	GetFacultyWorkload(ctx context.Context, req dto.WorkloadRequest) (dto.WorkloadResponse, error)
}

type workloadService struct {
	approvals repository.ApprovalRepository
	validator *validator.Validate
	cache     *redis.Client
	ttl       time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

// NewWorkloadService constructs the workload aggregation service.
func NewWorkloadService(approvals repository.ApprovalRepository, validate *validator.Validate, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) WorkloadService {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &workloadService{
		approvals: approvals,
		validator: validate,
		cache:     cache,
		ttl:       ttl,
		logger:    logger.With().Str("component", "workload_service").Logger(),
		now:       time.Now,
	}
}

func (s *workloadService) GetFacultyWorkload(ctx context.Context, req dto.WorkloadRequest) (dto.WorkloadResponse, error) {
	start := time.Now()
	defer func() {
		observability.WorkloadLatency().Observe(time.Since(start).Seconds())
	}()

	if err := s.validator.Struct(req); err != nil {
		return dto.WorkloadResponse{}, err
	}

	cacheKey := s.cacheKey(req)
	if cacheKey != "" {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil && cached != "" {
			var response dto.WorkloadResponse
			if err := json.Unmarshal([]byte(cached), &response); err == nil {
				response.CacheHit = true
				return response, nil
			}
		}
	}

	facultyID := req.FacultyID
	filter := repository.ApprovalFilter{
		FacultyID: &facultyID,
		From:      req.From,
		To:        req.To,
	}

	approvals, _, err := s.approvals.List(ctx, filter)
	if err != nil {
		return dto.WorkloadResponse{}, err
	}

	now := s.now()
	counts := map[string]int{}
	categories := map[string]int{}
	overdue := 0
	var durationSum float64
	durationCount := 0
	var scoreSum float64
	scoreCount := 0

	for _, approval := range approvals {
		counts[approval.Status]++
		categories[approval.Category]++
		if approval.IsOverdue(now) {
			overdue++
		}
		if approval.ReviewDurationMinutes != nil {
			durationSum += float64(*approval.ReviewDurationMinutes)
			durationCount++
		}
		if approval.Scoring.OverallScore != nil {
			scoreSum += float64(*approval.Scoring.OverallScore)
			scoreCount++
		}
	}

	response := dto.WorkloadResponse{
		FacultyID:         req.FacultyID,
		WindowStart:       req.From,
		WindowEnd:         req.To,
		TotalAssigned:     len(approvals),
		CountsByStatus:    counts,
		OverdueCount:      overdue,
		CategoryBreakdown: categories,
		GeneratedAt:       now.UTC(),
	}
	if durationCount > 0 {
		avg := durationSum / float64(durationCount)
		response.AvgReviewDurationMin = &avg
	}
	if scoreCount > 0 {
		avg := scoreSum / float64(scoreCount)
		response.AvgOverallScore = &avg
	}

	if cacheKey != "" {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.ttl).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to write workload cache")
			}
		}
	}

	return response, nil
}

func (s *workloadService) cacheKey(req dto.WorkloadRequest) string {
	if s.cache == nil {
		return ""
	}
	from := int64(0)
	to := int64(0)
	if req.From != nil {
		from = req.From.Unix()
	}
	if req.To != nil {
		to = req.To.Unix()
	}
	return fmt.Sprintf("workload:v1:%d:%d:%d", req.FacultyID, from, to)
}
