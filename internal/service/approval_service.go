package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/noah-isme/satria-go-api/internal/dto"
	"github.com/noah-isme/satria-go-api/internal/models"
	"github.com/noah-isme/satria-go-api/internal/observability"
	"github.com/noah-isme/satria-go-api/internal/repository"
)

// ApprovalService is the faculty-side review workflow engine. Every
// transition moves status and stage together through the canonical mapping
// and appends to the record's audit trail.
type ApprovalService interface {
	Get(ctx context.Context, id uint) (dto.ApprovalResponse, error)
	List(ctx context.Context, filter dto.ApprovalFilter) (dto.ApprovalListResponse, error)
	Assign(ctx context.Context, id uint, actor Actor, payload dto.AssignRequest) (dto.ApprovalResponse, error)
	StartReview(ctx context.Context, id uint, actor Actor, payload dto.StartReviewRequest) (dto.ApprovalResponse, error)
	Approve(ctx context.Context, id uint, actor Actor, payload dto.ApproveRequest) (dto.ApprovalResponse, error)
	Reject(ctx context.Context, id uint, actor Actor, payload dto.RejectRequest) (dto.ApprovalResponse, error)
	RequestChanges(ctx context.Context, id uint, actor Actor, payload dto.RequestChangesRequest) (dto.ApprovalResponse, error)
	Escalate(ctx context.Context, id uint, actor Actor, payload dto.EscalateRequest) (dto.ApprovalResponse, error)
}

type approvalService struct {
	approvals  repository.ApprovalRepository
	activities repository.ActivityRepository
	faculty    repository.FacultyRepository
	validator  *validator.Validate
	events     WorkflowEventRecorder
	notifier   ReviewNotifier
	sanitizer  *bluemonday.Policy
	logger     zerolog.Logger
	now        func() time.Time
}

// NewApprovalService constructs the review workflow engine.
func NewApprovalService(
	approvals repository.ApprovalRepository,
	activities repository.ActivityRepository,
	faculty repository.FacultyRepository,
	validate *validator.Validate,
	events WorkflowEventRecorder,
	notifier ReviewNotifier,
	logger zerolog.Logger,
) ApprovalService {
	return &approvalService{
		approvals:  approvals,
		activities: activities,
		faculty:    faculty,
		validator:  validate,
		events:     events,
		notifier:   notifier,
		sanitizer:  bluemonday.StrictPolicy(),
		logger:     logger.With().Str("component", "approval_service").Logger(),
		now:        time.Now,
	}
}

func (s *approvalService) Get(ctx context.Context, id uint) (dto.ApprovalResponse, error) {
	approval, err := s.loadApproval(ctx, id)
	if err != nil {
		return dto.ApprovalResponse{}, err
	}
	return dto.NewApprovalResponse(approval, s.now()), nil
}

func (s *approvalService) List(ctx context.Context, filter dto.ApprovalFilter) (dto.ApprovalListResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return dto.ApprovalListResponse{}, err
	}

	repoFilter := repository.ApprovalFilter{
		FacultyID: filter.FacultyID,
		StudentID: filter.StudentID,
		Status:    filter.Status,
		Category:  filter.Category,
		Page:      filter.Page,
		PageSize:  filter.PageSize,
	}

	approvals, total, err := s.approvals.List(ctx, repoFilter)
	if err != nil {
		return dto.ApprovalListResponse{}, err
	}

	return dto.ApprovalListResponse{
		Items:      dto.NewApprovalResponseSlice(approvals, s.now()),
		Pagination: paginationMeta(filter.Page, filter.PageSize, total),
	}, nil
}

func (s *approvalService) Assign(ctx context.Context, id uint, actor Actor, payload dto.AssignRequest) (dto.ApprovalResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ApprovalResponse{}, err
	}

	if _, err := s.faculty.GetByID(ctx, payload.FacultyID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ApprovalResponse{}, ErrFacultyNotFound
		}
		return dto.ApprovalResponse{}, err
	}

	var assigned models.FacultyApproval
	err := s.transition(ctx, id, "assign", func(approval *models.FacultyApproval) (*models.Activity, error) {
		now := s.now()
		facultyID := payload.FacultyID
		approval.FacultyID = &facultyID
		approval.AssignedTo = &facultyID
		approval.DueDate = payload.DueDate
		if payload.Priority != "" {
			approval.Priority = payload.Priority
		}
		approval.AppendHistory(models.ReviewHistoryEntry{
			Action:      models.HistoryActionAssigned,
			PerformedBy: actor.ID,
			PerformedAt: now,
			Notes:       fmt.Sprintf("assigned to faculty %d", facultyID),
		})
		s.markFacultyNotified(approval, now)
		assigned = *approval
		return nil, nil
	}, &assigned)
	if err != nil {
		return dto.ApprovalResponse{}, err
	}

	s.recordEvent(ctx, actor, "approval.assigned", assigned.ID, map[string]interface{}{
		"faculty_id":  payload.FacultyID,
		"activity_id": assigned.ActivityID,
	})

	return dto.NewApprovalResponse(assigned, s.now()), nil
}

func (s *approvalService) StartReview(ctx context.Context, id uint, actor Actor, payload dto.StartReviewRequest) (dto.ApprovalResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ApprovalResponse{}, err
	}

	var started models.FacultyApproval
	err := s.transition(ctx, id, "start_review", func(approval *models.FacultyApproval) (*models.Activity, error) {
		if err := s.guardAssigned(*approval, actor); err != nil {
			return nil, err
		}
		if approval.Status != models.ApprovalStatusPending {
			return nil, fmt.Errorf("%w: start review requires pending, status is %s", ErrInvalidState, approval.Status)
		}

		now := s.now()
		previous := approval.Status
		approval.SetStatus(models.ApprovalStatusUnderReview)
		approval.AppendHistory(models.ReviewHistoryEntry{
			Action:         models.HistoryActionReviewStarted,
			PerformedBy:    actor.ID,
			PerformedAt:    now,
			Notes:          s.sanitize(payload.Notes),
			PreviousStatus: previous,
			NewStatus:      approval.Status,
		})
		started = *approval
		return nil, nil
	}, &started)
	if err != nil {
		return dto.ApprovalResponse{}, err
	}

	s.recordEvent(ctx, actor, "approval.review_started", started.ID, nil)

	return dto.NewApprovalResponse(started, s.now()), nil
}

func (s *approvalService) Approve(ctx context.Context, id uint, actor Actor, payload dto.ApproveRequest) (dto.ApprovalResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ApprovalResponse{}, err
	}

	tracer := otel.Tracer("github.com/noah-isme/satria-go-api/internal/service/approval")
	ctx, span := tracer.Start(ctx, "approval.approve")
	span.SetAttributes(
		attribute.Int64("approval.id", int64(id)),
		attribute.Int64("approval.actor_id", int64(actor.ID)),
	)
	defer span.End()

	notes := s.sanitize(payload.Notes)

	var approved models.FacultyApproval
	err := s.transition(ctx, id, "approve", func(approval *models.FacultyApproval) (*models.Activity, error) {
		if err := s.guardAssigned(*approval, actor); err != nil {
			return nil, err
		}
		if approval.IsTerminal() {
			// Terminal records are re-approved idempotently to allow
			// corrections; this caller pattern is unusual enough to flag.
			s.logger.Warn().Uint("approval_id", approval.ID).Str("status", approval.Status).
				Msg("approve called on terminal record, re-applying")
		}

		now := s.now()
		previous := approval.Status

		if payload.Scoring != nil {
			approval.Scoring = scoringFromRequest(*payload.Scoring)
		}
		approval.Scoring.OverallScore = approval.Scoring.ComputeOverall()

		approval.SetStatus(models.ApprovalStatusApproved)
		completed := now
		approval.CompletedAt = &completed
		s.stampReviewed(approval, now)
		approval.AppendHistory(models.ReviewHistoryEntry{
			Action:         models.HistoryActionApproved,
			PerformedBy:    actor.ID,
			PerformedAt:    now,
			Notes:          notes,
			PreviousStatus: previous,
			NewStatus:      approval.Status,
		})
		s.markStudentNotified(approval, now)

		activity, err := s.loadLinkedActivity(ctx, approval.ActivityID)
		if err != nil {
			return nil, err
		}
		activity.Status = models.ActivityStatusApproved
		approver := actor.ID
		activity.ApprovedBy = &approver
		activity.ApprovedAt = &now
		activity.RejectedBy = nil
		activity.RejectedAt = nil
		activity.RejectionReason = ""
		activity.ReviewNotes = notes

		approved = *approval
		return &activity, nil
	}, &approved)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "approve_failed")
		return dto.ApprovalResponse{}, err
	}

	if approved.Scoring.OverallScore != nil {
		span.SetAttributes(attribute.Int("approval.overall_score", *approved.Scoring.OverallScore))
	}

	s.recordEvent(ctx, actor, "approval.approved", approved.ID, map[string]interface{}{
		"activity_id": approved.ActivityID,
		"student_id":  approved.StudentID,
	})

	s.logger.Info().Uint("approval_id", approved.ID).Msg("approval granted")

	return dto.NewApprovalResponse(approved, s.now()), nil
}

func (s *approvalService) Reject(ctx context.Context, id uint, actor Actor, payload dto.RejectRequest) (dto.ApprovalResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ApprovalResponse{}, err
	}

	reason := strings.TrimSpace(s.sanitize(payload.Reason))
	if reason == "" {
		return dto.ApprovalResponse{}, ErrEmptyReason
	}
	notes := s.sanitize(payload.Notes)

	var rejected models.FacultyApproval
	err := s.transition(ctx, id, "reject", func(approval *models.FacultyApproval) (*models.Activity, error) {
		if err := s.guardAssigned(*approval, actor); err != nil {
			return nil, err
		}
		if approval.IsTerminal() {
			s.logger.Warn().Uint("approval_id", approval.ID).Str("status", approval.Status).
				Msg("reject called on terminal record, re-applying")
		}

		now := s.now()
		previous := approval.Status

		approval.SetStatus(models.ApprovalStatusRejected)
		completed := now
		approval.CompletedAt = &completed
		s.stampReviewed(approval, now)
		approval.AppendHistory(models.ReviewHistoryEntry{
			Action:         models.HistoryActionRejected,
			PerformedBy:    actor.ID,
			PerformedAt:    now,
			Notes:          reason,
			PreviousStatus: previous,
			NewStatus:      approval.Status,
		})
		s.markStudentNotified(approval, now)

		activity, err := s.loadLinkedActivity(ctx, approval.ActivityID)
		if err != nil {
			return nil, err
		}
		activity.Status = models.ActivityStatusRejected
		rejecter := actor.ID
		activity.RejectedBy = &rejecter
		activity.RejectedAt = &now
		activity.RejectionReason = reason
		activity.ReviewNotes = notes
		activity.ApprovedBy = nil
		activity.ApprovedAt = nil

		rejected = *approval
		return &activity, nil
	}, &rejected)
	if err != nil {
		return dto.ApprovalResponse{}, err
	}

	s.recordEvent(ctx, actor, "approval.rejected", rejected.ID, map[string]interface{}{
		"activity_id": rejected.ActivityID,
		"reason":      reason,
	})

	s.logger.Info().Uint("approval_id", rejected.ID).Msg("approval rejected")

	return dto.NewApprovalResponse(rejected, s.now()), nil
}

func (s *approvalService) RequestChanges(ctx context.Context, id uint, actor Actor, payload dto.RequestChangesRequest) (dto.ApprovalResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ApprovalResponse{}, err
	}

	changes := strings.TrimSpace(s.sanitize(payload.Changes))
	if changes == "" {
		return dto.ApprovalResponse{}, ErrEmptyChanges
	}

	var returned models.FacultyApproval
	err := s.transition(ctx, id, "request_changes", func(approval *models.FacultyApproval) (*models.Activity, error) {
		if err := s.guardAssigned(*approval, actor); err != nil {
			return nil, err
		}
		if approval.IsTerminal() {
			return nil, fmt.Errorf("%w: cannot request changes on %s record", ErrInvalidState, approval.Status)
		}

		now := s.now()
		previous := approval.Status

		approval.SetStatus(models.ApprovalStatusRequiresChanges)
		approval.AppendHistory(models.ReviewHistoryEntry{
			Action:         models.HistoryActionReturnedForChanges,
			PerformedBy:    actor.ID,
			PerformedAt:    now,
			Notes:          changes,
			PreviousStatus: previous,
			NewStatus:      approval.Status,
		})
		s.markStudentNotified(approval, now)

		// The student gets the record back as a draft, not a rejection,
		// so it can be amended and resubmitted.
		activity, err := s.loadLinkedActivity(ctx, approval.ActivityID)
		if err != nil {
			return nil, err
		}
		activity.Status = models.ActivityStatusDraft
		activity.ReviewNotes = changes

		returned = *approval
		return &activity, nil
	}, &returned)
	if err != nil {
		return dto.ApprovalResponse{}, err
	}

	s.recordEvent(ctx, actor, "approval.changes_requested", returned.ID, map[string]interface{}{
		"activity_id": returned.ActivityID,
	})

	return dto.NewApprovalResponse(returned, s.now()), nil
}

func (s *approvalService) Escalate(ctx context.Context, id uint, actor Actor, payload dto.EscalateRequest) (dto.ApprovalResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ApprovalResponse{}, err
	}

	reason := strings.TrimSpace(s.sanitize(payload.Reason))
	if reason == "" {
		return dto.ApprovalResponse{}, ErrEmptyReason
	}

	var escalated models.FacultyApproval
	err := s.transition(ctx, id, "escalate", func(approval *models.FacultyApproval) (*models.Activity, error) {
		now := s.now()
		approval.Escalate(reason)
		approval.AppendHistory(models.ReviewHistoryEntry{
			Action:      models.HistoryActionEscalated,
			PerformedBy: actor.ID,
			PerformedAt: now,
			Notes:       reason,
		})
		s.markAdminNotified(approval, now)
		escalated = *approval
		return nil, nil
	}, &escalated)
	if err != nil {
		return dto.ApprovalResponse{}, err
	}

	s.recordEvent(ctx, actor, "approval.escalated", escalated.ID, map[string]interface{}{
		"escalation_level": escalated.EscalationLevel,
	})

	return dto.NewApprovalResponse(escalated, s.now()), nil
}

// transition loads the approval, applies mutate, and writes the approval
// together with any linked activity mutate returns, all inside one
// CAS-guarded transaction. Version conflicts rerun mutate on fresh state up
// to casRetryLimit times.
func (s *approvalService) transition(ctx context.Context, id uint, action string, mutate func(*models.FacultyApproval) (*models.Activity, error), out *models.FacultyApproval) error {
	var err error
	for attempt := 0; attempt < casRetryLimit; attempt++ {
		err = func() error {
			approval, err := s.loadApproval(ctx, id)
			if err != nil {
				return err
			}

			activity, err := mutate(&approval)
			if err != nil {
				return err
			}

			if err := s.approvals.SavePair(ctx, &approval, activity); err != nil {
				return err
			}

			*out = approval
			s.notifyLast(ctx, approval)
			observability.WorkflowTransitions().WithLabelValues(action).Inc()
			return nil
		}()
		if !errors.Is(err, repository.ErrVersionConflict) {
			return err
		}
		observability.CASConflicts().Inc()
		s.logger.Warn().Uint("approval_id", id).Str("action", action).Int("attempt", attempt+1).
			Msg("version conflict, retrying with fresh state")
	}
	return err
}

func (s *approvalService) loadApproval(ctx context.Context, id uint) (models.FacultyApproval, error) {
	approval, err := s.approvals.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.FacultyApproval{}, ErrApprovalNotFound
		}
		return models.FacultyApproval{}, err
	}
	return approval, nil
}

func (s *approvalService) loadLinkedActivity(ctx context.Context, activityID uint) (models.Activity, error) {
	activity, err := s.activities.GetByID(ctx, activityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Activity{}, ErrActivityNotFound
		}
		return models.Activity{}, err
	}
	return activity, nil
}

func (s *approvalService) guardAssigned(approval models.FacultyApproval, actor Actor) error {
	if actor.Role == RoleAdmin {
		return nil
	}
	if approval.FacultyID == nil || *approval.FacultyID != actor.ID {
		return ErrNotAssignedFaculty
	}
	return nil
}

func (s *approvalService) stampReviewed(approval *models.FacultyApproval, now time.Time) {
	reviewed := now
	approval.ReviewedAt = &reviewed
	minutes := int(now.Sub(approval.SubmittedAt).Minutes())
	if minutes < 0 {
		minutes = 0
	}
	approval.ReviewDurationMinutes = &minutes
}

func (s *approvalService) markStudentNotified(approval *models.FacultyApproval, now time.Time) {
	approval.Notifications.StudentNotified = true
	at := now
	approval.Notifications.StudentNotifiedAt = &at
}

func (s *approvalService) markFacultyNotified(approval *models.FacultyApproval, now time.Time) {
	approval.Notifications.FacultyNotified = true
	at := now
	approval.Notifications.FacultyNotifiedAt = &at
}

func (s *approvalService) markAdminNotified(approval *models.FacultyApproval, now time.Time) {
	approval.Notifications.AdminNotified = true
	at := now
	approval.Notifications.AdminNotifiedAt = &at
}

func (s *approvalService) sanitize(input string) string {
	return strings.TrimSpace(s.sanitizer.Sanitize(input))
}

func (s *approvalService) notifyLast(ctx context.Context, approval models.FacultyApproval) {
	if s.notifier == nil || len(approval.History) == 0 {
		return
	}
	s.notifier.NotifyTransition(ctx, approval, approval.History[len(approval.History)-1])
}

func (s *approvalService) recordEvent(ctx context.Context, actor Actor, action string, entityID uint, metadata map[string]interface{}) {
	if s.events == nil {
		return
	}
	id := entityID
	_, _ = s.events.Record(ctx, WorkflowEventEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: "approval",
		EntityID:   &id,
		Metadata:   metadata,
	})
}

func scoringFromRequest(req dto.ScoringRequest) models.ReviewScoring {
	authenticity := req.Authenticity
	relevance := req.Relevance
	impact := req.Impact
	documentation := req.Documentation
	return models.ReviewScoring{
		Authenticity:  &authenticity,
		Relevance:     &relevance,
		Impact:        &impact,
		Documentation: &documentation,
	}
}
