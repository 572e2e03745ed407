package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"mime/multipart"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/satria-go-api/internal/dto"
	"github.com/noah-isme/satria-go-api/internal/models"
	"github.com/noah-isme/satria-go-api/internal/repository"
)

// Actor represents the authenticated caller of an operation. Identity and
// role come from the external auth collaborator and are opaque here.
type Actor struct {
	ID   uint
	Role string
}

// Actor roles recognised by the workflow.
const (
	RoleStudent = "student"
	RoleFaculty = "faculty"
	RoleAdmin   = "admin"
)

// casRetryLimit caps optimistic-concurrency retries before surfacing the
// conflict to the caller.
const casRetryLimit = 3

// ActivityService drives the student-side lifecycle of an activity.
type ActivityService interface {
	Create(ctx context.Context, actor Actor, payload dto.ActivityCreateRequest) (dto.ActivityResponse, error)
	Get(ctx context.Context, id uint) (dto.ActivityResponse, error)
	List(ctx context.Context, filter dto.ActivityFilter) (dto.ActivityListResponse, error)
	Update(ctx context.Context, id uint, actor Actor, payload dto.ActivityUpdateRequest) (dto.ActivityResponse, error)
	Submit(ctx context.Context, id uint, actor Actor) (dto.ActivityResponse, error)
	Delete(ctx context.Context, id uint, actor Actor) error
	AddAttachment(ctx context.Context, id uint, actor Actor, file *multipart.FileHeader) (dto.ActivityResponse, error)
	RemoveAttachment(ctx context.Context, id uint, attachmentID string, actor Actor) (dto.ActivityResponse, error)
}

type activityService struct {
	activities repository.ActivityRepository
	approvals  repository.ApprovalRepository
	students   repository.StudentRepository
	validator  *validator.Validate
	storage    FileStorage
	events     WorkflowEventRecorder
	notifier   ReviewNotifier
	logger     zerolog.Logger
	now        func() time.Time
}

// NewActivityService constructs an ActivityService instance.
func NewActivityService(
	activities repository.ActivityRepository,
	approvals repository.ApprovalRepository,
	students repository.StudentRepository,
	validate *validator.Validate,
	storage FileStorage,
	events WorkflowEventRecorder,
	notifier ReviewNotifier,
	logger zerolog.Logger,
) ActivityService {
	return &activityService{
		activities: activities,
		approvals:  approvals,
		students:   students,
		validator:  validate,
		storage:    storage,
		events:     events,
		notifier:   notifier,
		logger:     logger.With().Str("component", "activity_service").Logger(),
		now:        time.Now,
	}
}

func (s *activityService) Create(ctx context.Context, actor Actor, payload dto.ActivityCreateRequest) (dto.ActivityResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ActivityResponse{}, err
	}

	if payload.EndDate != nil && payload.EndDate.Before(payload.StartDate) {
		return dto.ActivityResponse{}, ErrEndBeforeStart
	}

	activity := models.Activity{
		StudentID:     actor.ID,
		Title:         payload.Title,
		Description:   payload.Description,
		Category:      payload.Category,
		Status:        models.ActivityStatusDraft,
		StartDate:     payload.StartDate,
		EndDate:       payload.EndDate,
		DurationHours: durationOrDerived(payload.DurationHours, payload.StartDate, payload.EndDate),
		Location:      payload.Location,
		Organizer:     payload.Organizer,
		Skills:        datatypes.NewJSONSlice(payload.Skills),
		Tags:          datatypes.NewJSONSlice(payload.Tags),
		Impact:        impactFromRequest(payload.Impact),
	}

	if err := s.activities.Create(ctx, &activity); err != nil {
		return dto.ActivityResponse{}, err
	}

	s.recordEvent(ctx, actor, "activity.created", activity.ID, map[string]interface{}{
		"category": activity.Category,
		"title":    activity.Title,
	})

	s.logger.Info().Uint("activity_id", activity.ID).Msg("activity created")

	return dto.NewActivityResponse(activity), nil
}

func (s *activityService) Get(ctx context.Context, id uint) (dto.ActivityResponse, error) {
	activity, err := s.loadActivity(ctx, id)
	if err != nil {
		return dto.ActivityResponse{}, err
	}
	return dto.NewActivityResponse(activity), nil
}

func (s *activityService) List(ctx context.Context, filter dto.ActivityFilter) (dto.ActivityListResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return dto.ActivityListResponse{}, err
	}

	repoFilter := repository.ActivityFilter{
		StudentID: filter.StudentID,
		Status:    filter.Status,
		Category:  filter.Category,
		Page:      filter.Page,
		PageSize:  filter.PageSize,
	}

	activities, total, err := s.activities.List(ctx, repoFilter)
	if err != nil {
		return dto.ActivityListResponse{}, err
	}

	return dto.ActivityListResponse{
		Items:      dto.NewActivityResponseSlice(activities),
		Pagination: paginationMeta(filter.Page, filter.PageSize, total),
	}, nil
}

func (s *activityService) Update(ctx context.Context, id uint, actor Actor, payload dto.ActivityUpdateRequest) (dto.ActivityResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ActivityResponse{}, err
	}

	var updated models.Activity
	err := s.withRetry(func() error {
		activity, err := s.loadActivity(ctx, id)
		if err != nil {
			return err
		}

		if err := s.guardOwner(activity, actor); err != nil {
			return err
		}
		if activity.IsApproved() {
			return ErrActivityLocked
		}
		if !activity.IsEditable() {
			return fmt.Errorf("%w: status is %s", ErrInvalidState, activity.Status)
		}

		if err := applyActivityUpdate(&activity, payload); err != nil {
			return err
		}

		// Reworking a rejected record resets it to draft for resubmission.
		if activity.Status == models.ActivityStatusRejected {
			activity.Status = models.ActivityStatusDraft
			activity.RejectedBy = nil
			activity.RejectedAt = nil
			activity.RejectionReason = ""
		}

		if err := s.activities.UpdateCAS(ctx, &activity); err != nil {
			return err
		}
		updated = activity
		return nil
	})
	if err != nil {
		return dto.ActivityResponse{}, err
	}

	s.recordEvent(ctx, actor, "activity.updated", updated.ID, nil)

	return dto.NewActivityResponse(updated), nil
}

func (s *activityService) Submit(ctx context.Context, id uint, actor Actor) (dto.ActivityResponse, error) {
	var submitted models.Activity
	err := s.withRetry(func() error {
		activity, err := s.loadActivity(ctx, id)
		if err != nil {
			return err
		}

		if err := s.guardOwner(activity, actor); err != nil {
			return err
		}
		if activity.Status != models.ActivityStatusDraft {
			return fmt.Errorf("%w: submit requires draft, status is %s", ErrInvalidState, activity.Status)
		}

		now := s.now()
		activity.Status = models.ActivityStatusPending

		approval, err := s.approvals.GetByActivityID(ctx, activity.ID)
		switch {
		case err == nil:
			// Resubmission after requested changes reuses the same record
			// and opens a fresh pending cycle on it.
			previous := approval.Status
			approval.SetStatus(models.ApprovalStatusPending)
			approval.SubmittedAt = now
			approval.ReviewedAt = nil
			approval.ReviewDurationMinutes = nil
			approval.CompletedAt = nil
			approval.AppendHistory(models.ReviewHistoryEntry{
				Action:         models.HistoryActionResubmitted,
				PerformedBy:    actor.ID,
				PerformedAt:    now,
				PreviousStatus: previous,
				NewStatus:      models.ApprovalStatusPending,
			})
			if err := s.approvals.SavePair(ctx, &approval, &activity); err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			approval = models.FacultyApproval{
				ActivityID:  activity.ID,
				StudentID:   activity.StudentID,
				Department:  s.studentDepartment(ctx, activity.StudentID),
				Category:    activity.Category,
				Status:      models.ApprovalStatusPending,
				Stage:       models.StageSubmitted,
				SubmittedAt: now,
			}
			approval.AppendHistory(models.ReviewHistoryEntry{
				Action:      models.HistoryActionSubmitted,
				PerformedBy: actor.ID,
				PerformedAt: now,
				NewStatus:   models.ApprovalStatusPending,
			})
			if err := s.approvals.CreateWithActivity(ctx, &approval, &activity); err != nil {
				return err
			}
		default:
			return err
		}

		submitted = activity
		s.notify(ctx, approval)
		return nil
	})
	if err != nil {
		return dto.ActivityResponse{}, err
	}

	s.recordEvent(ctx, actor, "activity.submitted", submitted.ID, map[string]interface{}{
		"category": submitted.Category,
	})

	s.logger.Info().Uint("activity_id", submitted.ID).Msg("activity submitted for review")

	return dto.NewActivityResponse(submitted), nil
}

func (s *activityService) Delete(ctx context.Context, id uint, actor Actor) error {
	activity, err := s.loadActivity(ctx, id)
	if err != nil {
		return err
	}

	if activity.StudentID != actor.ID && actor.Role != RoleAdmin {
		return ErrNotOwner
	}
	if activity.IsApproved() {
		return ErrActivityLocked
	}

	if err := s.activities.DeleteWithApproval(ctx, activity.ID); err != nil {
		return err
	}

	// Attachment bytes live with the storage collaborator; their removal is
	// requested without blocking the delete. Failures are logged, not surfaced.
	if s.storage != nil && len(activity.Attachments) > 0 {
		attachments := append([]models.Attachment(nil), activity.Attachments...)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			for _, att := range attachments {
				if err := s.storage.Destroy(ctx, att.URL); err != nil {
					s.logger.Warn().Err(err).Str("attachment", att.FileName).Msg("failed to delete attachment from storage")
				}
			}
		}()
	}

	s.recordEvent(ctx, actor, "activity.deleted", activity.ID, nil)

	s.logger.Info().Uint("activity_id", activity.ID).Msg("activity deleted")

	return nil
}

func (s *activityService) AddAttachment(ctx context.Context, id uint, actor Actor, file *multipart.FileHeader) (dto.ActivityResponse, error) {
	if file == nil {
		return dto.ActivityResponse{}, fmt.Errorf("attachment file is required")
	}

	mimeType, err := detectAttachmentType(file)
	if err != nil {
		return dto.ActivityResponse{}, err
	}

	reader, err := file.Open()
	if err != nil {
		return dto.ActivityResponse{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	url, err := s.storage.Upload(ctx, file.Filename, reader)
	if err != nil {
		return dto.ActivityResponse{}, fmt.Errorf("failed to upload attachment: %w", err)
	}

	descriptor := models.Attachment{
		ID:         uuid.NewString(),
		FileName:   file.Filename,
		Size:       file.Size,
		MimeType:   mimeType,
		URL:        url,
		UploadedAt: s.now(),
	}

	var updated models.Activity
	err = s.withRetry(func() error {
		activity, err := s.loadActivity(ctx, id)
		if err != nil {
			return err
		}
		if err := s.guardOwner(activity, actor); err != nil {
			return err
		}
		if !activity.IsEditable() {
			return fmt.Errorf("%w: attachments require draft or rejected, status is %s", ErrInvalidState, activity.Status)
		}

		activity.Attachments = append(activity.Attachments, descriptor)
		if err := s.activities.UpdateCAS(ctx, &activity); err != nil {
			return err
		}
		updated = activity
		return nil
	})
	if err != nil {
		return dto.ActivityResponse{}, err
	}

	return dto.NewActivityResponse(updated), nil
}

func (s *activityService) RemoveAttachment(ctx context.Context, id uint, attachmentID string, actor Actor) (dto.ActivityResponse, error) {
	var updated models.Activity
	var removed *models.Attachment
	err := s.withRetry(func() error {
		activity, err := s.loadActivity(ctx, id)
		if err != nil {
			return err
		}
		if err := s.guardOwner(activity, actor); err != nil {
			return err
		}
		if !activity.IsEditable() {
			return fmt.Errorf("%w: attachments require draft or rejected, status is %s", ErrInvalidState, activity.Status)
		}

		kept := make([]models.Attachment, 0, len(activity.Attachments))
		removed = nil
		for _, att := range activity.Attachments {
			if att.ID == attachmentID {
				found := att
				removed = &found
				continue
			}
			kept = append(kept, att)
		}
		if removed == nil {
			return fmt.Errorf("attachment %s not found", attachmentID)
		}

		activity.Attachments = datatypes.NewJSONSlice(kept)
		if err := s.activities.UpdateCAS(ctx, &activity); err != nil {
			return err
		}
		updated = activity
		return nil
	})
	if err != nil {
		return dto.ActivityResponse{}, err
	}

	if s.storage != nil && removed != nil {
		url := removed.URL
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := s.storage.Destroy(ctx, url); err != nil {
				s.logger.Warn().Err(err).Msg("failed to delete attachment from storage")
			}
		}()
	}

	return dto.NewActivityResponse(updated), nil
}

func (s *activityService) loadActivity(ctx context.Context, id uint) (models.Activity, error) {
	activity, err := s.activities.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Activity{}, ErrActivityNotFound
		}
		return models.Activity{}, err
	}
	return activity, nil
}

func (s *activityService) guardOwner(activity models.Activity, actor Actor) error {
	if activity.StudentID != actor.ID {
		return ErrNotOwner
	}
	return nil
}

func (s *activityService) studentDepartment(ctx context.Context, studentID uint) string {
	if s.students == nil {
		return ""
	}
	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		return ""
	}
	return student.Department
}

// withRetry reruns fn with fresh state when the optimistic-concurrency check
// fails, up to casRetryLimit attempts.
func (s *activityService) withRetry(fn func() error) error {
	var err error
	for attempt := 0; attempt < casRetryLimit; attempt++ {
		err = fn()
		if !errors.Is(err, repository.ErrVersionConflict) {
			return err
		}
		s.logger.Warn().Int("attempt", attempt+1).Msg("version conflict, retrying with fresh state")
	}
	return err
}

func (s *activityService) recordEvent(ctx context.Context, actor Actor, action string, entityID uint, metadata map[string]interface{}) {
	if s.events == nil {
		return
	}
	id := entityID
	_, _ = s.events.Record(ctx, WorkflowEventEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: "activity",
		EntityID:   &id,
		Metadata:   metadata,
	})
}

func (s *activityService) notify(ctx context.Context, approval models.FacultyApproval) {
	if s.notifier == nil {
		return
	}
	entries := approval.History
	if len(entries) == 0 {
		return
	}
	s.notifier.NotifyTransition(ctx, approval, entries[len(entries)-1])
}

func applyActivityUpdate(activity *models.Activity, payload dto.ActivityUpdateRequest) error {
	if payload.Title != nil {
		activity.Title = *payload.Title
	}
	if payload.Description != nil {
		activity.Description = *payload.Description
	}
	if payload.Category != nil {
		activity.Category = *payload.Category
	}
	if payload.StartDate != nil {
		activity.StartDate = *payload.StartDate
	}
	if payload.EndDate != nil {
		activity.EndDate = payload.EndDate
	}
	if payload.DurationHours != nil {
		activity.DurationHours = payload.DurationHours
	}
	if payload.Location != nil {
		activity.Location = *payload.Location
	}
	if payload.Organizer != nil {
		activity.Organizer = *payload.Organizer
	}
	if payload.Skills != nil {
		activity.Skills = datatypes.NewJSONSlice(payload.Skills)
	}
	if payload.Tags != nil {
		activity.Tags = datatypes.NewJSONSlice(payload.Tags)
	}
	if payload.Impact != nil {
		activity.Impact = impactFromRequest(payload.Impact)
	}

	if activity.EndDate != nil && activity.EndDate.Before(activity.StartDate) {
		return ErrEndBeforeStart
	}

	return nil
}

func impactFromRequest(impact *dto.ImpactRatingRequest) models.ImpactRating {
	if impact == nil {
		return models.ImpactRating{Academic: 3, Personal: 3, Social: 3, Career: 3}
	}
	return models.ImpactRating{
		Academic: impact.Academic,
		Personal: impact.Personal,
		Social:   impact.Social,
		Career:   impact.Career,
	}
}

func durationOrDerived(explicit *float64, start time.Time, end *time.Time) *float64 {
	if explicit != nil {
		return explicit
	}
	if end == nil {
		return nil
	}
	hours := end.Sub(start).Hours()
	if hours <= 0 {
		return nil
	}
	rounded := math.Round(hours*10) / 10
	return &rounded
}

func detectAttachmentType(file *multipart.FileHeader) (string, error) {
	reader, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	mime, err := mimetype.DetectReader(reader)
	if err != nil {
		return "", fmt.Errorf("failed to detect file type: %w", err)
	}

	allowed := []string{"application/pdf", "image/png", "image/jpeg", "application/zip", "application/x-zip-compressed"}
	for _, a := range allowed {
		if mime.Is(a) {
			return mime.String(), nil
		}
	}

	return "", fmt.Errorf("unsupported file type: %s", mime.String())
}

func paginationMeta(page, pageSize int, total int64) dto.PaginationMeta {
	meta := dto.PaginationMeta{
		Page:       maxInt(page, 1),
		PageSize:   pageSize,
		TotalItems: total,
	}
	if pageSize > 0 {
		meta.TotalPages = int(math.Ceil(float64(total) / float64(pageSize)))
	} else {
		meta.TotalPages = 1
	}
	return meta
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
