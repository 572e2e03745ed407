package dto

import (
	"time"

	"github.com/noah-isme/satria-go-api/internal/models"
)

// ActivityCreateRequest describes the payload for creating a draft activity.
type ActivityCreateRequest struct {
	Title         string     `json:"title" validate:"required,min=3,max=255"`
	Description   string     `json:"description" validate:"required,min=3"`
	Category      string     `json:"category" validate:"required,oneof=workshop seminar competition internship certification volunteering research other"`
	StartDate     time.Time  `json:"start_date" validate:"required"`
	EndDate       *time.Time `json:"end_date"`
	DurationHours *float64   `json:"duration_hours" validate:"omitempty,gt=0"`
	Location      string     `json:"location" validate:"omitempty,max=255"`
	Organizer     string     `json:"organizer" validate:"omitempty,max=255"`
	Skills        []string   `json:"skills" validate:"omitempty,dive,min=1"`
	Tags          []string   `json:"tags" validate:"omitempty,dive,min=1"`
	Impact        *ImpactRatingRequest `json:"impact"`
}

// ImpactRatingRequest carries the four self-assessed impact axes.
type ImpactRatingRequest struct {
	Academic int `json:"academic" validate:"required,gte=1,lte=5"`
	Personal int `json:"personal" validate:"required,gte=1,lte=5"`
	Social   int `json:"social" validate:"required,gte=1,lte=5"`
	Career   int `json:"career" validate:"required,gte=1,lte=5"`
}

// ActivityUpdateRequest is the explicit allow-list of student-mutable fields.
// Anything not named here cannot be changed through an update.
type ActivityUpdateRequest struct {
	Title         *string              `json:"title" validate:"omitempty,min=3,max=255"`
	Description   *string              `json:"description" validate:"omitempty,min=3"`
	Category      *string              `json:"category" validate:"omitempty,oneof=workshop seminar competition internship certification volunteering research other"`
	StartDate     *time.Time           `json:"start_date"`
	EndDate       *time.Time           `json:"end_date"`
	DurationHours *float64             `json:"duration_hours" validate:"omitempty,gt=0"`
	Location      *string              `json:"location" validate:"omitempty,max=255"`
	Organizer     *string              `json:"organizer" validate:"omitempty,max=255"`
	Skills        []string             `json:"skills" validate:"omitempty,dive,min=1"`
	Tags          []string             `json:"tags" validate:"omitempty,dive,min=1"`
	Impact        *ImpactRatingRequest `json:"impact"`
}

// ActivityFilter describes query filters for listing activities.
type ActivityFilter struct {
	StudentID *uint   `query:"student_id"`
	Status    *string `query:"status" validate:"omitempty,oneof=draft pending under_review approved rejected"`
	Category  *string `query:"category"`
	Page      int     `query:"page"`
	PageSize  int     `query:"page_size"`
}

// AttachmentResponse serializes an attachment descriptor.
type AttachmentResponse struct {
	ID         string    `json:"id"`
	FileName   string    `json:"file_name"`
	Size       int64     `json:"size"`
	MimeType   string    `json:"mime_type"`
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// ActivityResponse is returned to API clients when viewing activities.
type ActivityResponse struct {
	ID              uint                 `json:"id"`
	StudentID       uint                 `json:"student_id"`
	Title           string               `json:"title"`
	Description     string               `json:"description"`
	Category        string               `json:"category"`
	Status          string               `json:"status"`
	StartDate       time.Time            `json:"start_date"`
	EndDate         *time.Time           `json:"end_date"`
	DurationHours   *float64             `json:"duration_hours"`
	Location        string               `json:"location"`
	Organizer       string               `json:"organizer"`
	Skills          []string             `json:"skills"`
	Tags            []string             `json:"tags"`
	Attachments     []AttachmentResponse `json:"attachments"`
	Impact          models.ImpactRating  `json:"impact"`
	ApprovedBy      *uint                `json:"approved_by"`
	ApprovedAt      *time.Time           `json:"approved_at"`
	RejectedBy      *uint                `json:"rejected_by"`
	RejectedAt      *time.Time           `json:"rejected_at"`
	RejectionReason string               `json:"rejection_reason,omitempty"`
	ReviewNotes     string               `json:"review_notes,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// ActivityListResponse wraps a page of activities.
type ActivityListResponse struct {
	Items      []ActivityResponse `json:"items"`
	Pagination PaginationMeta     `json:"pagination"`
}

// NewActivityResponse maps an activity model to its API representation.
func NewActivityResponse(activity models.Activity) ActivityResponse {
	attachments := make([]AttachmentResponse, 0, len(activity.Attachments))
	for _, att := range activity.Attachments {
		attachments = append(attachments, AttachmentResponse{
			ID:         att.ID,
			FileName:   att.FileName,
			Size:       att.Size,
			MimeType:   att.MimeType,
			URL:        att.URL,
			UploadedAt: att.UploadedAt,
		})
	}

	return ActivityResponse{
		ID:              activity.ID,
		StudentID:       activity.StudentID,
		Title:           activity.Title,
		Description:     activity.Description,
		Category:        activity.Category,
		Status:          activity.Status,
		StartDate:       activity.StartDate,
		EndDate:         activity.EndDate,
		DurationHours:   activity.DurationHours,
		Location:        activity.Location,
		Organizer:       activity.Organizer,
		Skills:          activity.Skills,
		Tags:            activity.Tags,
		Attachments:     attachments,
		Impact:          activity.Impact,
		ApprovedBy:      activity.ApprovedBy,
		ApprovedAt:      activity.ApprovedAt,
		RejectedBy:      activity.RejectedBy,
		RejectedAt:      activity.RejectedAt,
		RejectionReason: activity.RejectionReason,
		ReviewNotes:     activity.ReviewNotes,
		CreatedAt:       activity.CreatedAt,
		UpdatedAt:       activity.UpdatedAt,
	}
}

// NewActivityResponseSlice maps a slice of activity models.
func NewActivityResponseSlice(activities []models.Activity) []ActivityResponse {
	responses := make([]ActivityResponse, 0, len(activities))
	for _, activity := range activities {
		responses = append(responses, NewActivityResponse(activity))
	}
	return responses
}
