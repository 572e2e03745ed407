package dto

import (
	"time"

	"github.com/noah-isme/satria-go-api/internal/models"
)

// AssignRequest binds an approval record to a reviewing faculty member.
type AssignRequest struct {
	FacultyID uint       `json:"faculty_id" validate:"required,gt=0"`
	DueDate   *time.Time `json:"due_date"`
	Priority  string     `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
}

// StartReviewRequest begins the review of a pending approval.
type StartReviewRequest struct {
	Notes string `json:"notes" validate:"omitempty,max=2000"`
}

// ScoringRequest carries the four review sub-scores, each 1-5.
type ScoringRequest struct {
	Authenticity  int `json:"authenticity" validate:"required,gte=1,lte=5"`
	Relevance     int `json:"relevance" validate:"required,gte=1,lte=5"`
	Impact        int `json:"impact" validate:"required,gte=1,lte=5"`
	Documentation int `json:"documentation" validate:"required,gte=1,lte=5"`
}

// ApproveRequest records a positive terminal decision.
type ApproveRequest struct {
	Notes        string          `json:"notes" validate:"omitempty,max=2000"`
	Scoring      *ScoringRequest `json:"scoring"`
	Verification string          `json:"verification" validate:"omitempty,max=2000"`
}

// RejectRequest records a negative terminal decision. Reason is mandatory.
type RejectRequest struct {
	Reason string `json:"reason" validate:"required"`
	Notes  string `json:"notes" validate:"omitempty,max=2000"`
}

// RequestChangesRequest returns the record to the student for rework.
type RequestChangesRequest struct {
	Changes string `json:"changes" validate:"required"`
	Notes   string `json:"notes" validate:"omitempty,max=2000"`
}

// EscalateRequest raises the severity of a stuck or contentious review.
type EscalateRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// ApprovalFilter describes query filters for listing approval records.
type ApprovalFilter struct {
	FacultyID *uint   `query:"faculty_id"`
	StudentID *uint   `query:"student_id"`
	Status    *string `query:"status" validate:"omitempty,oneof=pending under_review approved rejected requires_changes"`
	Category  *string `query:"category"`
	Page      int     `query:"page"`
	PageSize  int     `query:"page_size"`
}

// ReviewHistoryResponse serializes one audit-trail entry.
type ReviewHistoryResponse struct {
	Action         string    `json:"action"`
	PerformedBy    uint      `json:"performed_by"`
	PerformedAt    time.Time `json:"performed_at"`
	Notes          string    `json:"notes,omitempty"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	NewStatus      string    `json:"new_status,omitempty"`
}

// ApprovalResponse is returned to API clients when viewing approval records.
type ApprovalResponse struct {
	ID                    uint                     `json:"id"`
	ActivityID            uint                     `json:"activity_id"`
	StudentID             uint                     `json:"student_id"`
	FacultyID             *uint                    `json:"faculty_id"`
	Department            string                   `json:"department"`
	Category              string                   `json:"category"`
	Status                string                   `json:"status"`
	CurrentStage          string                   `json:"current_stage"`
	DueDate               *time.Time               `json:"due_date"`
	AssignedTo            *uint                    `json:"assigned_to"`
	CompletedAt           *time.Time               `json:"completed_at"`
	EscalationLevel       int                      `json:"escalation_level"`
	EscalationReason      string                   `json:"escalation_reason,omitempty"`
	Scoring               models.ReviewScoring     `json:"scoring"`
	SubmittedAt           time.Time                `json:"submitted_at"`
	ReviewedAt            *time.Time               `json:"reviewed_at"`
	ReviewDurationMinutes *int                     `json:"review_duration_minutes"`
	Priority              string                   `json:"priority"`
	Complexity            string                   `json:"complexity"`
	Overdue               bool                     `json:"overdue"`
	History               []ReviewHistoryResponse  `json:"history"`
	Notifications         models.NotificationState `json:"notifications"`
	CreatedAt             time.Time                `json:"created_at"`
	UpdatedAt             time.Time                `json:"updated_at"`
}

// ApprovalListResponse wraps a page of approval records.
type ApprovalListResponse struct {
	Items      []ApprovalResponse `json:"items"`
	Pagination PaginationMeta     `json:"pagination"`
}

// NewApprovalResponse maps an approval model to its API representation.
func NewApprovalResponse(approval models.FacultyApproval, now time.Time) ApprovalResponse {
	history := make([]ReviewHistoryResponse, 0, len(approval.History))
	for _, entry := range approval.History {
		history = append(history, ReviewHistoryResponse{
			Action:         entry.Action,
			PerformedBy:    entry.PerformedBy,
			PerformedAt:    entry.PerformedAt,
			Notes:          entry.Notes,
			PreviousStatus: entry.PreviousStatus,
			NewStatus:      entry.NewStatus,
		})
	}

	return ApprovalResponse{
		ID:                    approval.ID,
		ActivityID:            approval.ActivityID,
		StudentID:             approval.StudentID,
		FacultyID:             approval.FacultyID,
		Department:            approval.Department,
		Category:              approval.Category,
		Status:                approval.Status,
		CurrentStage:          approval.Stage,
		DueDate:               approval.DueDate,
		AssignedTo:            approval.AssignedTo,
		CompletedAt:           approval.CompletedAt,
		EscalationLevel:       approval.EscalationLevel,
		EscalationReason:      approval.EscalationReason,
		Scoring:               approval.Scoring,
		SubmittedAt:           approval.SubmittedAt,
		ReviewedAt:            approval.ReviewedAt,
		ReviewDurationMinutes: approval.ReviewDurationMinutes,
		Priority:              approval.Priority,
		Complexity:            approval.Complexity,
		Overdue:               approval.IsOverdue(now),
		History:               history,
		Notifications:         approval.Notifications,
		CreatedAt:             approval.CreatedAt,
		UpdatedAt:             approval.UpdatedAt,
	}
}

// NewApprovalResponseSlice maps a slice of approval models.
func NewApprovalResponseSlice(approvals []models.FacultyApproval, now time.Time) []ApprovalResponse {
	responses := make([]ApprovalResponse, 0, len(approvals))
	for _, approval := range approvals {
		responses = append(responses, NewApprovalResponse(approval, now))
	}
	return responses
}
