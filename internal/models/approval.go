package models

import (
	"math"
	"time"

	"gorm.io/datatypes"
)

const (
	// ApprovalStatusPending indicates the record awaits a reviewer.
	ApprovalStatusPending = "pending"
	// ApprovalStatusUnderReview indicates review has started.
	ApprovalStatusUnderReview = "under_review"
	// ApprovalStatusApproved indicates a terminal positive decision.
	ApprovalStatusApproved = "approved"
	// ApprovalStatusRejected indicates a terminal negative decision.
	ApprovalStatusRejected = "rejected"
	// ApprovalStatusRequiresChanges indicates the record was returned to the student.
	ApprovalStatusRequiresChanges = "requires_changes"
)

const (
	// StageSubmitted is the entry stage of the review workflow.
	StageSubmitted = "submitted"
	// StageInitialReview is the stage while a reviewer works the record.
	StageInitialReview = "initial_review"
	// StageDetailedReview is the stage while changes are pending on the student side.
	StageDetailedReview = "detailed_review"
	// StageVerification precedes the final decision for complex records.
	StageVerification = "verification"
	// StageFinalReview precedes completion for complex records.
	StageFinalReview = "final_review"
	// StageCompleted is the terminal stage.
	StageCompleted = "completed"
)

// History actions recorded against an approval record.
const (
	HistoryActionSubmitted          = "submitted"
	HistoryActionResubmitted        = "resubmitted"
	HistoryActionAssigned           = "assigned"
	HistoryActionReviewStarted      = "review_started"
	HistoryActionApproved           = "approved"
	HistoryActionRejected           = "rejected"
	HistoryActionReturnedForChanges = "returned_for_changes"
	HistoryActionEscalated          = "escalated"
)

// MaxEscalationLevel caps how far a stuck review can be escalated.
const MaxEscalationLevel = 3

// historyCap bounds the per-record history ring buffer.
const historyCap = 50

// stageByStatus is the single canonical status-to-stage mapping. Every
// transition consults it so status and stage can never diverge.
var stageByStatus = map[string]string{
	ApprovalStatusPending:         StageSubmitted,
	ApprovalStatusUnderReview:     StageInitialReview,
	ApprovalStatusRequiresChanges: StageDetailedReview,
	ApprovalStatusApproved:        StageCompleted,
	ApprovalStatusRejected:        StageCompleted,
}

// StageForStatus returns the workflow stage implied by an approval status.
func StageForStatus(status string) string {
	if stage, ok := stageByStatus[status]; ok {
		return stage
	}
	return StageSubmitted
}

// ReviewHistoryEntry is one immutable entry in an approval's audit trail.
type ReviewHistoryEntry struct {
	Action         string    `json:"action"`
	PerformedBy    uint      `json:"performed_by"`
	PerformedAt    time.Time `json:"performed_at"`
	Notes          string    `json:"notes,omitempty"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	NewStatus      string    `json:"new_status,omitempty"`
}

// ReviewScoring holds the four weighted sub-scores, each 1-5. OverallScore
// stays nil until all four sub-scores are present.
type ReviewScoring struct {
	Authenticity  *int `json:"authenticity"`
	Relevance     *int `json:"relevance"`
	Impact        *int `json:"impact"`
	Documentation *int `json:"documentation"`
	OverallScore  *int `json:"overall_score"`
}

// Complete reports whether all four sub-scores are present.
func (s ReviewScoring) Complete() bool {
	return s.Authenticity != nil && s.Relevance != nil && s.Impact != nil && s.Documentation != nil
}

// ComputeOverall derives the rounded mean of the four sub-scores, or nil
// when any of them is absent. A partial score set never yields an overall.
func (s ReviewScoring) ComputeOverall() *int {
	if !s.Complete() {
		return nil
	}
	mean := float64(*s.Authenticity+*s.Relevance+*s.Impact+*s.Documentation) / 4
	overall := int(math.Round(mean))
	return &overall
}

// NotificationState tracks which parties have been informed about the latest
// transition. Delivery itself is owned by the external notifier.
type NotificationState struct {
	StudentNotified   bool       `json:"student_notified"`
	StudentNotifiedAt *time.Time `json:"student_notified_at"`
	FacultyNotified   bool       `json:"faculty_notified"`
	FacultyNotifiedAt *time.Time `json:"faculty_notified_at"`
	AdminNotified     bool       `json:"admin_notified"`
	AdminNotifiedAt   *time.Time `json:"admin_notified_at"`
}

// FacultyApproval is the one-to-one review record tracking a faculty
// member's evaluation of an Activity.
type FacultyApproval struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	ActivityID uint   `gorm:"not null;uniqueIndex" json:"activity_id"`
	StudentID  uint   `gorm:"not null;index" json:"student_id"`
	FacultyID  *uint  `gorm:"index" json:"faculty_id"`
	Department string `gorm:"size:128" json:"department"`
	Category   string `gorm:"size:32;not null;index" json:"category"`

	Status string `gorm:"size:32;not null;index;default:pending" json:"status"`
	Stage  string `gorm:"size:32;not null;default:submitted" json:"current_stage"`

	DueDate          *time.Time `json:"due_date"`
	AssignedTo       *uint      `json:"assigned_to"`
	CompletedAt      *time.Time `json:"completed_at"`
	EscalationLevel  int        `gorm:"not null;default:0" json:"escalation_level"`
	EscalationReason string     `gorm:"type:text" json:"escalation_reason"`

	Scoring ReviewScoring `gorm:"embedded;embeddedPrefix:score_" json:"scoring"`

	SubmittedAt           time.Time  `gorm:"not null" json:"submitted_at"`
	ReviewedAt            *time.Time `json:"reviewed_at"`
	ReviewDurationMinutes *int       `json:"review_duration_minutes"`
	Priority              string     `gorm:"size:16;default:normal" json:"priority"`
	Complexity            string     `gorm:"size:16;default:standard" json:"complexity"`

	History       datatypes.JSONSlice[ReviewHistoryEntry] `json:"history"`
	Notifications NotificationState                       `gorm:"embedded;embeddedPrefix:notify_" json:"notifications"`

	Version   uint      `gorm:"not null;default:0" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsTerminal reports whether the approval reached a final decision.
func (a FacultyApproval) IsTerminal() bool {
	return a.Status == ApprovalStatusApproved || a.Status == ApprovalStatusRejected
}

// IsOverdue reports whether the record is pending past its due date.
func (a FacultyApproval) IsOverdue(now time.Time) bool {
	return a.Status == ApprovalStatusPending && a.DueDate != nil && a.DueDate.Before(now)
}

// SetStatus moves status and stage together through the canonical mapping.
func (a *FacultyApproval) SetStatus(status string) {
	a.Status = status
	a.Stage = StageForStatus(status)
}

// AppendHistory adds an entry to the audit trail, dropping the oldest
// entries beyond the retention cap. Existing entries are never rewritten.
func (a *FacultyApproval) AppendHistory(entry ReviewHistoryEntry) {
	history := append([]ReviewHistoryEntry(a.History), entry)
	if len(history) > historyCap {
		history = history[len(history)-historyCap:]
	}
	a.History = datatypes.NewJSONSlice(history)
}

// Escalate raises the escalation level up to the cap and records the reason.
// Escalation is an orthogonal severity signal and never touches status or stage.
func (a *FacultyApproval) Escalate(reason string) {
	if a.EscalationLevel < MaxEscalationLevel {
		a.EscalationLevel++
	}
	a.EscalationReason = reason
}
