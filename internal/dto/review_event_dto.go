package dto

import "time"

// ReviewEventMessage is pushed to live subscribers and the message broker
// whenever an approval record transitions.
type ReviewEventMessage struct {
	ApprovalID  uint      `json:"approval_id"`
	ActivityID  uint      `json:"activity_id"`
	StudentID   uint      `json:"student_id"`
	FacultyID   *uint     `json:"faculty_id"`
	Action      string    `json:"action"`
	Status      string    `json:"status"`
	Stage       string    `json:"current_stage"`
	Notes       string    `json:"notes,omitempty"`
	PerformedBy uint      `json:"performed_by"`
	PerformedAt time.Time `json:"performed_at"`
}
