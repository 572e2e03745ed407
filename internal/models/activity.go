package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	// ActivityStatusDraft indicates the activity is still editable by its owner.
	ActivityStatusDraft = "draft"
	// ActivityStatusPending indicates the activity awaits faculty review.
	ActivityStatusPending = "pending"
	// ActivityStatusUnderReview indicates a faculty member has started reviewing.
	ActivityStatusUnderReview = "under_review"
	// ActivityStatusApproved indicates the activity passed review.
	ActivityStatusApproved = "approved"
	// ActivityStatusRejected indicates the activity failed review.
	ActivityStatusRejected = "rejected"
)

// ActivityCategories is the closed set of accepted activity categories.
var ActivityCategories = []string{
	"workshop",
	"seminar",
	"competition",
	"internship",
	"certification",
	"volunteering",
	"research",
	"other",
}

// Attachment describes a file held by the external storage collaborator.
// Only the descriptor is persisted here; the bytes live elsewhere.
type Attachment struct {
	ID         string    `json:"id"`
	FileName   string    `json:"file_name"`
	Size       int64     `json:"size"`
	MimeType   string    `json:"mime_type"`
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// ImpactRating captures the four self-assessed impact axes, each 1-5.
type ImpactRating struct {
	Academic int `gorm:"default:3" json:"academic"`
	Personal int `gorm:"default:3" json:"personal"`
	Social   int `gorm:"default:3" json:"social"`
	Career   int `gorm:"default:3" json:"career"`
}

// Activity is a single student-submitted record of an academic or
// extracurricular undertaking.
type Activity struct {
	ID            uint                            `gorm:"primaryKey" json:"id"`
	StudentID     uint                            `gorm:"not null;index" json:"student_id"`
	Title         string                          `gorm:"size:255;not null" json:"title"`
	Description   string                          `gorm:"type:text;not null" json:"description"`
	Category      string                          `gorm:"size:32;not null;index" json:"category"`
	Status        string                          `gorm:"size:32;not null;index;default:draft" json:"status"`
	StartDate     time.Time                       `gorm:"not null" json:"start_date"`
	EndDate       *time.Time                      `json:"end_date"`
	DurationHours *float64                        `json:"duration_hours"`
	Location      string                          `gorm:"size:255" json:"location"`
	Organizer     string                          `gorm:"size:255" json:"organizer"`
	Skills        datatypes.JSONSlice[string]     `json:"skills"`
	Tags          datatypes.JSONSlice[string]     `json:"tags"`
	Attachments   datatypes.JSONSlice[Attachment] `json:"attachments"`
	Impact        ImpactRating                    `gorm:"embedded;embeddedPrefix:impact_" json:"impact"`

	// Review outcome. Written only by the approval workflow, never by the student.
	ApprovedBy      *uint      `json:"approved_by"`
	ApprovedAt      *time.Time `json:"approved_at"`
	RejectedBy      *uint      `json:"rejected_by"`
	RejectedAt      *time.Time `json:"rejected_at"`
	RejectionReason string     `gorm:"type:text" json:"rejection_reason"`
	ReviewNotes     string     `gorm:"type:text" json:"review_notes"`

	Version   uint      `gorm:"not null;default:0" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsEditable reports whether the owning student may still modify the record.
func (a Activity) IsEditable() bool {
	return a.Status == ActivityStatusDraft || a.Status == ActivityStatusRejected
}

// IsApproved reports whether the activity has passed review.
func (a Activity) IsApproved() bool {
	return a.Status == ActivityStatusApproved
}

// ValidCategory reports whether the given category is part of the closed set.
func ValidCategory(category string) bool {
	for _, c := range ActivityCategories {
		if c == category {
			return true
		}
	}
	return false
}
