package dto

import "time"

// WorkloadRequest selects a faculty member and a time window for aggregation.
type WorkloadRequest struct {
	FacultyID uint       `validate:"required,gt=0"`
	From      *time.Time `query:"from"`
	To        *time.Time `query:"to"`
}

// WorkloadResponse summarizes a faculty member's review workload.
type WorkloadResponse struct {
	FacultyID            uint             `json:"faculty_id"`
	WindowStart          *time.Time       `json:"window_start,omitempty"`
	WindowEnd            *time.Time       `json:"window_end,omitempty"`
	TotalAssigned        int              `json:"total_assigned"`
	CountsByStatus       map[string]int   `json:"counts_by_status"`
	OverdueCount         int              `json:"overdue_count"`
	AvgReviewDurationMin *float64         `json:"avg_review_duration_minutes"`
	AvgOverallScore      *float64         `json:"avg_overall_score"`
	CategoryBreakdown    map[string]int   `json:"category_breakdown"`
	GeneratedAt          time.Time        `json:"generated_at"`
	CacheHit             bool             `json:"cache_hit"`
}
