package dto

import "time"

// ProgressSummary aggregates a client's assignment portfolio.
type ProgressSummary struct {
	TotalAssignments int     `json:"total_assignments"`
	Pending          int     `json:"pending"`
	InProgress       int     `json:"in_progress"`
	AwaitingReview   int     `json:"awaiting_review"`
	Completed        int     `json:"completed"`
	Returned         int     `json:"returned"`
	Rejected         int     `json:"rejected"`
	Overdue          int     `json:"overdue"`
	AverageScore     float64 `json:"average_score"`
	CompletionRate   float64 `json:"completion_rate"`
}

// AssignmentProgress is one row of the dashboard listing.
type AssignmentProgress struct {
	AssignmentID uint       `json:"assignment_id"`
	Title        string     `json:"title"`
	Status       string     `json:"status"`
	IsExam       bool       `json:"is_exam"`
	DueDate      *time.Time `json:"due_date"`
	Score        *int       `json:"score"`
	Overdue      bool       `json:"overdue"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ProgressResponse is the client dashboard payload.
type ProgressResponse struct {
	Summary     ProgressSummary      `json:"summary"`
	Open        []AssignmentProgress `json:"open"`
	Recent      []AssignmentProgress `json:"recent"`
	GeneratedAt time.Time            `json:"generated_at"`
}
