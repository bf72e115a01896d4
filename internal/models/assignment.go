package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Assignment lifecycle statuses. The status field is the single source of
// truth for which actions are legal on an assignment.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusSubmitted  = "submitted"
	StatusCompleted  = "completed"
	StatusRejected   = "rejected"
	StatusReturned   = "returned"
)

// CanEditDraft reports whether drafts may be written for the given status.
// Every call site gating draft writes goes through this predicate.
func CanEditDraft(status string) bool {
	switch status {
	case StatusPending, StatusInProgress, StatusReturned:
		return true
	default:
		return false
	}
}

// IsTerminalStatus reports whether no further transitions are possible.
func IsTerminalStatus(status string) bool {
	return status == StatusCompleted || status == StatusRejected
}

// FeedbackEntry is one append-only consultant feedback record.
type FeedbackEntry struct {
	Feedback  string    `json:"feedback"`
	Timestamp time.Time `json:"timestamp"`
}

// QuestionGrade carries the per-question score a consultant (or the
// auto-grader) attached at review time.
type QuestionGrade struct {
	QuestionID string `json:"questionId"`
	Score      int    `json:"score"`
	MaxScore   int    `json:"maxScore"`
}

// Assignment pairs an exercise with a client and owns the mutable lifecycle
// state. It is mutated exclusively through lifecycle transitions.
type Assignment struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	ExerciseID        uint           `gorm:"not null;index" json:"exercise_id"`
	ClientID          uint           `gorm:"not null;index" json:"client_id"`
	ConsultantID      uint           `gorm:"not null;index" json:"consultant_id"`
	Status            string         `gorm:"size:32;not null;default:pending" json:"status"`
	Priority          string         `gorm:"size:16" json:"priority"`
	DueDate           *time.Time     `json:"due_date"`
	WorkPlatform      string         `gorm:"size:512" json:"work_platform"`
	Score             *int           `json:"score"`
	AutoGradedScore   *int           `json:"auto_graded_score"`
	FeedbackRaw       datatypes.JSON `gorm:"column:consultant_feedback;type:json" json:"-"`
	QuestionGradesRaw datatypes.JSON `gorm:"column:question_grades;type:json" json:"-"`
	StartedAt         *time.Time     `json:"started_at"`
	SubmittedAt       *time.Time     `json:"submitted_at"`
	ReviewedAt        *time.Time     `json:"reviewed_at"`
	CompletedAt       *time.Time     `json:"completed_at"`
	ElapsedSeconds    int            `gorm:"default:0" json:"elapsed_seconds"`
	AssignedAt        time.Time      `gorm:"autoCreateTime" json:"assigned_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	Exercise          Exercise       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"exercise"`
}

// Feedback deserializes the append-only consultant feedback list.
func (a Assignment) Feedback() []FeedbackEntry {
	if len(a.FeedbackRaw) == 0 {
		return nil
	}

	var entries []FeedbackEntry
	if err := json.Unmarshal(a.FeedbackRaw, &entries); err != nil {
		return nil
	}
	return entries
}

// AppendFeedback adds an entry to the feedback list. Existing entries are
// never modified or removed.
func (a *Assignment) AppendFeedback(feedback string, at time.Time) {
	entries := append(a.Feedback(), FeedbackEntry{Feedback: feedback, Timestamp: at})
	data, err := json.Marshal(entries)
	if err != nil {
		return
	}
	a.FeedbackRaw = datatypes.JSON(data)
}

// QuestionGrades deserializes the per-question grades attached at review.
func (a Assignment) QuestionGrades() []QuestionGrade {
	if len(a.QuestionGradesRaw) == 0 {
		return nil
	}

	var grades []QuestionGrade
	if err := json.Unmarshal(a.QuestionGradesRaw, &grades); err != nil {
		return nil
	}
	return grades
}

// SetQuestionGrades serializes the per-question grade list.
func (a *Assignment) SetQuestionGrades(grades []QuestionGrade) {
	data, err := json.Marshal(grades)
	if err != nil {
		a.QuestionGradesRaw = datatypes.JSON([]byte("[]"))
		return
	}
	a.QuestionGradesRaw = datatypes.JSON(data)
}

// IsPastDue reports whether the due date has passed without the assignment
// reaching a terminal status.
func (a Assignment) IsPastDue(now time.Time) bool {
	if a.DueDate == nil || IsTerminalStatus(a.Status) {
		return false
	}
	return now.After(*a.DueDate)
}

// EffectiveWorkPlatform resolves the per-assignment override before the
// exercise default.
func (a Assignment) EffectiveWorkPlatform() string {
	if a.WorkPlatform != "" {
		return a.WorkPlatform
	}
	return a.Exercise.WorkPlatform
}
