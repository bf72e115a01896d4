package dto

import (
	"time"

	"github.com/percorso-labs/percorso-api/internal/models"
)

// AssignmentCreateRequest pairs an exercise with a client.
type AssignmentCreateRequest struct {
	ExerciseID   uint       `json:"exercise_id" validate:"required,gt=0"`
	ClientID     uint       `json:"client_id" validate:"required,gt=0"`
	DueDate      *time.Time `json:"due_date"`
	Priority     string     `json:"priority" validate:"omitempty,oneof=low medium high"`
	WorkPlatform string     `json:"work_platform" validate:"omitempty,url"`
}

// AssignmentListRequest carries assignment list filters.
type AssignmentListRequest struct {
	Status   string `query:"status" validate:"omitempty,oneof=pending in_progress submitted completed rejected returned"`
	Page     int    `query:"page"`
	PageSize int    `query:"page_size"`
}

// FeedbackEntryResponse serializes one consultant feedback record.
type FeedbackEntryResponse struct {
	Feedback  string    `json:"feedback"`
	Timestamp time.Time `json:"timestamp"`
}

// AssignmentResponse is the lifecycle view exposed to clients and reviewers.
type AssignmentResponse struct {
	ID                 uint                    `json:"id"`
	ExerciseID         uint                    `json:"exercise_id"`
	ClientID           uint                    `json:"client_id"`
	ConsultantID       uint                    `json:"consultant_id"`
	Status             string                  `json:"status"`
	Priority           string                  `json:"priority"`
	DueDate            *time.Time              `json:"due_date"`
	WorkPlatform       string                  `json:"work_platform"`
	Score              *int                    `json:"score"`
	AutoGradedScore    *int                    `json:"auto_graded_score"`
	ConsultantFeedback []FeedbackEntryResponse `json:"consultant_feedback"`
	QuestionGrades     []models.QuestionGrade  `json:"question_grades"`
	ProgressPercentage int                     `json:"progress_percentage"`
	CanEditDraft       bool                    `json:"can_edit_draft"`
	StartedAt          *time.Time              `json:"started_at"`
	SubmittedAt        *time.Time              `json:"submitted_at"`
	ReviewedAt         *time.Time              `json:"reviewed_at"`
	CompletedAt        *time.Time              `json:"completed_at"`
	ElapsedSeconds     int                     `json:"elapsed_seconds"`
	AssignedAt         time.Time               `json:"assigned_at"`
	Exercise           *ExerciseResponse       `json:"exercise,omitempty"`
}

// AssignmentListResponse wraps a paginated assignment listing.
type AssignmentListResponse struct {
	Items      []AssignmentResponse `json:"items"`
	Pagination PaginationMeta       `json:"pagination"`
}

// NewAssignmentResponse converts an Assignment model into a DTO. Progress is
// derived from the supplied answers; pass nil when no draft context exists.
func NewAssignmentResponse(model models.Assignment, answers models.AnswerMap) AssignmentResponse {
	feedback := make([]FeedbackEntryResponse, 0)
	for _, entry := range model.Feedback() {
		feedback = append(feedback, FeedbackEntryResponse{Feedback: entry.Feedback, Timestamp: entry.Timestamp})
	}

	grades := model.QuestionGrades()
	if grades == nil {
		grades = []models.QuestionGrade{}
	}

	response := AssignmentResponse{
		ID:                 model.ID,
		ExerciseID:         model.ExerciseID,
		ClientID:           model.ClientID,
		ConsultantID:       model.ConsultantID,
		Status:             model.Status,
		Priority:           model.Priority,
		DueDate:            model.DueDate,
		WorkPlatform:       model.EffectiveWorkPlatform(),
		Score:              model.Score,
		AutoGradedScore:    model.AutoGradedScore,
		ConsultantFeedback: feedback,
		QuestionGrades:     grades,
		ProgressPercentage: progressPercentage(model.Exercise, answers),
		CanEditDraft:       models.CanEditDraft(model.Status),
		StartedAt:          model.StartedAt,
		SubmittedAt:        model.SubmittedAt,
		ReviewedAt:         model.ReviewedAt,
		CompletedAt:        model.CompletedAt,
		ElapsedSeconds:     model.ElapsedSeconds,
		AssignedAt:         model.AssignedAt,
	}

	if model.Exercise.ID != 0 {
		exercise := NewExerciseResponse(model.Exercise)
		response.Exercise = &exercise
	}

	return response
}

func progressPercentage(exercise models.Exercise, answers models.AnswerMap) int {
	questions := exercise.Questions()
	if len(questions) == 0 {
		return 0
	}

	answered := 0
	for _, question := range questions {
		if value, ok := answers[question.ID]; ok && value.Answered() {
			answered++
		}
	}

	return answered * 100 / len(questions)
}
