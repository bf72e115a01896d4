package dto

import (
	"time"

	"github.com/percorso-labs/percorso-api/internal/models"
)

// SubmitRequest finalizes an assignment. Answers carry the full working
// state; the work-platform confirmation is required whenever the exercise or
// assignment declares an external platform.
type SubmitRequest struct {
	Answers               []models.AnswerItem `json:"answers"`
	Notes                 string              `json:"notes"`
	WorkPlatformConfirmed bool                `json:"work_platform_confirmed"`
}

// SubmissionResponse is returned when viewing finalized submissions.
type SubmissionResponse struct {
	ID           uint                `json:"id"`
	AssignmentID uint                `json:"assignment_id"`
	Answers      []models.AnswerItem `json:"answers"`
	Attachments  []string            `json:"attachments"`
	Notes        string              `json:"notes"`
	SubmittedAt  *time.Time          `json:"submitted_at"`
	CreatedAt    time.Time           `json:"created_at"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	answers := model.Answers()
	if answers == nil {
		answers = []models.AnswerItem{}
	}
	attachments := model.Attachments()
	if attachments == nil {
		attachments = []string{}
	}

	return SubmissionResponse{
		ID:           model.ID,
		AssignmentID: model.AssignmentID,
		Answers:      answers,
		Attachments:  attachments,
		Notes:        model.Notes,
		SubmittedAt:  model.SubmittedAt,
		CreatedAt:    model.CreatedAt,
	}
}

// NewSubmissionResponseSlice converts submission models into DTOs.
func NewSubmissionResponseSlice(submissions []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, NewSubmissionResponse(submission))
	}
	return responses
}
