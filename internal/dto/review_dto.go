package dto

import "github.com/percorso-labs/percorso-api/internal/models"

// QuestionGradePayload carries one per-question score assigned at review.
type QuestionGradePayload struct {
	QuestionID string `json:"questionId" validate:"required"`
	Score      int    `json:"score" validate:"gte=0"`
	MaxScore   int    `json:"maxScore" validate:"gt=0"`
}

// ToModel converts the payload into the model representation.
func (g QuestionGradePayload) ToModel() models.QuestionGrade {
	return models.QuestionGrade{QuestionID: g.QuestionID, Score: g.Score, MaxScore: g.MaxScore}
}

// ReviewCompleteRequest closes the review cycle with a final grade. Score is
// optional for auto-correct exams, where the calculator output is
// authoritative.
type ReviewCompleteRequest struct {
	Score          *int                   `json:"score" validate:"omitempty,gte=0,lte=100"`
	Feedback       string                 `json:"feedback"`
	QuestionGrades []QuestionGradePayload `json:"question_grades" validate:"omitempty,dive"`
}

// ReviewReturnRequest sends the work back to the client for corrections.
type ReviewReturnRequest struct {
	Feedback string `json:"feedback" validate:"required,min=1"`
}

// ReviewRejectRequest terminally rejects the submission.
type ReviewRejectRequest struct {
	Feedback string `json:"feedback" validate:"required,min=1"`
}
