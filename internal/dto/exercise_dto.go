package dto

import (
	"time"

	"github.com/percorso-labs/percorso-api/internal/models"
)

// QuestionPayload mirrors one question definition on the wire.
type QuestionPayload struct {
	ID             string   `json:"id" validate:"required"`
	Type           string   `json:"type" validate:"required,oneof=text number select true_false multiple_choice multiple_answer file_upload"`
	Text           string   `json:"text" validate:"required"`
	Options        []string `json:"options,omitempty"`
	CorrectAnswers []string `json:"correctAnswers,omitempty"`
	Points         int      `json:"points" validate:"gte=0"`
}

// ToModel converts the payload into the model representation.
func (q QuestionPayload) ToModel() models.Question {
	return models.Question{
		ID:             q.ID,
		Type:           q.Type,
		Text:           q.Text,
		Options:        q.Options,
		CorrectAnswers: q.CorrectAnswers,
		Points:         q.Points,
	}
}

// ExerciseCreateRequest describes the payload for authoring an exercise.
type ExerciseCreateRequest struct {
	Title         string            `json:"title" validate:"required,min=3,max=255"`
	Description   string            `json:"description" validate:"required"`
	Instructions  string            `json:"instructions"`
	Questions     []QuestionPayload `json:"questions" validate:"dive"`
	WorkPlatform  string            `json:"work_platform" validate:"omitempty,url"`
	IsExam        bool              `json:"is_exam"`
	AutoCorrect   bool              `json:"auto_correct"`
	TotalPoints   int               `json:"total_points" validate:"gte=0"`
	PassingScore  *int              `json:"passing_score" validate:"omitempty,gte=0"`
	ExamTimeLimit *int              `json:"exam_time_limit" validate:"omitempty,gt=0"`
}

// ExerciseUpdateRequest captures partial updates to an exercise template.
type ExerciseUpdateRequest struct {
	Title         *string           `json:"title" validate:"omitempty,min=3,max=255"`
	Description   *string           `json:"description" validate:"omitempty,min=1"`
	Instructions  *string           `json:"instructions"`
	Questions     []QuestionPayload `json:"questions" validate:"omitempty,dive"`
	WorkPlatform  *string           `json:"work_platform" validate:"omitempty,url"`
	AutoCorrect   *bool             `json:"auto_correct"`
	TotalPoints   *int              `json:"total_points" validate:"omitempty,gte=0"`
	PassingScore  *int              `json:"passing_score" validate:"omitempty,gte=0"`
	ExamTimeLimit *int              `json:"exam_time_limit" validate:"omitempty,gt=0"`
}

// ExerciseListRequest carries list filters.
type ExerciseListRequest struct {
	Page     int    `query:"page"`
	PageSize int    `query:"page_size"`
	Search   string `query:"search"`
}

// ExerciseResponse is returned to API clients when viewing exercises.
type ExerciseResponse struct {
	ID            uint              `json:"id"`
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	Instructions  string            `json:"instructions"`
	Questions     []models.Question `json:"questions"`
	Attachments   []string          `json:"attachments"`
	WorkPlatform  string            `json:"work_platform"`
	IsExam        bool              `json:"is_exam"`
	AutoCorrect   bool              `json:"auto_correct"`
	TotalPoints   int               `json:"total_points"`
	PassingScore  *int              `json:"passing_score"`
	ExamTimeLimit *int              `json:"exam_time_limit"`
	CreatedBy     uint              `json:"created_by"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// ExerciseListResponse wraps a paginated exercise listing.
type ExerciseListResponse struct {
	Items      []ExerciseResponse `json:"items"`
	Pagination PaginationMeta     `json:"pagination"`
}

// NewExerciseResponse converts an Exercise model into a DTO.
func NewExerciseResponse(model models.Exercise) ExerciseResponse {
	questions := model.Questions()
	if questions == nil {
		questions = []models.Question{}
	}
	attachments := model.Attachments()
	if attachments == nil {
		attachments = []string{}
	}

	return ExerciseResponse{
		ID:            model.ID,
		Title:         model.Title,
		Description:   model.Description,
		Instructions:  model.Instructions,
		Questions:     questions,
		Attachments:   attachments,
		WorkPlatform:  model.WorkPlatform,
		IsExam:        model.IsExam,
		AutoCorrect:   model.AutoCorrect,
		TotalPoints:   model.ScaleTarget(),
		PassingScore:  model.PassingScore,
		ExamTimeLimit: model.ExamTimeLimit,
		CreatedBy:     model.CreatedBy,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
}

// NewExerciseResponseSlice converts exercise models into DTOs.
func NewExerciseResponseSlice(exercises []models.Exercise) []ExerciseResponse {
	responses := make([]ExerciseResponse, 0, len(exercises))
	for _, exercise := range exercises {
		responses = append(responses, NewExerciseResponse(exercise))
	}
	return responses
}
