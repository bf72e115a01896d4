package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Question types supported by the exercise editor.
const (
	QuestionTypeText           = "text"
	QuestionTypeNumber         = "number"
	QuestionTypeSelect         = "select"
	QuestionTypeTrueFalse      = "true_false"
	QuestionTypeMultipleChoice = "multiple_choice"
	QuestionTypeMultipleAnswer = "multiple_answer"
	QuestionTypeFileUpload     = "file_upload"
)

// Question is one entry of an exercise's ordered question list.
type Question struct {
	ID             string   `json:"id"`
	Type           string   `json:"type"`
	Text           string   `json:"text"`
	Options        []string `json:"options,omitempty"`
	CorrectAnswers []string `json:"correctAnswers,omitempty"`
	Points         int      `json:"points"`
}

// MaxPoints returns the points awarded for a fully correct answer,
// defaulting to 1 when the author left the field unset.
func (q Question) MaxPoints() int {
	if q.Points <= 0 {
		return 1
	}
	return q.Points
}

// AutoGradable reports whether the question can be scored without a human.
// Select questions only qualify when a correct-answer set is defined.
func (q Question) AutoGradable() bool {
	switch q.Type {
	case QuestionTypeTrueFalse, QuestionTypeMultipleChoice, QuestionTypeMultipleAnswer:
		return true
	case QuestionTypeSelect:
		return len(q.CorrectAnswers) > 0
	default:
		return false
	}
}

// Exercise is the immutable template a consultant assigns to clients.
type Exercise struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	Title             string         `gorm:"size:255;not null" json:"title"`
	Description       string         `gorm:"type:text" json:"description"`
	Instructions      string         `gorm:"type:text" json:"instructions"`
	QuestionsRaw      datatypes.JSON `gorm:"column:questions;type:json" json:"-"`
	AttachmentsRaw    datatypes.JSON `gorm:"column:attachments;type:json" json:"-"`
	WorkPlatform      string         `gorm:"size:512" json:"work_platform"`
	LibraryDocumentID *uint          `json:"library_document_id"`
	IsExam            bool           `gorm:"default:false" json:"is_exam"`
	AutoCorrect       bool           `gorm:"default:false" json:"auto_correct"`
	TotalPoints       int            `gorm:"default:100" json:"total_points"`
	PassingScore      *int           `json:"passing_score"`
	ExamTimeLimit     *int           `json:"exam_time_limit"`
	CreatedBy         uint           `gorm:"not null" json:"created_by"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// SetQuestions serializes the question list into the JSON storage column.
func (e *Exercise) SetQuestions(questions []Question) {
	data, err := json.Marshal(questions)
	if err != nil {
		e.QuestionsRaw = datatypes.JSON([]byte("[]"))
		return
	}
	e.QuestionsRaw = datatypes.JSON(data)
}

// Questions deserializes the stored question list.
func (e Exercise) Questions() []Question {
	if len(e.QuestionsRaw) == 0 {
		return nil
	}

	var questions []Question
	if err := json.Unmarshal(e.QuestionsRaw, &questions); err != nil {
		return nil
	}
	return questions
}

// QuestionOrder returns the ordered question identifiers.
func (e Exercise) QuestionOrder() []string {
	questions := e.Questions()
	order := make([]string, 0, len(questions))
	for _, q := range questions {
		order = append(order, q.ID)
	}
	return order
}

// SetAttachments serializes exercise attachment URLs.
func (e *Exercise) SetAttachments(attachments []string) {
	data, err := json.Marshal(attachments)
	if err != nil {
		e.AttachmentsRaw = datatypes.JSON([]byte("[]"))
		return
	}
	e.AttachmentsRaw = datatypes.JSON(data)
}

// Attachments deserializes the stored attachment list.
func (e Exercise) Attachments() []string {
	if len(e.AttachmentsRaw) == 0 {
		return nil
	}

	var attachments []string
	if err := json.Unmarshal(e.AttachmentsRaw, &attachments); err != nil {
		return nil
	}
	return attachments
}

// ScaleTarget returns the score scale the total grade is expressed in.
func (e Exercise) ScaleTarget() int {
	if e.TotalPoints <= 0 {
		return 100
	}
	return e.TotalPoints
}
