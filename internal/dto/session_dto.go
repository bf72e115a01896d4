package dto

import "github.com/percorso-labs/percorso-api/internal/models"

// Session frame types exchanged over the live editing websocket.
const (
	SessionFrameAnswer   = "answer"
	SessionFrameNotes    = "notes"
	SessionFrameNavigate = "navigate"
	SessionFrameState    = "state"
)

// SessionFrame is one inbound websocket message from the editing client.
type SessionFrame struct {
	Type       string              `json:"type" validate:"required,oneof=answer notes navigate"`
	QuestionID string              `json:"question_id,omitempty"`
	Answer     *models.AnswerValue `json:"answer,omitempty"`
	Notes      string              `json:"notes,omitempty"`
}

// SessionState is pushed to the editing client after connect and on request.
type SessionState struct {
	Type            string              `json:"type"`
	AssignmentID    uint                `json:"assignment_id"`
	Status          string              `json:"status"`
	Answers         []models.AnswerItem `json:"answers"`
	Notes           string              `json:"notes"`
	AutosaveEnabled bool                `json:"autosave_enabled"`
}
