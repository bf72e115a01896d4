package dto

import (
	"time"

	"github.com/percorso-labs/percorso-api/internal/models"
)

// DraftSaveRequest carries the full working state on every write: answers in
// the persisted list form plus the free-text notes. Drafts are always whole
// snapshots, never diffs.
type DraftSaveRequest struct {
	Answers []models.AnswerItem `json:"answers"`
	Notes   string              `json:"notes"`
}

// DraftResponse serializes the live draft of an assignment.
type DraftResponse struct {
	AssignmentID uint                `json:"assignment_id"`
	Answers      []models.AnswerItem `json:"answers"`
	Notes        string              `json:"notes"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// NewDraftResponse converts a draft submission row into a DTO.
func NewDraftResponse(model models.Submission) DraftResponse {
	answers := model.Answers()
	if answers == nil {
		answers = []models.AnswerItem{}
	}

	return DraftResponse{
		AssignmentID: model.AssignmentID,
		Answers:      answers,
		Notes:        model.Notes,
		UpdatedAt:    model.UpdatedAt,
	}
}
