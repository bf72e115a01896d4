package dto

import (
	"time"

	"github.com/percorso-labs/percorso-api/internal/models"
)

// RevisionEntryResponse serializes one audit trail record.
type RevisionEntryResponse struct {
	ID                 uint      `json:"id"`
	AssignmentID       uint      `json:"assignment_id"`
	SubmissionID       *uint     `json:"submission_id"`
	Action             string    `json:"action"`
	PreviousStatus     string    `json:"previous_status"`
	NewStatus          string    `json:"new_status"`
	ConsultantFeedback string    `json:"consultant_feedback"`
	ClientNotes        string    `json:"client_notes"`
	Score              *int      `json:"score"`
	CreatedBy          uint      `json:"created_by"`
	CreatedAt          time.Time `json:"created_at"`
}

// NewRevisionEntryResponse converts a RevisionEntry model into a DTO.
func NewRevisionEntryResponse(model models.RevisionEntry) RevisionEntryResponse {
	return RevisionEntryResponse{
		ID:                 model.ID,
		AssignmentID:       model.AssignmentID,
		SubmissionID:       model.SubmissionID,
		Action:             model.Action,
		PreviousStatus:     model.PreviousStatus,
		NewStatus:          model.NewStatus,
		ConsultantFeedback: model.ConsultantFeedback,
		ClientNotes:        model.ClientNotes,
		Score:              model.Score,
		CreatedBy:          model.CreatedBy,
		CreatedAt:          model.CreatedAt,
	}
}

// NewRevisionEntryResponseSlice converts revision models into DTOs.
func NewRevisionEntryResponseSlice(entries []models.RevisionEntry) []RevisionEntryResponse {
	responses := make([]RevisionEntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, NewRevisionEntryResponse(entry))
	}
	return responses
}
