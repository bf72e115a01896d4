package models

import "time"

// Revision actions, one per lifecycle transition kind.
const (
	RevisionActionStarted   = "started"
	RevisionActionReset     = "reset"
	RevisionActionSubmitted = "submitted"
	RevisionActionCompleted = "completed"
	RevisionActionReturned  = "returned"
	RevisionActionRejected  = "rejected"
)

// RevisionEntry is one record of the append-only audit trail. Entries are
// never edited or deleted; consumers sort them for display only.
type RevisionEntry struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	AssignmentID       uint      `gorm:"not null;index" json:"assignment_id"`
	SubmissionID       *uint     `json:"submission_id"`
	Action             string    `gorm:"size:32;not null" json:"action"`
	PreviousStatus     string    `gorm:"size:32;not null" json:"previous_status"`
	NewStatus          string    `gorm:"size:32;not null" json:"new_status"`
	ConsultantFeedback string    `gorm:"type:text" json:"consultant_feedback"`
	ClientNotes        string    `gorm:"type:text" json:"client_notes"`
	Score              *int      `json:"score"`
	CreatedBy          uint      `gorm:"not null" json:"created_by"`
	CreatedAt          time.Time `json:"created_at"`
}
