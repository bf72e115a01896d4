package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Submission stores a snapshot of a client's answers for an assignment. A row
// with a null submitted_at is the live draft; at most one draft exists per
// assignment and it is superseded, never merged, when the client submits.
// Rows with submitted_at set are immutable.
type Submission struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	AssignmentID   uint           `gorm:"not null;index" json:"assignment_id"`
	AnswersRaw     datatypes.JSON `gorm:"column:answers;type:json" json:"-"`
	AttachmentsRaw datatypes.JSON `gorm:"column:attachments;type:json" json:"-"`
	Notes          string         `gorm:"type:text" json:"notes"`
	SubmittedAt    *time.Time     `json:"submitted_at"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// IsDraft reports whether the row is the live draft rather than a finalized
// submission.
func (s Submission) IsDraft() bool {
	return s.SubmittedAt == nil
}

// SetAnswers serializes the ordered answer list into the JSON column.
func (s *Submission) SetAnswers(items []AnswerItem) {
	data, err := json.Marshal(items)
	if err != nil {
		s.AnswersRaw = datatypes.JSON([]byte("[]"))
		return
	}
	s.AnswersRaw = datatypes.JSON(data)
}

// Answers deserializes the stored answer list, skipping entries that lost
// their question id or answer value in transit instead of failing the whole
// read.
func (s Submission) Answers() []AnswerItem {
	if len(s.AnswersRaw) == 0 {
		return nil
	}

	var raw []struct {
		QuestionID string       `json:"questionId"`
		Answer     *AnswerValue `json:"answer"`
	}
	if err := json.Unmarshal(s.AnswersRaw, &raw); err != nil {
		return nil
	}

	items := make([]AnswerItem, 0, len(raw))
	for _, entry := range raw {
		if entry.QuestionID == "" || entry.Answer == nil {
			continue
		}
		items = append(items, AnswerItem{QuestionID: entry.QuestionID, Answer: *entry.Answer})
	}
	return items
}

// AnswerMap returns the in-memory map form of the stored answers.
func (s Submission) AnswerMap() AnswerMap {
	return AnswersToMap(s.Answers())
}

// SetAttachments serializes the attachment URL list.
func (s *Submission) SetAttachments(attachments []string) {
	data, err := json.Marshal(attachments)
	if err != nil {
		s.AttachmentsRaw = datatypes.JSON([]byte("[]"))
		return
	}
	s.AttachmentsRaw = datatypes.JSON(data)
}

// Attachments deserializes the stored attachment list.
func (s Submission) Attachments() []string {
	if len(s.AttachmentsRaw) == 0 {
		return nil
	}

	var attachments []string
	if err := json.Unmarshal(s.AttachmentsRaw, &attachments); err != nil {
		return nil
	}
	return attachments
}
