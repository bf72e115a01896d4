package models

import (
	"encoding/json"
	"strings"
)

// AnswerValue holds a single answer as entered by the client. Depending on the
// question type the wire representation is either a JSON string (text, number,
// select, true_false, multiple_choice, file_upload) or a JSON array of strings
// (multiple_answer).
type AnswerValue struct {
	Text  string
	Items []string
	List  bool
}

// TextAnswer builds a scalar answer value.
func TextAnswer(text string) AnswerValue {
	return AnswerValue{Text: text}
}

// ListAnswer builds a multi-select answer value.
func ListAnswer(items []string) AnswerValue {
	return AnswerValue{Items: items, List: true}
}

// Answered reports whether the value counts as an answer for progress and
// submission eligibility: a non-empty trimmed string or a non-empty array.
// Correctness is irrelevant here.
func (v AnswerValue) Answered() bool {
	if v.List {
		return len(v.Items) > 0
	}
	return strings.TrimSpace(v.Text) != ""
}

// Equal compares two answer values structurally.
func (v AnswerValue) Equal(other AnswerValue) bool {
	if v.List != other.List {
		return false
	}
	if !v.List {
		return v.Text == other.Text
	}
	if len(v.Items) != len(other.Items) {
		return false
	}
	for i := range v.Items {
		if v.Items[i] != other.Items[i] {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the value as a bare string or a string array.
func (v AnswerValue) MarshalJSON() ([]byte, error) {
	if v.List {
		items := v.Items
		if items == nil {
			items = []string{}
		}
		return json.Marshal(items)
	}
	return json.Marshal(v.Text)
}

// UnmarshalJSON accepts strings, string arrays, and scalar numbers/booleans
// (coerced to their string form, the way loosely typed clients submit them).
func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*v = AnswerValue{Text: text}
		return nil
	}

	var items []string
	if err := json.Unmarshal(data, &items); err == nil {
		*v = AnswerValue{Items: items, List: true}
		return nil
	}

	var scalar interface{}
	if err := json.Unmarshal(data, &scalar); err != nil {
		return err
	}
	raw := strings.TrimSpace(string(data))
	*v = AnswerValue{Text: strings.Trim(raw, `"`)}
	return nil
}

// AnswerItem is the persisted list form of one answer. Drafts and submissions
// store answers as an ordered list so every answer shape serializes uniformly.
type AnswerItem struct {
	QuestionID string      `json:"questionId"`
	Answer     AnswerValue `json:"answer"`
}

// AnswerMap is the in-memory working form keyed by question identifier.
type AnswerMap map[string]AnswerValue

// AnswersToMap converts the persisted list form into the in-memory map form.
// Malformed entries (missing question id) are skipped rather than aborting
// the whole conversion.
func AnswersToMap(items []AnswerItem) AnswerMap {
	result := make(AnswerMap, len(items))
	for _, item := range items {
		if item.QuestionID == "" {
			continue
		}
		result[item.QuestionID] = item.Answer
	}
	return result
}

// AnswersToList converts the in-memory map form into the persisted list form.
// Output ordering follows the provided question order so round trips are
// stable; answers for unknown questions are appended last.
func AnswersToList(answers AnswerMap, questionOrder []string) []AnswerItem {
	items := make([]AnswerItem, 0, len(answers))
	seen := make(map[string]struct{}, len(answers))
	for _, id := range questionOrder {
		if value, ok := answers[id]; ok {
			items = append(items, AnswerItem{QuestionID: id, Answer: value})
			seen[id] = struct{}{}
		}
	}
	for id, value := range answers {
		if _, ok := seen[id]; !ok {
			items = append(items, AnswerItem{QuestionID: id, Answer: value})
		}
	}
	return items
}

// EqualAnswerMaps performs the structural comparison used by the autosave
// change gate.
func EqualAnswerMaps(a, b AnswerMap) bool {
	if len(a) != len(b) {
		return false
	}
	for id, value := range a {
		other, ok := b[id]
		if !ok || !value.Equal(other) {
			return false
		}
	}
	return true
}

// CloneAnswerMap returns an independent copy of the map.
func CloneAnswerMap(answers AnswerMap) AnswerMap {
	if answers == nil {
		return AnswerMap{}
	}
	clone := make(AnswerMap, len(answers))
	for id, value := range answers {
		if value.List {
			items := make([]string, len(value.Items))
			copy(items, value.Items)
			value.Items = items
		}
		clone[id] = value
	}
	return clone
}
