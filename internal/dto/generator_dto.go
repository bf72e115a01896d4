package dto

// GenerateExerciseRequest asks the AI generator for an exercise draft.
type GenerateExerciseRequest struct {
	Topic          string         `json:"topic" validate:"required,min=3"`
	SourceMaterial string         `json:"source_material"`
	Difficulty     string         `json:"difficulty" validate:"omitempty,oneof=base intermediate advanced"`
	Language       string         `json:"language"`
	QuestionCount  int            `json:"question_count" validate:"omitempty,gte=1,lte=50"`
	QuestionMix    map[string]int `json:"question_mix"`
	Notes          string         `json:"notes"`
}

// GeneratedExerciseResponse is the drafted exercise returned to the
// consultant for review before publishing.
type GeneratedExerciseResponse struct {
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	Instructions string            `json:"instructions"`
	Questions    []QuestionPayload `json:"questions"`
}
