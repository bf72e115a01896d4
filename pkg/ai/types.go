package ai

import "context"

// GenerationInput describes the exercise a consultant wants drafted.
type GenerationInput struct {
	Topic          string
	SourceMaterial string
	Difficulty     string
	Language       string
	QuestionCount  int
	QuestionMix    map[string]int
	ExtraGuidance  string
}

// GeneratedQuestion is one question proposed by the model.
type GeneratedQuestion struct {
	ID             string   `json:"id"`
	Type           string   `json:"type"`
	Text           string   `json:"text"`
	Options        []string `json:"options,omitempty"`
	CorrectAnswers []string `json:"correctAnswers,omitempty"`
	Points         int      `json:"points"`
	Explanation    string   `json:"explanation,omitempty"`
}

// GeneratedExercise is the structured draft returned by the generator. It is
// a starting point for the consultant, never published directly.
type GeneratedExercise struct {
	Title        string                 `json:"title"`
	Description  string                 `json:"description"`
	Instructions string                 `json:"instructions"`
	Questions    []GeneratedQuestion    `json:"questions"`
	Raw          map[string]interface{} `json:"raw,omitempty"`
}

// Generator describes an AI model capable of drafting exercises.
type Generator interface {
	Generate(ctx context.Context, input GenerationInput) (GeneratedExercise, error)
}
