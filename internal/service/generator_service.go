package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/percorso-labs/percorso-api/internal/dto"
	"github.com/percorso-labs/percorso-api/internal/models"
	"github.com/percorso-labs/percorso-api/pkg/ai"
)

// GeneratorService drafts exercises with an AI model for consultant review.
type GeneratorService interface {
	Generate(ctx context.Context, actor Actor, payload dto.GenerateExerciseRequest) (dto.GeneratedExerciseResponse, error)
}

type generatorService struct {
	generator ai.Generator
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewGeneratorService constructs the generator service.
func NewGeneratorService(generator ai.Generator, validate *validator.Validate, logger zerolog.Logger) GeneratorService {
	return &generatorService{
		generator: generator,
		validator: validate,
		logger:    logger.With().Str("component", "generator_service").Logger(),
	}
}

func (s *generatorService) Generate(ctx context.Context, actor Actor, payload dto.GenerateExerciseRequest) (dto.GeneratedExerciseResponse, error) {
	if actor.Role != models.RoleConsultant {
		return dto.GeneratedExerciseResponse{}, ErrForbidden
	}
	if s.generator == nil {
		return dto.GeneratedExerciseResponse{}, validationError("exercise generation is not configured")
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.GeneratedExerciseResponse{}, err
	}

	input := ai.GenerationInput{
		Topic:          strings.TrimSpace(payload.Topic),
		SourceMaterial: payload.SourceMaterial,
		Difficulty:     payload.Difficulty,
		Language:       payload.Language,
		QuestionCount:  payload.QuestionCount,
		QuestionMix:    payload.QuestionMix,
		ExtraGuidance:  payload.Notes,
	}

	generated, err := s.generator.Generate(ctx, input)
	if err != nil {
		s.logger.Error().Err(err).Str("topic", input.Topic).Msg("exercise generation failed")
		return dto.GeneratedExerciseResponse{}, err
	}

	questions := make([]dto.QuestionPayload, 0, len(generated.Questions))
	for _, question := range generated.Questions {
		converted, ok := convertGeneratedQuestion(question)
		if !ok {
			s.logger.Warn().Str("type", question.Type).Msg("dropping malformed generated question")
			continue
		}
		questions = append(questions, converted)
	}

	s.logger.Info().Str("topic", input.Topic).Int("questions", len(questions)).Msg("exercise draft generated")

	return dto.GeneratedExerciseResponse{
		Title:        generated.Title,
		Description:  generated.Description,
		Instructions: generated.Instructions,
		Questions:    questions,
	}, nil
}

// convertGeneratedQuestion normalizes a model-produced question into the
// editor payload, discarding entries the editor cannot represent.
func convertGeneratedQuestion(question ai.GeneratedQuestion) (dto.QuestionPayload, bool) {
	questionType := strings.TrimSpace(strings.ToLower(question.Type))
	switch questionType {
	case models.QuestionTypeText, models.QuestionTypeNumber, models.QuestionTypeSelect,
		models.QuestionTypeTrueFalse, models.QuestionTypeMultipleChoice, models.QuestionTypeMultipleAnswer:
	case "open_ended":
		questionType = models.QuestionTypeText
	default:
		return dto.QuestionPayload{}, false
	}

	if strings.TrimSpace(question.Text) == "" {
		return dto.QuestionPayload{}, false
	}

	id := strings.TrimSpace(question.ID)
	if id == "" {
		id = uuid.NewString()
	}

	return dto.QuestionPayload{
		ID:             id,
		Type:           questionType,
		Text:           question.Text,
		Options:        question.Options,
		CorrectAnswers: question.CorrectAnswers,
		Points:         question.Points,
	}, true
}
