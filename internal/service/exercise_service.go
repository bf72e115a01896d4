package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gorm.io/gorm"

	"github.com/percorso-labs/percorso-api/internal/dto"
	"github.com/percorso-labs/percorso-api/internal/models"
	"github.com/percorso-labs/percorso-api/internal/repository"
)

// questionSchema constrains the structural shape of question definitions
// beyond what struct tags can express: per-type option requirements and
// unique question ids.
const questionSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "type", "text"],
    "properties": {
      "id": {"type": "string", "minLength": 1},
      "type": {"enum": ["text", "number", "select", "true_false", "multiple_choice", "multiple_answer", "file_upload"]},
      "text": {"type": "string", "minLength": 1},
      "options": {"type": "array", "items": {"type": "string"}},
      "correctAnswers": {"type": "array", "items": {"type": "string"}},
      "points": {"type": "integer", "minimum": 0}
    },
    "allOf": [
      {
        "if": {"properties": {"type": {"enum": ["select", "multiple_choice", "multiple_answer"]}}},
        "then": {"required": ["options"], "properties": {"options": {"minItems": 2}}}
      }
    ]
  }
}`

// ExerciseService manages the exercise templates that assignments are built
// from.
type ExerciseService interface {
	List(ctx context.Context, req dto.ExerciseListRequest) (dto.ExerciseListResponse, error)
	Get(ctx context.Context, exerciseID uint) (dto.ExerciseResponse, error)
	Create(ctx context.Context, actor Actor, payload dto.ExerciseCreateRequest) (dto.ExerciseResponse, error)
	Update(ctx context.Context, exerciseID uint, actor Actor, payload dto.ExerciseUpdateRequest) (dto.ExerciseResponse, error)
	Delete(ctx context.Context, exerciseID uint, actor Actor) error
	AttachFile(ctx context.Context, exerciseID uint, actor Actor, url string) (dto.ExerciseResponse, error)
}

type exerciseService struct {
	repo      repository.ExerciseRepository
	validator *validator.Validate
	schema    *jsonschema.Schema
	activity  ActivityRecorder
	logger    zerolog.Logger
}

// NewExerciseService constructs the exercise authoring service.
func NewExerciseService(repo repository.ExerciseRepository, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) (ExerciseService, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("questions.schema.json", strings.NewReader(questionSchema)); err != nil {
		return nil, err
	}
	schema, err := compiler.Compile("questions.schema.json")
	if err != nil {
		return nil, err
	}

	return &exerciseService{
		repo:      repo,
		validator: validate,
		schema:    schema,
		activity:  activity,
		logger:    logger.With().Str("component", "exercise_service").Logger(),
	}, nil
}

func (s *exerciseService) List(ctx context.Context, req dto.ExerciseListRequest) (dto.ExerciseListResponse, error) {
	filter := repository.ExerciseFilter{
		Search:   strings.TrimSpace(req.Search),
		Page:     req.Page,
		PageSize: req.PageSize,
	}

	exercises, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.ExerciseListResponse{}, err
	}

	return dto.ExerciseListResponse{
		Items:      dto.NewExerciseResponseSlice(exercises),
		Pagination: dto.PaginationMeta{Page: req.Page, PageSize: req.PageSize, TotalItems: total},
	}, nil
}

func (s *exerciseService) Get(ctx context.Context, exerciseID uint) (dto.ExerciseResponse, error) {
	exercise, err := s.repo.GetByID(ctx, exerciseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ExerciseResponse{}, ErrExerciseNotFound
		}
		return dto.ExerciseResponse{}, err
	}
	return dto.NewExerciseResponse(exercise), nil
}

func (s *exerciseService) Create(ctx context.Context, actor Actor, payload dto.ExerciseCreateRequest) (dto.ExerciseResponse, error) {
	if actor.Role != models.RoleConsultant {
		return dto.ExerciseResponse{}, ErrForbidden
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.ExerciseResponse{}, err
	}
	if err := s.validateQuestions(payload.Questions); err != nil {
		return dto.ExerciseResponse{}, err
	}
	if payload.IsExam && payload.AutoCorrect && !hasAutoGradable(payload.Questions) {
		return dto.ExerciseResponse{}, validationError("auto-corrected exams need at least one auto-gradable question")
	}

	exercise := models.Exercise{
		Title:         strings.TrimSpace(payload.Title),
		Description:   payload.Description,
		Instructions:  payload.Instructions,
		WorkPlatform:  payload.WorkPlatform,
		IsExam:        payload.IsExam,
		AutoCorrect:   payload.AutoCorrect,
		TotalPoints:   payload.TotalPoints,
		PassingScore:  payload.PassingScore,
		ExamTimeLimit: payload.ExamTimeLimit,
		CreatedBy:     actor.ID,
	}
	exercise.SetQuestions(questionModels(payload.Questions))
	exercise.SetAttachments(nil)

	if err := s.repo.Create(ctx, &exercise); err != nil {
		return dto.ExerciseResponse{}, err
	}

	s.logger.Info().Uint("exercise_id", exercise.ID).Str("title", exercise.Title).Msg("exercise created")
	s.recordActivity(ctx, actor, "exercise.created", exercise.ID)

	return dto.NewExerciseResponse(exercise), nil
}

func (s *exerciseService) Update(ctx context.Context, exerciseID uint, actor Actor, payload dto.ExerciseUpdateRequest) (dto.ExerciseResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ExerciseResponse{}, err
	}

	exercise, err := s.ownedExercise(ctx, exerciseID, actor)
	if err != nil {
		return dto.ExerciseResponse{}, err
	}

	if payload.Title != nil {
		exercise.Title = strings.TrimSpace(*payload.Title)
	}
	if payload.Description != nil {
		exercise.Description = *payload.Description
	}
	if payload.Instructions != nil {
		exercise.Instructions = *payload.Instructions
	}
	if payload.WorkPlatform != nil {
		exercise.WorkPlatform = *payload.WorkPlatform
	}
	if payload.AutoCorrect != nil {
		exercise.AutoCorrect = *payload.AutoCorrect
	}
	if payload.TotalPoints != nil {
		exercise.TotalPoints = *payload.TotalPoints
	}
	if payload.PassingScore != nil {
		exercise.PassingScore = payload.PassingScore
	}
	if payload.ExamTimeLimit != nil {
		exercise.ExamTimeLimit = payload.ExamTimeLimit
	}
	if payload.Questions != nil {
		if err := s.validateQuestions(payload.Questions); err != nil {
			return dto.ExerciseResponse{}, err
		}
		exercise.SetQuestions(questionModels(payload.Questions))
	}

	if err := s.repo.Update(ctx, &exercise); err != nil {
		return dto.ExerciseResponse{}, err
	}

	s.recordActivity(ctx, actor, "exercise.updated", exercise.ID)

	return dto.NewExerciseResponse(exercise), nil
}

func (s *exerciseService) Delete(ctx context.Context, exerciseID uint, actor Actor) error {
	if _, err := s.ownedExercise(ctx, exerciseID, actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, exerciseID); err != nil {
		return err
	}
	s.recordActivity(ctx, actor, "exercise.deleted", exerciseID)
	return nil
}

func (s *exerciseService) AttachFile(ctx context.Context, exerciseID uint, actor Actor, url string) (dto.ExerciseResponse, error) {
	exercise, err := s.ownedExercise(ctx, exerciseID, actor)
	if err != nil {
		return dto.ExerciseResponse{}, err
	}

	attachments := append(exercise.Attachments(), url)
	exercise.SetAttachments(attachments)

	if err := s.repo.Update(ctx, &exercise); err != nil {
		return dto.ExerciseResponse{}, err
	}

	return dto.NewExerciseResponse(exercise), nil
}

func (s *exerciseService) ownedExercise(ctx context.Context, exerciseID uint, actor Actor) (models.Exercise, error) {
	if actor.Role != models.RoleConsultant {
		return models.Exercise{}, ErrForbidden
	}
	exercise, err := s.repo.GetByID(ctx, exerciseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Exercise{}, ErrExerciseNotFound
		}
		return models.Exercise{}, err
	}
	if exercise.CreatedBy != actor.ID {
		return models.Exercise{}, ErrForbidden
	}
	return exercise, nil
}

// validateQuestions runs the structural schema plus the uniqueness check the
// schema language cannot express across array items.
func (s *exerciseService) validateQuestions(questions []dto.QuestionPayload) error {
	raw, err := json.Marshal(questions)
	if err != nil {
		return err
	}
	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	if err := s.schema.Validate(decoded); err != nil {
		return validationError("invalid questions: %v", err)
	}

	seen := make(map[string]struct{}, len(questions))
	for _, question := range questions {
		if _, dup := seen[question.ID]; dup {
			return validationError("duplicate question id %s", question.ID)
		}
		seen[question.ID] = struct{}{}
	}
	return nil
}

func (s *exerciseService) recordActivity(ctx context.Context, actor Actor, action string, exerciseID uint) {
	if s.activity == nil {
		return
	}
	id := exerciseID
	_, _ = s.activity.Record(ctx, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: "exercise",
		EntityID:   &id,
	})
}

func questionModels(payloads []dto.QuestionPayload) []models.Question {
	questions := make([]models.Question, 0, len(payloads))
	for _, payload := range payloads {
		questions = append(questions, payload.ToModel())
	}
	return questions
}

func hasAutoGradable(questions []dto.QuestionPayload) bool {
	for _, question := range questions {
		if question.ToModel().AutoGradable() {
			return true
		}
	}
	return false
}
