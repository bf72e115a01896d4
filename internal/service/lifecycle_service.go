package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/percorso-labs/percorso-api/internal/dto"
	"github.com/percorso-labs/percorso-api/internal/models"
	"github.com/percorso-labs/percorso-api/internal/observability"
	"github.com/percorso-labs/percorso-api/internal/repository"
)

// Minimum length of the client notes accompanying a submission. The check is
// client-editable, so it is always re-validated here.
const submissionNotesMinLength = 50

// Actor identifies who is driving a lifecycle transition.
type Actor struct {
	ID   uint
	Role string
}

// LifecycleService owns the assignment status and enforces legal transitions.
// Every mutation of an assignment's lifecycle state flows through here.
type LifecycleService interface {
	Get(ctx context.Context, assignmentID uint, actor Actor) (dto.AssignmentResponse, error)
	List(ctx context.Context, actor Actor, req dto.AssignmentListRequest) (dto.AssignmentListResponse, error)
	Assign(ctx context.Context, actor Actor, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error)
	Start(ctx context.Context, assignmentID uint, actor Actor) (dto.AssignmentResponse, error)
	Reset(ctx context.Context, assignmentID uint, actor Actor) (dto.AssignmentResponse, error)
	Submit(ctx context.Context, assignmentID uint, actor Actor, payload dto.SubmitRequest, attachments []string) (dto.SubmissionResponse, error)
	Complete(ctx context.Context, assignmentID uint, actor Actor, payload dto.ReviewCompleteRequest) (dto.AssignmentResponse, error)
	Return(ctx context.Context, assignmentID uint, actor Actor, payload dto.ReviewReturnRequest) (dto.AssignmentResponse, error)
	Reject(ctx context.Context, assignmentID uint, actor Actor, payload dto.ReviewRejectRequest) (dto.AssignmentResponse, error)
	History(ctx context.Context, assignmentID uint, actor Actor) ([]dto.RevisionEntryResponse, error)
}

type lifecycleService struct {
	assignments repository.AssignmentRepository
	exercises   repository.ExerciseRepository
	submissions repository.SubmissionRepository
	revisions   repository.RevisionRepository
	validator   *validator.Validate
	activity    ActivityRecorder
	events      EventPublisher
	notify      TransitionNotifier
	sanitizer   *bluemonday.Policy
	tracer      trace.Tracer
	logger      zerolog.Logger
	now         func() time.Time
}

// NewLifecycleService constructs the lifecycle state machine service.
func NewLifecycleService(
	assignments repository.AssignmentRepository,
	exercises repository.ExerciseRepository,
	submissions repository.SubmissionRepository,
	revisions repository.RevisionRepository,
	validate *validator.Validate,
	activity ActivityRecorder,
	events EventPublisher,
	notify TransitionNotifier,
	logger zerolog.Logger,
) LifecycleService {
	return &lifecycleService{
		assignments: assignments,
		exercises:   exercises,
		submissions: submissions,
		revisions:   revisions,
		validator:   validate,
		activity:    activity,
		events:      events,
		notify:      notify,
		sanitizer:   bluemonday.StrictPolicy(),
		tracer:      otel.Tracer("github.com/percorso-labs/percorso-api/internal/service/lifecycle"),
		logger:      logger.With().Str("component", "lifecycle_service").Logger(),
		now:         time.Now,
	}
}

func (s *lifecycleService) Get(ctx context.Context, assignmentID uint, actor Actor) (dto.AssignmentResponse, error) {
	assignment, err := s.loadAssignment(ctx, assignmentID, actor)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	answers := models.AnswerMap{}
	if draft, err := s.submissions.GetDraft(ctx, assignmentID); err == nil {
		answers = draft.AnswerMap()
	}

	return dto.NewAssignmentResponse(assignment, answers), nil
}

func (s *lifecycleService) List(ctx context.Context, actor Actor, req dto.AssignmentListRequest) (dto.AssignmentListResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AssignmentListResponse{}, err
	}

	filter := repository.AssignmentFilter{Page: req.Page, PageSize: req.PageSize}
	switch actor.Role {
	case models.RoleConsultant:
		filter.ConsultantID = &actor.ID
	default:
		filter.ClientID = &actor.ID
	}
	if req.Status != "" {
		status := req.Status
		filter.Status = &status
	}

	assignments, total, err := s.assignments.List(ctx, filter)
	if err != nil {
		return dto.AssignmentListResponse{}, err
	}

	items := make([]dto.AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		items = append(items, dto.NewAssignmentResponse(assignment, nil))
	}

	return dto.AssignmentListResponse{
		Items:      items,
		Pagination: dto.PaginationMeta{Page: req.Page, PageSize: req.PageSize, TotalItems: total},
	}, nil
}

func (s *lifecycleService) Assign(ctx context.Context, actor Actor, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error) {
	if actor.Role != models.RoleConsultant {
		return dto.AssignmentResponse{}, ErrForbidden
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	exercise, err := s.exercises.GetByID(ctx, payload.ExerciseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrExerciseNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	assignment := models.Assignment{
		ExerciseID:   exercise.ID,
		ClientID:     payload.ClientID,
		ConsultantID: actor.ID,
		Status:       models.StatusPending,
		Priority:     payload.Priority,
		DueDate:      payload.DueDate,
		WorkPlatform: payload.WorkPlatform,
	}

	if err := s.assignments.Create(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}
	assignment.Exercise = exercise

	s.logger.Info().Uint("assignment_id", assignment.ID).Uint("client_id", payload.ClientID).Msg("exercise assigned")
	s.record(ctx, actor, "assignment.created", assignment.ID, map[string]interface{}{
		"exercise_id": exercise.ID,
		"client_id":   payload.ClientID,
	})

	return dto.NewAssignmentResponse(assignment, nil), nil
}

func (s *lifecycleService) Start(ctx context.Context, assignmentID uint, actor Actor) (dto.AssignmentResponse, error) {
	assignment, err := s.loadAssignment(ctx, assignmentID, actor)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}
	if actor.Role != models.RoleClient || assignment.ClientID != actor.ID {
		return dto.AssignmentResponse{}, ErrForbidden
	}
	if assignment.Status != models.StatusPending {
		return dto.AssignmentResponse{}, ErrConflict
	}

	previous := assignment.Status
	startedAt := s.now()
	assignment.Status = models.StatusInProgress
	assignment.StartedAt = &startedAt

	if err := s.assignments.Update(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.appendRevision(ctx, assignment, models.RevisionActionStarted, previous, actor, revisionDetails{})
	s.publish(ctx, assignment, models.RevisionActionStarted, previous, actor)

	return dto.NewAssignmentResponse(assignment, nil), nil
}

func (s *lifecycleService) Reset(ctx context.Context, assignmentID uint, actor Actor) (dto.AssignmentResponse, error) {
	assignment, err := s.loadAssignment(ctx, assignmentID, actor)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}
	if actor.Role != models.RoleClient || assignment.ClientID != actor.ID {
		return dto.AssignmentResponse{}, ErrForbidden
	}
	if assignment.Status != models.StatusInProgress {
		return dto.AssignmentResponse{}, ErrConflict
	}

	previous := assignment.Status
	assignment.Status = models.StatusPending
	assignment.StartedAt = nil
	assignment.ElapsedSeconds = 0

	if err := s.assignments.Update(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.appendRevision(ctx, assignment, models.RevisionActionReset, previous, actor, revisionDetails{})
	s.publish(ctx, assignment, models.RevisionActionReset, previous, actor)

	return dto.NewAssignmentResponse(assignment, nil), nil
}

func (s *lifecycleService) Submit(ctx context.Context, assignmentID uint, actor Actor, payload dto.SubmitRequest, attachments []string) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "lifecycle.submit", trace.WithAttributes(
		attribute.Int64("assignment.id", int64(assignmentID)),
		attribute.Int64("actor.id", int64(actor.ID)),
	))
	defer span.End()

	assignment, err := s.loadAssignment(ctx, assignmentID, actor)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "assignment_lookup_failed")
		return dto.SubmissionResponse{}, err
	}
	if actor.Role != models.RoleClient || assignment.ClientID != actor.ID {
		return dto.SubmissionResponse{}, ErrForbidden
	}
	if assignment.Status != models.StatusInProgress && assignment.Status != models.StatusReturned {
		span.SetStatus(codes.Error, "illegal_transition")
		return dto.SubmissionResponse{}, ErrConflict
	}

	answers := models.AnswersToMap(payload.Answers)
	notes := strings.TrimSpace(s.sanitizer.Sanitize(payload.Notes))

	if err := s.validateSubmitGuards(assignment, answers, notes, payload.WorkPlatformConfirmed); err != nil {
		span.SetStatus(codes.Error, "guard_failed")
		return dto.SubmissionResponse{}, err
	}

	submittedAt := s.now()
	submission, err := s.freezeDraft(ctx, assignment, payload.Answers, notes, attachments, submittedAt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission_persist_failed")
		return dto.SubmissionResponse{}, err
	}

	previous := assignment.Status
	assignment.Status = models.StatusSubmitted
	assignment.SubmittedAt = &submittedAt
	if assignment.Exercise.IsExam && assignment.Exercise.AutoCorrect {
		auto := TotalScore(assignment.Exercise, AutoGrades(assignment.Exercise, answers))
		assignment.AutoGradedScore = &auto
	}

	if err := s.assignments.Update(ctx, &assignment); err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}

	s.appendRevision(ctx, assignment, models.RevisionActionSubmitted, previous, actor, revisionDetails{
		submissionID: &submission.ID,
		clientNotes:  notes,
	})
	s.publish(ctx, assignment, models.RevisionActionSubmitted, previous, actor)
	s.record(ctx, actor, "assignment.submitted", assignment.ID, map[string]interface{}{
		"submission_id": submission.ID,
	})
	observability.LifecycleTransitions().WithLabelValues(previous, assignment.Status).Inc()

	s.logger.Info().Uint("assignment_id", assignment.ID).Uint("submission_id", submission.ID).Msg("assignment submitted")

	return dto.NewSubmissionResponse(submission), nil
}

func (s *lifecycleService) Complete(ctx context.Context, assignmentID uint, actor Actor, payload dto.ReviewCompleteRequest) (dto.AssignmentResponse, error) {
	ctx, span := s.tracer.Start(ctx, "lifecycle.complete", trace.WithAttributes(
		attribute.Int64("assignment.id", int64(assignmentID)),
		attribute.Int64("actor.id", int64(actor.ID)),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment, submission, err := s.loadForReview(ctx, assignmentID, actor)
	if err != nil {
		span.RecordError(err)
		return dto.AssignmentResponse{}, err
	}

	manual := make([]models.QuestionGrade, 0, len(payload.QuestionGrades))
	for _, grade := range payload.QuestionGrades {
		manual = append(manual, grade.ToModel())
	}

	var finalScore int
	var grades []models.QuestionGrade
	if assignment.Exercise.IsExam && assignment.Exercise.AutoCorrect {
		// Auto-gradable questions are scored by the calculator alone; the
		// consultant only fills in the manual ones.
		if err := validateManualGrades(assignment.Exercise, manual); err != nil {
			span.SetStatus(codes.Error, "manual_grades_incomplete")
			return dto.AssignmentResponse{}, err
		}
		auto := AutoGrades(assignment.Exercise, submission.AnswerMap())
		grades = mergeGrades(assignment.Exercise, auto, manual)
		finalScore = TotalScore(assignment.Exercise, grades)
	} else {
		if payload.Score == nil {
			return dto.AssignmentResponse{}, validationError("score is required")
		}
		finalScore = *payload.Score
		grades = manual
	}

	previous := assignment.Status
	reviewedAt := s.now()
	assignment.Status = models.StatusCompleted
	assignment.Score = &finalScore
	assignment.ReviewedAt = &reviewedAt
	assignment.CompletedAt = &reviewedAt
	if len(grades) > 0 {
		assignment.SetQuestionGrades(grades)
	}

	feedback := strings.TrimSpace(s.sanitizer.Sanitize(payload.Feedback))
	if feedback != "" {
		assignment.AppendFeedback(feedback, reviewedAt)
	}

	if err := s.assignments.Update(ctx, &assignment); err != nil {
		span.RecordError(err)
		return dto.AssignmentResponse{}, err
	}

	s.appendRevision(ctx, assignment, models.RevisionActionCompleted, previous, actor, revisionDetails{
		submissionID: &submission.ID,
		feedback:     feedback,
		score:        &finalScore,
	})
	s.publish(ctx, assignment, models.RevisionActionCompleted, previous, actor)
	s.record(ctx, actor, "assignment.completed", assignment.ID, map[string]interface{}{
		"score": finalScore,
	})
	observability.LifecycleTransitions().WithLabelValues(previous, assignment.Status).Inc()

	span.SetAttributes(attribute.Int("assignment.score", finalScore))

	return dto.NewAssignmentResponse(assignment, nil), nil
}

func (s *lifecycleService) Return(ctx context.Context, assignmentID uint, actor Actor, payload dto.ReviewReturnRequest) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment, submission, err := s.loadForReview(ctx, assignmentID, actor)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	feedback := strings.TrimSpace(s.sanitizer.Sanitize(payload.Feedback))
	if feedback == "" {
		return dto.AssignmentResponse{}, validationError("feedback is required to return an assignment")
	}

	previous := assignment.Status
	reviewedAt := s.now()
	assignment.Status = models.StatusReturned
	assignment.ReviewedAt = &reviewedAt
	assignment.AppendFeedback(feedback, reviewedAt)

	if err := s.assignments.Update(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.appendRevision(ctx, assignment, models.RevisionActionReturned, previous, actor, revisionDetails{
		submissionID: &submission.ID,
		feedback:     feedback,
	})
	s.publish(ctx, assignment, models.RevisionActionReturned, previous, actor)
	s.record(ctx, actor, "assignment.returned", assignment.ID, nil)
	observability.LifecycleTransitions().WithLabelValues(previous, assignment.Status).Inc()

	return dto.NewAssignmentResponse(assignment, nil), nil
}

func (s *lifecycleService) Reject(ctx context.Context, assignmentID uint, actor Actor, payload dto.ReviewRejectRequest) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment, submission, err := s.loadForReview(ctx, assignmentID, actor)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	feedback := strings.TrimSpace(s.sanitizer.Sanitize(payload.Feedback))
	if feedback == "" {
		return dto.AssignmentResponse{}, validationError("feedback is required to reject an assignment")
	}

	previous := assignment.Status
	reviewedAt := s.now()
	assignment.Status = models.StatusRejected
	assignment.ReviewedAt = &reviewedAt
	assignment.AppendFeedback(feedback, reviewedAt)

	if err := s.assignments.Update(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.appendRevision(ctx, assignment, models.RevisionActionRejected, previous, actor, revisionDetails{
		submissionID: &submission.ID,
		feedback:     feedback,
	})
	s.publish(ctx, assignment, models.RevisionActionRejected, previous, actor)
	s.record(ctx, actor, "assignment.rejected", assignment.ID, nil)
	observability.LifecycleTransitions().WithLabelValues(previous, assignment.Status).Inc()

	return dto.NewAssignmentResponse(assignment, nil), nil
}

func (s *lifecycleService) History(ctx context.Context, assignmentID uint, actor Actor) ([]dto.RevisionEntryResponse, error) {
	if _, err := s.loadAssignment(ctx, assignmentID, actor); err != nil {
		return nil, err
	}

	entries, err := s.revisions.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	return dto.NewRevisionEntryResponseSlice(entries), nil
}

// loadAssignment fetches the assignment and enforces visibility: clients see
// their own assignments, consultants the ones they assigned.
func (s *lifecycleService) loadAssignment(ctx context.Context, assignmentID uint, actor Actor) (models.Assignment, error) {
	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, ErrAssignmentNotFound
		}
		return models.Assignment{}, err
	}

	switch actor.Role {
	case models.RoleConsultant:
		if assignment.ConsultantID != actor.ID {
			return models.Assignment{}, ErrForbidden
		}
	default:
		if assignment.ClientID != actor.ID {
			return models.Assignment{}, ErrForbidden
		}
	}

	return assignment, nil
}

// loadForReview enforces the consultant-side preconditions shared by
// complete, return, and reject: the actor reviews their own assignment, the
// status is submitted, and a finalized submission exists.
func (s *lifecycleService) loadForReview(ctx context.Context, assignmentID uint, actor Actor) (models.Assignment, models.Submission, error) {
	if actor.Role != models.RoleConsultant {
		return models.Assignment{}, models.Submission{}, ErrForbidden
	}

	assignment, err := s.loadAssignment(ctx, assignmentID, actor)
	if err != nil {
		return models.Assignment{}, models.Submission{}, err
	}
	if assignment.Status != models.StatusSubmitted {
		return models.Assignment{}, models.Submission{}, ErrConflict
	}

	submission, err := s.submissions.LatestSubmission(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, models.Submission{}, ErrConflict
		}
		return models.Assignment{}, models.Submission{}, err
	}

	return assignment, submission, nil
}

func (s *lifecycleService) validateSubmitGuards(assignment models.Assignment, answers models.AnswerMap, notes string, platformConfirmed bool) error {
	questions := assignment.Exercise.Questions()
	for _, question := range questions {
		answer, present := answers[question.ID]
		if !present || !answer.Answered() {
			return validationError("question %s has no answer", question.ID)
		}
	}

	if len(notes) < submissionNotesMinLength {
		return validationError("notes must be at least %d characters", submissionNotesMinLength)
	}

	if assignment.EffectiveWorkPlatform() != "" && !platformConfirmed {
		return validationError("external platform work must be confirmed")
	}

	return nil
}

// freezeDraft finalizes the working state: the live draft row, when present,
// becomes the submission by stamping submitted_at; otherwise a fresh
// finalized row is created. Either way the draft ceases to exist.
func (s *lifecycleService) freezeDraft(ctx context.Context, assignment models.Assignment, answers []models.AnswerItem, notes string, attachments []string, submittedAt time.Time) (models.Submission, error) {
	submission, err := s.submissions.GetDraft(ctx, assignment.ID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Submission{}, err
		}
		submission = models.Submission{AssignmentID: assignment.ID}
	}

	submission.SetAnswers(answers)
	submission.SetAttachments(attachments)
	submission.Notes = notes
	submission.SubmittedAt = &submittedAt

	if submission.ID == 0 {
		err = s.submissions.Create(ctx, &submission)
	} else {
		err = s.submissions.Update(ctx, &submission)
	}
	if err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

type revisionDetails struct {
	submissionID *uint
	feedback     string
	clientNotes  string
	score        *int
}

func (s *lifecycleService) appendRevision(ctx context.Context, assignment models.Assignment, action, previous string, actor Actor, details revisionDetails) {
	entry := models.RevisionEntry{
		AssignmentID:       assignment.ID,
		SubmissionID:       details.submissionID,
		Action:             action,
		PreviousStatus:     previous,
		NewStatus:          assignment.Status,
		ConsultantFeedback: details.feedback,
		ClientNotes:        details.clientNotes,
		Score:              details.score,
		CreatedBy:          actor.ID,
	}
	if err := s.revisions.Append(ctx, &entry); err != nil {
		s.logger.Warn().Err(err).Uint("assignment_id", assignment.ID).Msg("failed to append revision entry")
	}
}

func (s *lifecycleService) publish(ctx context.Context, assignment models.Assignment, action, previous string, actor Actor) {
	if s.notify != nil {
		s.notify(assignment.ID, assignment.Status)
	}
	if s.events == nil {
		return
	}
	s.events.PublishTransition(ctx, LifecycleEvent{
		AssignmentID:   assignment.ID,
		Action:         action,
		PreviousStatus: previous,
		NewStatus:      assignment.Status,
		ActorID:        actor.ID,
		ActorRole:      actor.Role,
		OccurredAt:     s.now(),
	})
}

func (s *lifecycleService) record(ctx context.Context, actor Actor, action string, assignmentID uint, metadata map[string]interface{}) {
	if s.activity == nil {
		return
	}
	id := assignmentID
	_, _ = s.activity.Record(ctx, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: "assignment",
		EntityID:   &id,
		Metadata:   metadata,
	})
}
