package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/percorso-labs/percorso-api/internal/dto"
	"github.com/percorso-labs/percorso-api/internal/models"
	"github.com/percorso-labs/percorso-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

const validNotes = "I completed every section and double checked the numbers before sending."

var (
	clientActor     = Actor{ID: 10, Role: models.RoleClient}
	consultantActor = Actor{ID: 20, Role: models.RoleConsultant}
)

type fakeAssignmentRepo struct {
	assignments map[uint]models.Assignment
	nextID      uint
}

func newFakeAssignmentRepo() *fakeAssignmentRepo {
	return &fakeAssignmentRepo{assignments: map[uint]models.Assignment{}, nextID: 1}
}

func (f *fakeAssignmentRepo) List(_ context.Context, filter repository.AssignmentFilter) ([]models.Assignment, int64, error) {
	var result []models.Assignment
	for _, a := range f.assignments {
		if filter.ClientID != nil && a.ClientID != *filter.ClientID {
			continue
		}
		if filter.ConsultantID != nil && a.ConsultantID != *filter.ConsultantID {
			continue
		}
		if filter.Status != nil && a.Status != *filter.Status {
			continue
		}
		result = append(result, a)
	}
	return result, int64(len(result)), nil
}

func (f *fakeAssignmentRepo) GetByID(_ context.Context, id uint) (models.Assignment, error) {
	assignment, ok := f.assignments[id]
	if !ok {
		return models.Assignment{}, gorm.ErrRecordNotFound
	}
	return assignment, nil
}

func (f *fakeAssignmentRepo) Create(_ context.Context, assignment *models.Assignment) error {
	assignment.ID = f.nextID
	f.nextID++
	f.assignments[assignment.ID] = *assignment
	return nil
}

func (f *fakeAssignmentRepo) Update(_ context.Context, assignment *models.Assignment) error {
	f.assignments[assignment.ID] = *assignment
	return nil
}

func (f *fakeAssignmentRepo) Delete(_ context.Context, id uint) error {
	if _, ok := f.assignments[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.assignments, id)
	return nil
}

type fakeExerciseRepo struct {
	exercises map[uint]models.Exercise
	nextID    uint
}

func newFakeExerciseRepo() *fakeExerciseRepo {
	return &fakeExerciseRepo{exercises: map[uint]models.Exercise{}, nextID: 1}
}

func (f *fakeExerciseRepo) List(_ context.Context, _ repository.ExerciseFilter) ([]models.Exercise, int64, error) {
	var result []models.Exercise
	for _, e := range f.exercises {
		result = append(result, e)
	}
	return result, int64(len(result)), nil
}

func (f *fakeExerciseRepo) GetByID(_ context.Context, id uint) (models.Exercise, error) {
	exercise, ok := f.exercises[id]
	if !ok {
		return models.Exercise{}, gorm.ErrRecordNotFound
	}
	return exercise, nil
}

func (f *fakeExerciseRepo) Create(_ context.Context, exercise *models.Exercise) error {
	exercise.ID = f.nextID
	f.nextID++
	f.exercises[exercise.ID] = *exercise
	return nil
}

func (f *fakeExerciseRepo) Update(_ context.Context, exercise *models.Exercise) error {
	f.exercises[exercise.ID] = *exercise
	return nil
}

func (f *fakeExerciseRepo) Delete(_ context.Context, id uint) error {
	if _, ok := f.exercises[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.exercises, id)
	return nil
}

type fakeSubmissionRepo struct {
	submissions map[uint]models.Submission
	nextID      uint
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{submissions: map[uint]models.Submission{}, nextID: 1}
}

func (f *fakeSubmissionRepo) GetDraft(_ context.Context, assignmentID uint) (models.Submission, error) {
	for _, s := range f.submissions {
		if s.AssignmentID == assignmentID && s.SubmittedAt == nil {
			return s, nil
		}
	}
	return models.Submission{}, gorm.ErrRecordNotFound
}

func (f *fakeSubmissionRepo) SaveDraft(ctx context.Context, draft *models.Submission) error {
	existing, err := f.GetDraft(ctx, draft.AssignmentID)
	if err == nil {
		existing.AnswersRaw = draft.AnswersRaw
		existing.AttachmentsRaw = draft.AttachmentsRaw
		existing.Notes = draft.Notes
		f.submissions[existing.ID] = existing
		*draft = existing
		return nil
	}
	draft.SubmittedAt = nil
	return f.Create(ctx, draft)
}

func (f *fakeSubmissionRepo) GetByID(_ context.Context, id uint) (models.Submission, error) {
	submission, ok := f.submissions[id]
	if !ok {
		return models.Submission{}, gorm.ErrRecordNotFound
	}
	return submission, nil
}

func (f *fakeSubmissionRepo) LatestSubmission(_ context.Context, assignmentID uint) (models.Submission, error) {
	var latest models.Submission
	found := false
	for _, s := range f.submissions {
		if s.AssignmentID != assignmentID || s.SubmittedAt == nil {
			continue
		}
		if !found || s.SubmittedAt.After(*latest.SubmittedAt) {
			latest = s
			found = true
		}
	}
	if !found {
		return models.Submission{}, gorm.ErrRecordNotFound
	}
	return latest, nil
}

func (f *fakeSubmissionRepo) ListByAssignment(_ context.Context, assignmentID uint) ([]models.Submission, error) {
	var result []models.Submission
	for _, s := range f.submissions {
		if s.AssignmentID == assignmentID && s.SubmittedAt != nil {
			result = append(result, s)
		}
	}
	return result, nil
}

func (f *fakeSubmissionRepo) Create(_ context.Context, submission *models.Submission) error {
	submission.ID = f.nextID
	f.nextID++
	f.submissions[submission.ID] = *submission
	return nil
}

func (f *fakeSubmissionRepo) Update(_ context.Context, submission *models.Submission) error {
	f.submissions[submission.ID] = *submission
	return nil
}

type fakeRevisionRepo struct {
	entries []models.RevisionEntry
}

func (f *fakeRevisionRepo) Append(_ context.Context, entry *models.RevisionEntry) error {
	entry.ID = uint(len(f.entries) + 1)
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeRevisionRepo) ListByAssignment(_ context.Context, assignmentID uint) ([]models.RevisionEntry, error) {
	var result []models.RevisionEntry
	for i := len(f.entries) - 1; i >= 0; i-- {
		if f.entries[i].AssignmentID == assignmentID {
			result = append(result, f.entries[i])
		}
	}
	return result, nil
}

func (f *fakeRevisionRepo) LatestByAssignment(_ context.Context, assignmentID uint) (models.RevisionEntry, error) {
	for i := len(f.entries) - 1; i >= 0; i-- {
		if f.entries[i].AssignmentID == assignmentID {
			return f.entries[i], nil
		}
	}
	return models.RevisionEntry{}, gorm.ErrRecordNotFound
}

type capturingPublisher struct {
	events []LifecycleEvent
}

func (p *capturingPublisher) PublishTransition(_ context.Context, event LifecycleEvent) {
	p.events = append(p.events, event)
}

type notifiedTransition struct {
	assignmentID uint
	status       string
}

type lifecycleFixture struct {
	service     LifecycleService
	assignments *fakeAssignmentRepo
	exercises   *fakeExerciseRepo
	submissions *fakeSubmissionRepo
	revisions   *fakeRevisionRepo
	publisher   *capturingPublisher
	notified    []notifiedTransition
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()
	fixture := &lifecycleFixture{
		assignments: newFakeAssignmentRepo(),
		exercises:   newFakeExerciseRepo(),
		submissions: newFakeSubmissionRepo(),
		revisions:   &fakeRevisionRepo{},
		publisher:   &capturingPublisher{},
	}
	fixture.service = NewLifecycleService(
		fixture.assignments,
		fixture.exercises,
		fixture.submissions,
		fixture.revisions,
		validator.New(),
		nil,
		fixture.publisher,
		func(assignmentID uint, status string) {
			fixture.notified = append(fixture.notified, notifiedTransition{assignmentID, status})
		},
		testLogger(),
	)
	return fixture
}

func (f *lifecycleFixture) seedAssignment(t *testing.T, status string, mutate func(*models.Exercise)) models.Assignment {
	t.Helper()
	exercise := models.Exercise{Title: "Monthly budget", CreatedBy: consultantActor.ID}
	exercise.SetQuestions([]models.Question{
		{ID: "q1", Type: models.QuestionTypeTrueFalse, Text: "Is saving good?", CorrectAnswers: []string{"true"}, Points: 2},
		{ID: "q2", Type: models.QuestionTypeText, Text: "Explain your plan", Points: 2},
	})
	if mutate != nil {
		mutate(&exercise)
	}
	require.NoError(t, f.exercises.Create(context.Background(), &exercise))

	assignment := models.Assignment{
		ExerciseID:   exercise.ID,
		ClientID:     clientActor.ID,
		ConsultantID: consultantActor.ID,
		Status:       status,
		Exercise:     exercise,
	}
	require.NoError(t, f.assignments.Create(context.Background(), &assignment))
	return assignment
}

func fullAnswers() []models.AnswerItem {
	return []models.AnswerItem{
		{QuestionID: "q1", Answer: models.TextAnswer("vero")},
		{QuestionID: "q2", Answer: models.TextAnswer("I will track expenses weekly")},
	}
}

func TestLifecycleStart(t *testing.T) {
	fixture := newLifecycleFixture(t)
	assignment := fixture.seedAssignment(t, models.StatusPending, nil)

	response, err := fixture.service.Start(context.Background(), assignment.ID, clientActor)
	require.NoError(t, err)
	require.Equal(t, models.StatusInProgress, response.Status)
	require.NotNil(t, response.StartedAt)

	require.Len(t, fixture.revisions.entries, 1)
	require.Equal(t, models.RevisionActionStarted, fixture.revisions.entries[0].Action)
	require.Len(t, fixture.publisher.events, 1)
	require.Equal(t, models.StatusPending, fixture.publisher.events[0].PreviousStatus)
}

func TestLifecycleStartRejectsWrongStatus(t *testing.T) {
	fixture := newLifecycleFixture(t)
	assignment := fixture.seedAssignment(t, models.StatusSubmitted, nil)

	_, err := fixture.service.Start(context.Background(), assignment.ID, clientActor)
	require.ErrorIs(t, err, ErrConflict)
}

func TestLifecycleStartRejectsOtherClients(t *testing.T) {
	fixture := newLifecycleFixture(t)
	assignment := fixture.seedAssignment(t, models.StatusPending, nil)

	_, err := fixture.service.Start(context.Background(), assignment.ID, Actor{ID: 99, Role: models.RoleClient})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestLifecycleResetClearsProgress(t *testing.T) {
	fixture := newLifecycleFixture(t)
	assignment := fixture.seedAssignment(t, models.StatusPending, nil)

	_, err := fixture.service.Start(context.Background(), assignment.ID, clientActor)
	require.NoError(t, err)

	response, err := fixture.service.Reset(context.Background(), assignment.ID, clientActor)
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, response.Status)
	require.Nil(t, response.StartedAt)
	require.Zero(t, response.ElapsedSeconds)
}

func TestLifecycleSubmitPromotesDraft(t *testing.T) {
	fixture := newLifecycleFixture(t)
	assignment := fixture.seedAssignment(t, models.StatusInProgress, nil)

	draft := models.Submission{AssignmentID: assignment.ID}
	draft.SetAnswers(fullAnswers())
	require.NoError(t, fixture.submissions.SaveDraft(context.Background(), &draft))

	response, err := fixture.service.Submit(context.Background(), assignment.ID, clientActor, dto.SubmitRequest{
		Answers: fullAnswers(),
		Notes:   validNotes,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, draft.ID, response.ID, "the draft row becomes the submission")
	require.NotNil(t, response.SubmittedAt)

	_, err = fixture.submissions.GetDraft(context.Background(), assignment.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound, "no draft survives a submit")

	stored, err := fixture.assignments.GetByID(context.Background(), assignment.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusSubmitted, stored.Status)
	require.Nil(t, stored.AutoGradedScore, "non-exam exercises are not auto-graded")

	require.Len(t, fixture.revisions.entries, 1)
	require.Equal(t, models.RevisionActionSubmitted, fixture.revisions.entries[0].Action)
	require.Equal(t, validNotes, fixture.revisions.entries[0].ClientNotes)
}

func TestLifecycleSubmitWithoutDraftCreatesSubmission(t *testing.T) {
	fixture := newLifecycleFixture(t)
	assignment := fixture.seedAssignment(t, models.StatusInProgress, nil)

	response, err := fixture.service.Submit(context.Background(), assignment.ID, clientActor, dto.SubmitRequest{
		Answers: fullAnswers(),
		Notes:   validNotes,
	}, []string{"https://cdn.example.com/report.pdf"})
	require.NoError(t, err)
	require.NotZero(t, response.ID)
	require.Equal(t, []string{"https://cdn.example.com/report.pdf"}, response.Attachments)
}

func TestLifecycleSubmitGuards(t *testing.T) {
	t.Run("unanswered question", func(t *testing.T) {
		fixture := newLifecycleFixture(t)
		assignment := fixture.seedAssignment(t, models.StatusInProgress, nil)

		_, err := fixture.service.Submit(context.Background(), assignment.ID, clientActor, dto.SubmitRequest{
			Answers: []models.AnswerItem{{QuestionID: "q1", Answer: models.TextAnswer("vero")}},
			Notes:   validNotes,
		}, nil)
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("notes too short", func(t *testing.T) {
		fixture := newLifecycleFixture(t)
		assignment := fixture.seedAssignment(t, models.StatusInProgress, nil)

		_, err := fixture.service.Submit(context.Background(), assignment.ID, clientActor, dto.SubmitRequest{
			Answers: fullAnswers(),
			Notes:   "too short",
		}, nil)
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("markup does not count toward notes length", func(t *testing.T) {
		fixture := newLifecycleFixture(t)
		assignment := fixture.seedAssignment(t, models.StatusInProgress, nil)

		padded := "<b>" + strings.Repeat("<i></i>", 20) + "short note</b>"
		_, err := fixture.service.Submit(context.Background(), assignment.ID, clientActor, dto.SubmitRequest{
			Answers: fullAnswers(),
			Notes:   padded,
		}, nil)
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("unconfirmed external platform", func(t *testing.T) {
		fixture := newLifecycleFixture(t)
		assignment := fixture.seedAssignment(t, models.StatusInProgress, func(e *models.Exercise) {
			e.WorkPlatform = "https://sheets.example.com/workbook"
		})

		_, err := fixture.service.Submit(context.Background(), assignment.ID, clientActor, dto.SubmitRequest{
			Answers: fullAnswers(),
			Notes:   validNotes,
		}, nil)
		require.ErrorIs(t, err, ErrValidation)

		_, err = fixture.service.Submit(context.Background(), assignment.ID, clientActor, dto.SubmitRequest{
			Answers:               fullAnswers(),
			Notes:                 validNotes,
			WorkPlatformConfirmed: true,
		}, nil)
		require.NoError(t, err)
	})

	t.Run("wrong status", func(t *testing.T) {
		fixture := newLifecycleFixture(t)
		assignment := fixture.seedAssignment(t, models.StatusPending, nil)

		_, err := fixture.service.Submit(context.Background(), assignment.ID, clientActor, dto.SubmitRequest{
			Answers: fullAnswers(),
			Notes:   validNotes,
		}, nil)
		require.ErrorIs(t, err, ErrConflict)
	})
}

func TestLifecycleSubmitAutoGradesExams(t *testing.T) {
	fixture := newLifecycleFixture(t)
	assignment := fixture.seedAssignment(t, models.StatusInProgress, func(e *models.Exercise) {
		e.IsExam = true
		e.AutoCorrect = true
		e.TotalPoints = 100
	})

	_, err := fixture.service.Submit(context.Background(), assignment.ID, clientActor, dto.SubmitRequest{
		Answers: fullAnswers(),
		Notes:   validNotes,
	}, nil)
	require.NoError(t, err)

	stored, err := fixture.assignments.GetByID(context.Background(), assignment.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.AutoGradedScore)
	// q1 correct for 2 of 4 total points, the manual q2 scores zero until review.
	require.Equal(t, 50, *stored.AutoGradedScore)
}

func TestLifecycleSubmitAllowedFromReturned(t *testing.T) {
	fixture := newLifecycleFixture(t)
	assignment := fixture.seedAssignment(t, models.StatusReturned, nil)

	response, err := fixture.service.Submit(context.Background(), assignment.ID, clientActor, dto.SubmitRequest{
		Answers: fullAnswers(),
		Notes:   validNotes,
	}, nil)
	require.NoError(t, err)
	require.NotNil(t, response.SubmittedAt)
}

func submitFixtureAssignment(t *testing.T, fixture *lifecycleFixture, mutate func(*models.Exercise)) models.Assignment {
	t.Helper()
	assignment := fixture.seedAssignment(t, models.StatusInProgress, mutate)
	_, err := fixture.service.Submit(context.Background(), assignment.ID, clientActor, dto.SubmitRequest{
		Answers: fullAnswers(),
		Notes:   validNotes,
	}, nil)
	require.NoError(t, err)
	return assignment
}

func TestLifecycleCompleteRequiresScoreForManualReview(t *testing.T) {
	fixture := newLifecycleFixture(t)
	assignment := submitFixtureAssignment(t, fixture, nil)

	_, err := fixture.service.Complete(context.Background(), assignment.ID, consultantActor, dto.ReviewCompleteRequest{})
	require.ErrorIs(t, err, ErrValidation)

	score := 85
	response, err := fixture.service.Complete(context.Background(), assignment.ID, consultantActor, dto.ReviewCompleteRequest{
		Score:    &score,
		Feedback: "Solid work overall.",
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, response.Status)
	require.NotNil(t, response.Score)
	require.Equal(t, 85, *response.Score)
	require.NotNil(t, response.CompletedAt)
	require.Len(t, response.ConsultantFeedback, 1)
}

func TestLifecycleCompleteAutoCorrectExam(t *testing.T) {
	fixture := newLifecycleFixture(t)
	assignment := submitFixtureAssignment(t, fixture, func(e *models.Exercise) {
		e.IsExam = true
		e.AutoCorrect = true
		e.TotalPoints = 100
	})

	// The manual essay question must be graded before completion.
	_, err := fixture.service.Complete(context.Background(), assignment.ID, consultantActor, dto.ReviewCompleteRequest{})
	require.ErrorIs(t, err, ErrValidation)

	response, err := fixture.service.Complete(context.Background(), assignment.ID, consultantActor, dto.ReviewCompleteRequest{
		QuestionGrades: []dto.QuestionGradePayload{{QuestionID: "q2", Score: 2, MaxScore: 2}},
	})
	require.NoError(t, err)
	require.NotNil(t, response.Score)
	require.Equal(t, 100, *response.Score, "auto q1 and manual q2 both at full points")
	require.Len(t, response.QuestionGrades, 2)
}

func TestLifecycleCompleteRequiresSubmittedStatus(t *testing.T) {
	fixture := newLifecycleFixture(t)
	assignment := fixture.seedAssignment(t, models.StatusInProgress, nil)

	score := 50
	_, err := fixture.service.Complete(context.Background(), assignment.ID, consultantActor, dto.ReviewCompleteRequest{Score: &score})
	require.ErrorIs(t, err, ErrConflict)
}

func TestLifecycleCompleteRejectsClients(t *testing.T) {
	fixture := newLifecycleFixture(t)
	assignment := submitFixtureAssignment(t, fixture, nil)

	score := 50
	_, err := fixture.service.Complete(context.Background(), assignment.ID, clientActor, dto.ReviewCompleteRequest{Score: &score})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestLifecycleReturnRequiresFeedback(t *testing.T) {
	fixture := newLifecycleFixture(t)
	assignment := submitFixtureAssignment(t, fixture, nil)

	_, err := fixture.service.Return(context.Background(), assignment.ID, consultantActor, dto.ReviewReturnRequest{Feedback: "<p></p>"})
	require.ErrorIs(t, err, ErrValidation)

	response, err := fixture.service.Return(context.Background(), assignment.ID, consultantActor, dto.ReviewReturnRequest{Feedback: "Please revise section two."})
	require.NoError(t, err)
	require.Equal(t, models.StatusReturned, response.Status)
	require.True(t, response.CanEditDraft, "returned assignments are editable again")
	require.Len(t, response.ConsultantFeedback, 1)
}

func TestLifecycleRejectIsTerminal(t *testing.T) {
	fixture := newLifecycleFixture(t)
	assignment := submitFixtureAssignment(t, fixture, nil)

	response, err := fixture.service.Reject(context.Background(), assignment.ID, consultantActor, dto.ReviewRejectRequest{Feedback: "Not acceptable as delivered."})
	require.NoError(t, err)
	require.Equal(t, models.StatusRejected, response.Status)
	require.False(t, response.CanEditDraft)

	_, err = fixture.service.Submit(context.Background(), assignment.ID, clientActor, dto.SubmitRequest{
		Answers: fullAnswers(),
		Notes:   validNotes,
	}, nil)
	require.ErrorIs(t, err, ErrConflict)
}

func TestLifecycleTransitionsReachNotifier(t *testing.T) {
	fixture := newLifecycleFixture(t)
	assignment := fixture.seedAssignment(t, models.StatusPending, nil)

	_, err := fixture.service.Start(context.Background(), assignment.ID, clientActor)
	require.NoError(t, err)
	_, err = fixture.service.Submit(context.Background(), assignment.ID, clientActor, dto.SubmitRequest{
		Answers: fullAnswers(),
		Notes:   validNotes,
	}, nil)
	require.NoError(t, err)
	_, err = fixture.service.Return(context.Background(), assignment.ID, consultantActor, dto.ReviewReturnRequest{Feedback: "One more pass please."})
	require.NoError(t, err)

	require.Equal(t, []notifiedTransition{
		{assignment.ID, models.StatusInProgress},
		{assignment.ID, models.StatusSubmitted},
		{assignment.ID, models.StatusReturned},
	}, fixture.notified, "every committed status change is forwarded in-process")
}

func TestLifecycleHistoryAccumulates(t *testing.T) {
	fixture := newLifecycleFixture(t)
	assignment := fixture.seedAssignment(t, models.StatusPending, nil)

	_, err := fixture.service.Start(context.Background(), assignment.ID, clientActor)
	require.NoError(t, err)
	_, err = fixture.service.Submit(context.Background(), assignment.ID, clientActor, dto.SubmitRequest{
		Answers: fullAnswers(),
		Notes:   validNotes,
	}, nil)
	require.NoError(t, err)
	_, err = fixture.service.Return(context.Background(), assignment.ID, consultantActor, dto.ReviewReturnRequest{Feedback: "One more pass please."})
	require.NoError(t, err)

	history, err := fixture.service.History(context.Background(), assignment.ID, clientActor)
	require.NoError(t, err)
	require.Len(t, history, 3)
	require.Equal(t, models.RevisionActionReturned, history[0].Action)
	require.Equal(t, models.RevisionActionStarted, history[2].Action)
}

func TestLifecycleAssign(t *testing.T) {
	fixture := newLifecycleFixture(t)
	exercise := models.Exercise{Title: "Savings plan", CreatedBy: consultantActor.ID}
	require.NoError(t, fixture.exercises.Create(context.Background(), &exercise))

	_, err := fixture.service.Assign(context.Background(), clientActor, dto.AssignmentCreateRequest{ExerciseID: exercise.ID, ClientID: clientActor.ID})
	require.ErrorIs(t, err, ErrForbidden)

	response, err := fixture.service.Assign(context.Background(), consultantActor, dto.AssignmentCreateRequest{
		ExerciseID: exercise.ID,
		ClientID:   clientActor.ID,
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, response.Status)
	require.Equal(t, consultantActor.ID, response.ConsultantID)

	_, err = fixture.service.Assign(context.Background(), consultantActor, dto.AssignmentCreateRequest{ExerciseID: 999, ClientID: clientActor.ID})
	require.ErrorIs(t, err, ErrExerciseNotFound)
}

func TestLifecycleStartWaitsForRealClock(t *testing.T) {
	fixture := newLifecycleFixture(t)
	assignment := fixture.seedAssignment(t, models.StatusPending, nil)

	before := time.Now()
	response, err := fixture.service.Start(context.Background(), assignment.ID, clientActor)
	require.NoError(t, err)
	require.NotNil(t, response.StartedAt)
	require.False(t, response.StartedAt.Before(before))
}
