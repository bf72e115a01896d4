package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/percorso-labs/percorso-api/internal/dto"
	"github.com/percorso-labs/percorso-api/internal/models"
	"github.com/percorso-labs/percorso-api/internal/repository"
)

// SessionState is the recovered working state handed to an editing session
// when it opens: the best available answers and notes plus the assignment
// status that gates persistence.
type SessionState struct {
	Answers models.AnswerMap
	Notes   string
	Status  string
}

// DraftService persists and recovers the live working copy of an assignment.
// A draft is a submission row without a submitted_at timestamp; there is at
// most one per assignment.
type DraftService interface {
	Save(ctx context.Context, assignmentID uint, actor Actor, payload dto.DraftSaveRequest) (dto.DraftResponse, error)
	Get(ctx context.Context, assignmentID uint, actor Actor) (dto.DraftResponse, error)
	LoadSession(ctx context.Context, assignmentID uint, actor Actor) (SessionState, error)
}

type draftService struct {
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	cache       *redis.Client
	ttl         time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// NewDraftService constructs the draft persistence service.
func NewDraftService(
	assignments repository.AssignmentRepository,
	submissions repository.SubmissionRepository,
	cache *redis.Client,
	ttl time.Duration,
	logger zerolog.Logger,
) DraftService {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &draftService{
		assignments: assignments,
		submissions: submissions,
		cache:       cache,
		ttl:         ttl,
		logger:      logger.With().Str("component", "draft_service").Logger(),
		now:         time.Now,
	}
}

func (s *draftService) Save(ctx context.Context, assignmentID uint, actor Actor, payload dto.DraftSaveRequest) (dto.DraftResponse, error) {
	assignment, err := s.ownedAssignment(ctx, assignmentID, actor)
	if err != nil {
		return dto.DraftResponse{}, err
	}
	if !models.CanEditDraft(assignment.Status) {
		return dto.DraftResponse{}, ErrDraftNotEditable
	}

	draft := models.Submission{AssignmentID: assignmentID}
	draft.SetAnswers(payload.Answers)
	draft.Notes = strings.TrimSpace(payload.Notes)

	if err := s.submissions.SaveDraft(ctx, &draft); err != nil {
		s.logger.Error().Err(err).Uint("assignment_id", assignmentID).Msg("failed to persist draft")
		return dto.DraftResponse{}, err
	}

	s.invalidateCache(ctx, assignmentID)
	s.logger.Debug().Uint("assignment_id", assignmentID).Int("answers", len(payload.Answers)).Msg("draft saved")

	return dto.NewDraftResponse(draft), nil
}

func (s *draftService) Get(ctx context.Context, assignmentID uint, actor Actor) (dto.DraftResponse, error) {
	if _, err := s.ownedAssignment(ctx, assignmentID, actor); err != nil {
		return dto.DraftResponse{}, err
	}

	if cached, ok := s.fetchCache(ctx, assignmentID); ok {
		return cached, nil
	}

	draft, err := s.submissions.GetDraft(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.DraftResponse{}, ErrDraftNotFound
		}
		return dto.DraftResponse{}, err
	}

	response := dto.NewDraftResponse(draft)
	s.writeCache(ctx, assignmentID, response)

	return response, nil
}

// LoadSession recovers the working state for a fresh editing session. The
// live draft wins; a returned assignment without one falls back to the last
// finalized submission so the client can revise it; anything else starts
// empty.
func (s *draftService) LoadSession(ctx context.Context, assignmentID uint, actor Actor) (SessionState, error) {
	assignment, err := s.ownedAssignment(ctx, assignmentID, actor)
	if err != nil {
		return SessionState{}, err
	}

	state := SessionState{Answers: models.AnswerMap{}, Status: assignment.Status}

	draft, err := s.submissions.GetDraft(ctx, assignmentID)
	if err == nil {
		state.Answers = draft.AnswerMap()
		state.Notes = draft.Notes
		return state, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return SessionState{}, err
	}

	if assignment.Status == models.StatusReturned {
		submission, err := s.submissions.LatestSubmission(ctx, assignmentID)
		if err == nil {
			state.Answers = submission.AnswerMap()
			state.Notes = submission.Notes
			return state, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return SessionState{}, err
		}
	}

	return state, nil
}

func (s *draftService) ownedAssignment(ctx context.Context, assignmentID uint, actor Actor) (models.Assignment, error) {
	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, ErrAssignmentNotFound
		}
		return models.Assignment{}, err
	}
	if assignment.ClientID != actor.ID {
		return models.Assignment{}, ErrForbidden
	}
	return assignment, nil
}

func (s *draftService) fetchCache(ctx context.Context, assignmentID uint) (dto.DraftResponse, bool) {
	if s.cache == nil {
		return dto.DraftResponse{}, false
	}
	payload, err := s.cache.Get(ctx, draftCacheKey(assignmentID)).Result()
	if err != nil {
		return dto.DraftResponse{}, false
	}

	var response dto.DraftResponse
	if err := json.Unmarshal([]byte(payload), &response); err != nil {
		s.logger.Warn().Err(err).Msg("failed to decode draft cache")
		return dto.DraftResponse{}, false
	}
	return response, true
}

func (s *draftService) writeCache(ctx context.Context, assignmentID uint, response dto.DraftResponse) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(response)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode draft cache")
		return
	}
	if err := s.cache.Set(ctx, draftCacheKey(assignmentID), payload, s.ttl).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to store draft cache")
	}
}

func (s *draftService) invalidateCache(ctx context.Context, assignmentID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, draftCacheKey(assignmentID)).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate draft cache")
	}
}

func draftCacheKey(assignmentID uint) string {
	return fmt.Sprintf("draft:assignment:%d", assignmentID)
}
