package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/percorso-labs/percorso-api/internal/dto"
	"github.com/percorso-labs/percorso-api/internal/models"
	"github.com/percorso-labs/percorso-api/internal/repository"
)

const recentProgressLimit = 5

// ProgressService produces the aggregated client dashboard.
type ProgressService interface {
	GetProgress(ctx context.Context, clientID uint) (dto.ProgressResponse, error)
}

type progressService struct {
	assignments repository.AssignmentRepository
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// NewProgressService builds the dashboard aggregator.
func NewProgressService(assignments repository.AssignmentRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) ProgressService {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &progressService{
		assignments: assignments,
		cache:       cache,
		cacheTTL:    ttl,
		logger:      logger.With().Str("component", "progress_service").Logger(),
		now:         time.Now,
	}
}

func (s *progressService) GetProgress(ctx context.Context, clientID uint) (dto.ProgressResponse, error) {
	cacheKey := fmt.Sprintf("progress:client:%d", clientID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.ProgressResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Uint("client_id", clientID).Msg("progress cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read progress cache")
		}
	}

	assignments, _, err := s.assignments.List(ctx, repository.AssignmentFilter{ClientID: &clientID})
	if err != nil {
		return dto.ProgressResponse{}, err
	}

	response := s.buildResponse(assignments)

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store progress cache")
			}
		}
	}

	return response, nil
}

func (s *progressService) buildResponse(assignments []models.Assignment) dto.ProgressResponse {
	now := s.now()
	summary := dto.ProgressSummary{}
	items := make([]dto.AssignmentProgress, 0, len(assignments))

	var scoreTotal float64
	var scoredCount int

	for _, assignment := range assignments {
		summary.TotalAssignments++
		overdue := assignment.IsPastDue(now)
		if overdue {
			summary.Overdue++
		}

		switch assignment.Status {
		case models.StatusPending:
			summary.Pending++
		case models.StatusInProgress:
			summary.InProgress++
		case models.StatusSubmitted:
			summary.AwaitingReview++
		case models.StatusCompleted:
			summary.Completed++
			if assignment.Score != nil {
				scoreTotal += float64(*assignment.Score)
				scoredCount++
			}
		case models.StatusReturned:
			summary.Returned++
		case models.StatusRejected:
			summary.Rejected++
		}

		items = append(items, dto.AssignmentProgress{
			AssignmentID: assignment.ID,
			Title:        assignment.Exercise.Title,
			Status:       assignment.Status,
			IsExam:       assignment.Exercise.IsExam,
			DueDate:      assignment.DueDate,
			Score:        assignment.Score,
			Overdue:      overdue,
			UpdatedAt:    assignment.UpdatedAt,
		})
	}

	if scoredCount > 0 {
		summary.AverageScore = scoreTotal / float64(scoredCount)
	}
	if summary.TotalAssignments > 0 {
		summary.CompletionRate = (float64(summary.Completed) / float64(summary.TotalAssignments)) * 100
	}

	open := make([]dto.AssignmentProgress, 0, len(items))
	for _, item := range items {
		if !models.IsTerminalStatus(item.Status) {
			open = append(open, item)
		}
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].UpdatedAt.After(items[j].UpdatedAt)
	})
	recent := items
	if len(recent) > recentProgressLimit {
		recent = recent[:recentProgressLimit]
	}

	return dto.ProgressResponse{
		Summary:     summary,
		Open:        open,
		Recent:      recent,
		GeneratedAt: now,
	}
}
