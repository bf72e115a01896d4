package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// LifecycleEvent is published after every status transition for downstream
// consumers (review dashboards, reminder schedulers).
type LifecycleEvent struct {
	AssignmentID   uint      `json:"assignment_id"`
	Action         string    `json:"action"`
	PreviousStatus string    `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	ActorID        uint      `json:"actor_id"`
	ActorRole      string    `json:"actor_role"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// EventPublisher broadcasts lifecycle events. Publishing is best effort: a
// failed publish never fails the transition that produced it.
type EventPublisher interface {
	PublishTransition(ctx context.Context, event LifecycleEvent)
}

// TransitionNotifier is called in-process after every committed status
// change, so open autosave sessions track the new status without waiting
// for a reconnect. A nil notifier is a no-op.
type TransitionNotifier func(assignmentID uint, status string)

type natsEventPublisher struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewNATSEventPublisher constructs a NATS-backed lifecycle event publisher.
func NewNATSEventPublisher(conn *nats.Conn, subject string, logger zerolog.Logger) EventPublisher {
	if subject == "" {
		subject = "percorso.exercise.events"
	}
	return &natsEventPublisher{
		conn:    conn,
		subject: subject,
		logger:  logger.With().Str("component", "event_publisher").Logger(),
	}
}

func (p *natsEventPublisher) PublishTransition(_ context.Context, event LifecycleEvent) {
	if p.conn == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn().Err(err).Msg("failed to encode lifecycle event")
		return
	}

	if err := p.conn.Publish(p.subject, payload); err != nil {
		p.logger.Warn().Err(err).Uint("assignment_id", event.AssignmentID).Msg("failed to publish lifecycle event")
	}
}
