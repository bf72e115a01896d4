package models

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityLog captures auditable platform events (assignment transitions,
// submissions, reviews, exercise authoring) triggered by clients and
// consultants. Rows are append-only; there is no update or delete path.
type ActivityLog struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	ActorID    uint              `gorm:"not null;index:idx_activity_actor" json:"actor_id"`
	ActorRole  string            `gorm:"size:32;not null" json:"actor_role"`
	Action     string            `gorm:"size:64;not null;index:idx_activity_action" json:"action"`
	EntityType string            `gorm:"size:64;not null" json:"entity_type"`
	EntityID   *uint             `json:"entity_id"`
	Metadata   datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt  time.Time         `gorm:"index" json:"created_at"`
}
