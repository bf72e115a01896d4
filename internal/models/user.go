package models

import "time"

// Platform roles.
const (
	RoleClient     = "client"
	RoleConsultant = "consultant"
)

// User represents a platform account: a client working on assignments or a
// consultant authoring and reviewing them.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Role      string    `gorm:"size:32;not null;default:client" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsConsultant reports whether the user may author and review exercises.
func (u User) IsConsultant() bool {
	return u.Role == RoleConsultant
}
