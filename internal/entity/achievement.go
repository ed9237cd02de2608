package entity

import (
	"time"

	"github.com/google/uuid"
)

// UserAchievement is a user's progress toward one catalog achievement.
type UserAchievement struct {
	UserID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"user_id"`
	AchievementID string     `gorm:"size:50;primaryKey" json:"achievement_id"`
	Progress      int64      `gorm:"not null" json:"progress"`
	IsCompleted   bool       `gorm:"not null" json:"is_completed"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
