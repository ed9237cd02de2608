package entity

import (
	"time"

	"github.com/google/uuid"
)

type SearchHistory struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Query     string    `gorm:"size:100;not null" json:"query"`
	Type      string    `gorm:"size:10;not null" json:"type"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
