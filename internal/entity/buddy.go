package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BuddyRelationship is a directed follower -> following edge. A request is a single active
// edge; an accepted pair has both directions active and mutual. Edges are deactivated,
// never deleted.
type BuddyRelationship struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FollowerID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_buddy_edge,priority:1" json:"follower_id"`
	FollowingID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_buddy_edge,priority:2;index" json:"following_id"`
	IsActive    bool      `gorm:"not null" json:"is_active"`
	IsMutual    bool      `gorm:"not null" json:"is_mutual"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Follower  *User `gorm:"foreignKey:FollowerID" json:"-"`
	Following *User `gorm:"foreignKey:FollowingID" json:"-"`
}

func (b *BuddyRelationship) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
