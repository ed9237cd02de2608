package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Visibility string

const (
	VisibilityPublic      Visibility = "public"
	VisibilityBuddiesOnly Visibility = "buddies_only"
	VisibilityPrivate     Visibility = "private"
)

func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityBuddiesOnly, VisibilityPrivate:
		return true
	}
	return false
}

// Post is a logged work session. Posts are never physically deleted.
type Post struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID  `gorm:"type:uuid;not null;index:idx_posts_author_created,priority:1" json:"user_id"`
	User         User       `gorm:"foreignKey:UserID" json:"-"`
	Title        string     `gorm:"size:100;not null" json:"title"`
	Description  string     `gorm:"type:text" json:"description"`
	Hours        int        `gorm:"not null" json:"hours"`
	Minutes      int        `gorm:"not null" json:"minutes"`
	ImageURL     *string    `gorm:"type:text" json:"image_url,omitempty"`
	Tags         string     `gorm:"type:text" json:"-"`
	Visibility   Visibility `gorm:"size:20;not null;index" json:"visibility"`
	LikeCount    int64      `gorm:"not null" json:"like_count"`
	CommentCount int64      `gorm:"not null" json:"comment_count"`
	ShareCount   int64      `gorm:"not null" json:"share_count"`
	IsActive     bool       `gorm:"not null;index" json:"is_active"`
	CreatedAt    time.Time  `gorm:"autoCreateTime;index:idx_posts_author_created,priority:2" json:"created_at"`
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// DurationMinutes is the logged work in minutes.
func (p *Post) DurationMinutes() int64 {
	return int64(p.Hours)*60 + int64(p.Minutes)
}

// PostLike exists iff the user currently likes the post; (post, user) is unique.
type PostLike struct {
	PostID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"post_id"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"user_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type PostComment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PostID    uuid.UUID `gorm:"type:uuid;not null;index" json:"post_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	LikeCount int64     `gorm:"not null" json:"like_count"`
	IsActive  bool      `gorm:"not null" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (c *PostComment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
