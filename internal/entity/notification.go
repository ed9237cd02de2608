package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationLike         NotificationType = "like"
	NotificationComment      NotificationType = "comment"
	NotificationFollow       NotificationType = "follow"
	NotificationBuddyRequest NotificationType = "buddy_request"
	NotificationMessage      NotificationType = "message"
	NotificationAchievement  NotificationType = "achievement"
	NotificationReminder     NotificationType = "reminder"
	NotificationSystem       NotificationType = "system"
	NotificationPost         NotificationType = "post"
)

type Notification struct {
	ID              uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID        `gorm:"type:uuid;not null;index:idx_notifications_user_read,priority:1" json:"user_id"`
	Title           string           `gorm:"size:100;not null" json:"title"`
	Message         string           `gorm:"type:text;not null" json:"message"`
	Type            NotificationType `gorm:"size:20;not null" json:"type"`
	RelatedUserID   *uuid.UUID       `gorm:"type:uuid" json:"related_user_id,omitempty"`
	RelatedUsername string           `gorm:"size:30" json:"related_username,omitempty"`
	RelatedPostID   *uuid.UUID       `gorm:"type:uuid" json:"related_post_id,omitempty"`
	ActionData      string           `gorm:"size:100" json:"action_data,omitempty"`
	IsRead          bool             `gorm:"not null;index:idx_notifications_user_read,priority:2" json:"is_read"`
	CreatedAt       time.Time        `gorm:"autoCreateTime" json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
