package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the profile paired 1:1 with an identity-provider account.
type User struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Username        string     `gorm:"size:30;uniqueIndex;not null" json:"username"`
	Email           string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash    string     `gorm:"size:255" json:"-"`
	FirebaseUID     *string    `gorm:"size:128;uniqueIndex" json:"-"`
	GoogleID        *string    `gorm:"size:100;uniqueIndex" json:"-"`
	DisplayName     string     `gorm:"size:50;not null" json:"display_name"`
	Bio             string     `gorm:"type:text" json:"bio"`
	Profession      string     `gorm:"size:100" json:"profession"`
	AvatarURL       *string    `gorm:"type:text" json:"avatar_url,omitempty"`
	IsVerified      bool       `gorm:"not null" json:"is_verified"`
	IsActive        bool       `gorm:"not null;index" json:"is_active"`
	IsProfilePublic bool       `gorm:"not null" json:"is_profile_public"`
	AllowsMessages  bool       `gorm:"not null" json:"allows_messages"`
	JoinDate        time.Time  `gorm:"autoCreateTime" json:"join_date"`
	LastActiveDate  *time.Time `json:"last_active_date,omitempty"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// NewUser returns a profile with the defaults applied at sign-up.
func NewUser(username, email, displayName string) *User {
	if displayName == "" {
		displayName = username
	}
	now := time.Now().UTC()
	return &User{
		Username:        username,
		Email:           email,
		DisplayName:     displayName,
		IsActive:        true,
		IsProfilePublic: true,
		AllowsMessages:  true,
		LastActiveDate:  &now,
	}
}

type ProfileVisibility string

const (
	ProfileVisibilityPublic  ProfileVisibility = "public"
	ProfileVisibilityBuddies ProfileVisibility = "buddies"
	ProfileVisibilityPrivate ProfileVisibility = "private"
)

// UserSettings holds per-user preferences, created together with the profile.
type UserSettings struct {
	UserID uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`

	LikeNotifications         bool `gorm:"not null" json:"like_notifications"`
	CommentNotifications      bool `gorm:"not null" json:"comment_notifications"`
	BuddyRequestNotifications bool `gorm:"not null" json:"buddy_request_notifications"`
	MessageNotifications      bool `gorm:"not null" json:"message_notifications"`
	AchievementNotifications  bool `gorm:"not null" json:"achievement_notifications"`
	ReminderNotifications     bool `gorm:"not null" json:"reminder_notifications"`

	ProfileVisibility ProfileVisibility `gorm:"size:20;not null" json:"profile_visibility"`
	ShowOnlineStatus  bool              `gorm:"not null" json:"show_online_status"`
	AllowTagging      bool              `gorm:"not null" json:"allow_tagging"`

	Theme    string `gorm:"size:20;not null" json:"theme"`
	Language string `gorm:"size:10;not null" json:"language"`
	Timezone string `gorm:"size:50;not null" json:"timezone"`

	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func DefaultSettings(userID uuid.UUID) *UserSettings {
	return &UserSettings{
		UserID:                    userID,
		LikeNotifications:         true,
		CommentNotifications:      true,
		BuddyRequestNotifications: true,
		MessageNotifications:      true,
		AchievementNotifications:  true,
		ReminderNotifications:     true,
		ProfileVisibility:         ProfileVisibilityPublic,
		ShowOnlineStatus:          true,
		AllowTagging:              true,
		Theme:                     "system",
		Language:                  "en",
		Timezone:                  "UTC",
	}
}
