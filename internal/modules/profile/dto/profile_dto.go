package dto

import (
	"time"

	statDto "locki.app/backend/internal/modules/stat/dto"

	"github.com/google/uuid"
)

// UpdateProfileInput carries optional changes; nil fields are left alone.
type UpdateProfileInput struct {
	DisplayName     *string `json:"display_name" form:"display_name" binding:"omitempty,max=50"`
	Bio             *string `json:"bio" form:"bio" binding:"omitempty,max=500"`
	Profession      *string `json:"profession" form:"profession" binding:"omitempty,max=100"`
	IsProfilePublic *bool   `json:"is_profile_public" form:"is_profile_public"`
	AllowsMessages  *bool   `json:"allows_messages" form:"allows_messages"`
}

type UpdateSettingsInput struct {
	LikeNotifications         *bool   `json:"like_notifications"`
	CommentNotifications      *bool   `json:"comment_notifications"`
	BuddyRequestNotifications *bool   `json:"buddy_request_notifications"`
	MessageNotifications      *bool   `json:"message_notifications"`
	AchievementNotifications  *bool   `json:"achievement_notifications"`
	ReminderNotifications     *bool   `json:"reminder_notifications"`
	ProfileVisibility         *string `json:"profile_visibility" binding:"omitempty,oneof=public buddies private"`
	ShowOnlineStatus          *bool   `json:"show_online_status"`
	AllowTagging              *bool   `json:"allow_tagging"`
	Theme                     *string `json:"theme" binding:"omitempty,oneof=light dark system"`
	Language                  *string `json:"language" binding:"omitempty,min=2,max=10"`
	Timezone                  *string `json:"timezone" binding:"omitempty,max=50"`
}

type ProfileResponse struct {
	ID              uuid.UUID                  `json:"id"`
	Username        string                     `json:"username"`
	DisplayName     string                     `json:"display_name"`
	Bio             string                     `json:"bio"`
	Profession      string                     `json:"profession"`
	AvatarURL       *string                    `json:"avatar_url,omitempty"`
	IsVerified      bool                       `json:"is_verified"`
	IsProfilePublic bool                       `json:"is_profile_public"`
	AllowsMessages  bool                       `json:"allows_messages"`
	JoinDate        time.Time                  `json:"join_date"`
	LastActiveDate  *time.Time                 `json:"last_active_date,omitempty"`
	Email           string                     `json:"email,omitempty"`
	Stats           *statDto.UserStatsResponse `json:"stats,omitempty"`
}
