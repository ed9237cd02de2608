package dto

import (
	"time"

	"github.com/google/uuid"
)

// Status is the relationship between the caller and another user, seen from the caller.
type Status string

const (
	StatusNone            Status = "none"
	StatusPendingSent     Status = "pending_sent"
	StatusPendingReceived Status = "pending_received"
	StatusBuddies         Status = "buddies"
)

type BuddyRequestInput struct {
	UserID string `json:"user_id" binding:"required,uuid"`
}

type BuddyResponse struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
	Profession  string    `json:"profession"`
}

type PendingRequestResponse struct {
	RequestID   uuid.UUID     `json:"request_id"`
	From        BuddyResponse `json:"from"`
	RequestedAt time.Time     `json:"requested_at"`
}
