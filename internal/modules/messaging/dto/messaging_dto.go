package dto

import (
	"time"

	commonDto "locki.app/backend/pkg/dto"

	"github.com/google/uuid"
)

type StartConversationRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
}

type SendMessageRequest struct {
	Content string `json:"content" binding:"required,max=2000"`
	Type    string `json:"type" binding:"omitempty,oneof=text image post system"`
}

type ConversationResponse struct {
	ID                  uuid.UUID                `json:"id"`
	Participant         commonDto.AuthorResponse `json:"participant"`
	LastMessage         string                   `json:"last_message"`
	LastMessageAt       *time.Time               `json:"last_message_at,omitempty"`
	LastMessageSenderID *uuid.UUID               `json:"last_message_sender_id,omitempty"`
	UnreadCount         int64                    `json:"unread_count"`
}

// MessageResponse is also the payload published on a conversation stream.
type MessageResponse struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	SenderID       uuid.UUID `json:"sender_id"`
	ReceiverID     uuid.UUID `json:"receiver_id"`
	Content        string    `json:"content"`
	Type           string    `json:"type"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

type MessageFilter struct {
	Limit  int        `form:"limit"`
	Before *time.Time `form:"before" time_format:"2006-01-02T15:04:05Z07:00"`
}
