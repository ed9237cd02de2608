package entity

import (
	"bytes"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation between exactly two users. The pair is stored in canonical order so the
// unique index rejects a second conversation for the same two users.
type Conversation struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ParticipantA        uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_conversation_pair,priority:1" json:"participant_a"`
	ParticipantB        uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_conversation_pair,priority:2" json:"participant_b"`
	LastMessage         string     `gorm:"type:text" json:"last_message"`
	LastMessageAt       *time.Time `gorm:"index" json:"last_message_at,omitempty"`
	LastMessageSenderID *uuid.UUID `gorm:"type:uuid" json:"last_message_sender_id,omitempty"`
	IsActive            bool       `gorm:"not null" json:"is_active"`
	CreatedAt           time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Other returns the participant that is not userID.
func (c *Conversation) Other(userID uuid.UUID) uuid.UUID {
	if c.ParticipantA == userID {
		return c.ParticipantB
	}
	return c.ParticipantA
}

func (c *Conversation) HasParticipant(userID uuid.UUID) bool {
	return c.ParticipantA == userID || c.ParticipantB == userID
}

// CanonicalPair orders two user ids so that (a, b) and (b, a) map to the same key.
func CanonicalPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if bytes.Compare(a[:], b[:]) > 0 {
		return b, a
	}
	return a, b
}

// ConversationParticipant holds one participant's unread counter.
type ConversationParticipant struct {
	ConversationID uuid.UUID     `gorm:"type:uuid;primaryKey" json:"conversation_id"`
	UserID         uuid.UUID     `gorm:"type:uuid;primaryKey;index" json:"user_id"`
	UnreadCount    int64         `gorm:"not null" json:"unread_count"`
	Conversation   *Conversation `gorm:"foreignKey:ConversationID" json:"-"`
}

type MessageType string

const (
	MessageText   MessageType = "text"
	MessageImage  MessageType = "image"
	MessagePost   MessageType = "post"
	MessageSystem MessageType = "system"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageImage, MessagePost, MessageSystem:
		return true
	}
	return false
}

type Message struct {
	ID             uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID uuid.UUID   `gorm:"type:uuid;not null;index:idx_messages_conversation_created,priority:1" json:"conversation_id"`
	SenderID       uuid.UUID   `gorm:"type:uuid;not null" json:"sender_id"`
	ReceiverID     uuid.UUID   `gorm:"type:uuid;not null;index" json:"receiver_id"`
	Content        string      `gorm:"type:text;not null" json:"content"`
	Type           MessageType `gorm:"size:10;not null" json:"type"`
	IsRead         bool        `gorm:"not null" json:"is_read"`
	IsDelivered    bool        `gorm:"not null" json:"is_delivered"`
	CreatedAt      time.Time   `gorm:"autoCreateTime;index:idx_messages_conversation_created,priority:2" json:"created_at"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
