package repository

import (
	"context"
	"time"

	"locki.app/backend/internal/entity"
	"locki.app/backend/pkg/apperror"
	"locki.app/backend/pkg/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ConversationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Conversation, error)
	// GetOrCreate returns the conversation for the canonical pair (a, b), creating or
	// reactivating it. Concurrent callers converge on one row.
	GetOrCreate(ctx context.Context, a, b uuid.UUID) (*entity.Conversation, error)
	// AppendMessage stores msg, refreshes the last message snapshot and bumps the
	// receiver's unread counter in one transaction.
	AppendMessage(ctx context.Context, msg *entity.Message) error
	// MarkRead flips every unread message addressed to readerID and zeroes the reader's
	// unread counter. It returns the number of messages flipped.
	MarkRead(ctx context.Context, conversationID, readerID uuid.UUID) (int64, error)
	GetForUser(ctx context.Context, userID uuid.UUID, limit int) ([]entity.ConversationParticipant, error)
	GetMessages(ctx context.Context, conversationID uuid.UUID, before *time.Time, limit int) ([]entity.Message, error)
	UnreadCount(ctx context.Context, conversationID, userID uuid.UUID) (int64, error)
}

type conversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Conversation, error) {
	var conv entity.Conversation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&conv).Error; err != nil {
		return nil, database.MapError(err)
	}
	return &conv, nil
}

func (r *conversationRepository) GetOrCreate(ctx context.Context, a, b uuid.UUID) (*entity.Conversation, error) {
	first, second := entity.CanonicalPair(a, b)

	var conv entity.Conversation
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		candidate := entity.Conversation{ParticipantA: first, ParticipantB: second, IsActive: true}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "participant_a"}, {Name: "participant_b"}},
			DoNothing: true,
		}).Create(&candidate).Error
		if err != nil {
			return err
		}

		if err := tx.Where("participant_a = ? AND participant_b = ?", first, second).First(&conv).Error; err != nil {
			return err
		}
		if !conv.IsActive {
			if err := tx.Model(&conv).Update("is_active", true).Error; err != nil {
				return err
			}
			conv.IsActive = true
		}

		participants := []entity.ConversationParticipant{
			{ConversationID: conv.ID, UserID: first},
			{ConversationID: conv.ID, UserID: second},
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&participants).Error
	})
	if err != nil {
		return nil, database.MapError(err)
	}
	return &conv, nil
}

func (r *conversationRepository) AppendMessage(ctx context.Context, msg *entity.Message) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}

		result := tx.Model(&entity.Conversation{}).
			Where("id = ? AND is_active = ?", msg.ConversationID, true).
			Updates(map[string]interface{}{
				"last_message":           msg.Content,
				"last_message_at":        msg.CreatedAt,
				"last_message_sender_id": msg.SenderID,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperror.Wrap(apperror.ErrNotFound, "conversation not found")
		}

		return tx.Model(&entity.ConversationParticipant{}).
			Where("conversation_id = ? AND user_id = ?", msg.ConversationID, msg.ReceiverID).
			UpdateColumn("unread_count", database.IncrementExpr("unread_count", 1)).Error
	})
	return database.MapError(err)
}

func (r *conversationRepository) MarkRead(ctx context.Context, conversationID, readerID uuid.UUID) (int64, error) {
	var flipped int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&entity.Message{}).
			Where("conversation_id = ? AND receiver_id = ? AND is_read = ?", conversationID, readerID, false).
			Update("is_read", true)
		if result.Error != nil {
			return result.Error
		}
		flipped = result.RowsAffected

		return tx.Model(&entity.ConversationParticipant{}).
			Where("conversation_id = ? AND user_id = ?", conversationID, readerID).
			UpdateColumn("unread_count", 0).Error
	})
	return flipped, database.MapError(err)
}

func (r *conversationRepository) GetForUser(ctx context.Context, userID uuid.UUID, limit int) ([]entity.ConversationParticipant, error) {
	var rows []entity.ConversationParticipant
	err := r.db.WithContext(ctx).
		Preload("Conversation").
		Joins("JOIN conversations ON conversations.id = conversation_participants.conversation_id AND conversations.is_active = ?", true).
		Where("conversation_participants.user_id = ?", userID).
		Order("COALESCE(conversations.last_message_at, conversations.created_at) DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, database.MapError(err)
}

func (r *conversationRepository) GetMessages(ctx context.Context, conversationID uuid.UUID, before *time.Time, limit int) ([]entity.Message, error) {
	query := r.db.WithContext(ctx).Where("conversation_id = ?", conversationID)
	if before != nil {
		query = query.Where("created_at < ?", *before)
	}

	var messages []entity.Message
	err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&messages).Error
	return messages, database.MapError(err)
}

func (r *conversationRepository) UnreadCount(ctx context.Context, conversationID, userID uuid.UUID) (int64, error) {
	var row entity.ConversationParticipant
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		First(&row).Error
	if err != nil {
		return 0, database.MapError(err)
	}
	return row.UnreadCount, nil
}
