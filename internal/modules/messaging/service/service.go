package service

import (
	"context"
	"strings"
	"time"

	"locki.app/backend/internal/entity"
	userRepo "locki.app/backend/internal/modules/identity/repository"
	"locki.app/backend/internal/modules/messaging/dto"
	"locki.app/backend/internal/modules/messaging/repository"
	notifService "locki.app/backend/internal/modules/notification/service"
	post "locki.app/backend/internal/modules/post/service"
	"locki.app/backend/pkg/apperror"
	"locki.app/backend/pkg/logger"
	"locki.app/backend/pkg/metrics"
	"locki.app/backend/pkg/pubsub"

	"github.com/google/uuid"
)

const (
	defaultConversationsLimit = 50
	defaultMessagesLimit      = 50
	maxMessagesLimit          = 100
	streamKind                = "conversation"
)

type MessagingService interface {
	// GetOrCreateConversation returns the single conversation between actorID and otherID.
	GetOrCreateConversation(ctx context.Context, actorID, otherID uuid.UUID) (*entity.Conversation, error)
	SendMessage(ctx context.Context, conversationID, senderID uuid.UUID, content string, msgType entity.MessageType) (*dto.MessageResponse, error)
	MarkRead(ctx context.Context, conversationID, readerID uuid.UUID) error
	GetConversations(ctx context.Context, userID uuid.UUID) ([]dto.ConversationResponse, error)
	// GetMessages returns one page, oldest first, of messages older than filter.Before.
	GetMessages(ctx context.Context, conversationID, readerID uuid.UUID, filter dto.MessageFilter) ([]dto.MessageResponse, error)
	UnreadCount(ctx context.Context, conversationID, userID uuid.UUID) (int64, error)
	Subscribe(ctx context.Context, conversationID, userID uuid.UUID) (*pubsub.Subscription, error)
}

type messagingService struct {
	repo     repository.ConversationRepository
	userRepo userRepo.UserRepository
	notifier notifService.Notifier
	broker   *pubsub.Broker
	now      func() time.Time
}

func NewMessagingService(
	repo repository.ConversationRepository,
	userRepo userRepo.UserRepository,
	notifier notifService.Notifier,
	broker *pubsub.Broker,
) MessagingService {
	return &messagingService{
		repo:     repo,
		userRepo: userRepo,
		notifier: notifier,
		broker:   broker,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *messagingService) GetOrCreateConversation(ctx context.Context, actorID, otherID uuid.UUID) (conv *entity.Conversation, err error) {
	defer func() { metrics.RecordOperation("conversation_open", apperror.Kind(err)) }()

	if actorID == otherID {
		return nil, apperror.Wrap(apperror.ErrInvalidInput, "cannot start a conversation with yourself")
	}

	other, err := s.userRepo.FindByID(ctx, otherID)
	if err != nil {
		return nil, err
	}
	if !other.IsActive {
		return nil, apperror.Wrap(apperror.ErrNotFound, "user not found")
	}
	if !other.AllowsMessages {
		return nil, apperror.Wrap(apperror.ErrPermissionDenied, "this user does not accept messages")
	}

	return s.repo.GetOrCreate(ctx, actorID, otherID)
}

// participantConversation loads the conversation and checks that userID belongs to it.
func (s *messagingService) participantConversation(ctx context.Context, conversationID, userID uuid.UUID) (*entity.Conversation, error) {
	conv, err := s.repo.FindByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, apperror.Wrap(apperror.ErrPermissionDenied, "not a participant of this conversation")
	}
	if !conv.IsActive {
		return nil, apperror.Wrap(apperror.ErrNotFound, "conversation not found")
	}
	return conv, nil
}

func (s *messagingService) SendMessage(ctx context.Context, conversationID, senderID uuid.UUID, content string, msgType entity.MessageType) (resp *dto.MessageResponse, err error) {
	defer func() { metrics.RecordOperation("message_send", apperror.Kind(err)) }()

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.Wrap(apperror.ErrInvalidInput, "message cannot be empty")
	}
	if msgType == "" {
		msgType = entity.MessageText
	}
	if !msgType.Valid() {
		return nil, apperror.Wrapf(apperror.ErrInvalidInput, "unknown message type %q", msgType)
	}

	conv, err := s.participantConversation(ctx, conversationID, senderID)
	if err != nil {
		return nil, err
	}
	sender, err := s.userRepo.FindByID(ctx, senderID)
	if err != nil {
		return nil, err
	}

	msg := &entity.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		ReceiverID:     conv.Other(senderID),
		Content:        content,
		Type:           msgType,
		CreatedAt:      s.now(),
	}
	if err := s.repo.AppendMessage(ctx, msg); err != nil {
		return nil, err
	}

	out := toMessageResponse(msg)
	if s.notifier != nil {
		s.notifier.Emit(ctx, notifService.MessageEvent(sender, msg.ReceiverID, conv.ID, content))
	}
	if err := s.broker.Publish(ctx, pubsub.ConversationChannel(conv.ID.String()), out); err != nil {
		logger.Warn().Err(err).Str("conversation_id", conv.ID.String()).Msg("failed to publish message")
	}

	return &out, nil
}

func (s *messagingService) MarkRead(ctx context.Context, conversationID, readerID uuid.UUID) (err error) {
	defer func() { metrics.RecordOperation("message_read", apperror.Kind(err)) }()

	if _, err := s.participantConversation(ctx, conversationID, readerID); err != nil {
		return err
	}
	_, err = s.repo.MarkRead(ctx, conversationID, readerID)
	return err
}

func (s *messagingService) GetConversations(ctx context.Context, userID uuid.UUID) ([]dto.ConversationResponse, error) {
	rows, err := s.repo.GetForUser(ctx, userID, defaultConversationsLimit)
	if err != nil {
		return nil, err
	}

	otherIDs := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		if row.Conversation != nil {
			otherIDs = append(otherIDs, row.Conversation.Other(userID))
		}
	}
	users, err := s.userRepo.FindByIDs(ctx, otherIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*entity.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}

	out := make([]dto.ConversationResponse, 0, len(rows))
	for _, row := range rows {
		conv := row.Conversation
		if conv == nil {
			continue
		}
		out = append(out, dto.ConversationResponse{
			ID:                  conv.ID,
			Participant:         post.NewAuthor(byID[conv.Other(userID)]),
			LastMessage:         conv.LastMessage,
			LastMessageAt:       conv.LastMessageAt,
			LastMessageSenderID: conv.LastMessageSenderID,
			UnreadCount:         row.UnreadCount,
		})
	}
	return out, nil
}

func (s *messagingService) GetMessages(ctx context.Context, conversationID, readerID uuid.UUID, filter dto.MessageFilter) ([]dto.MessageResponse, error) {
	if _, err := s.participantConversation(ctx, conversationID, readerID); err != nil {
		return nil, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultMessagesLimit
	}
	if limit > maxMessagesLimit {
		limit = maxMessagesLimit
	}

	messages, err := s.repo.GetMessages(ctx, conversationID, filter.Before, limit)
	if err != nil {
		return nil, err
	}

	out := make([]dto.MessageResponse, len(messages))
	for i := range messages {
		out[len(messages)-1-i] = toMessageResponse(&messages[i])
	}
	return out, nil
}

func (s *messagingService) UnreadCount(ctx context.Context, conversationID, userID uuid.UUID) (int64, error) {
	if _, err := s.participantConversation(ctx, conversationID, userID); err != nil {
		return 0, err
	}
	return s.repo.UnreadCount(ctx, conversationID, userID)
}

func (s *messagingService) Subscribe(ctx context.Context, conversationID, userID uuid.UUID) (*pubsub.Subscription, error) {
	if _, err := s.participantConversation(ctx, conversationID, userID); err != nil {
		return nil, err
	}

	sub, err := s.broker.Subscribe(ctx, streamKind, pubsub.ConversationChannel(conversationID.String()))
	if err != nil {
		return nil, apperror.Wrap(apperror.ErrNetwork, err.Error())
	}
	return sub, nil
}

func toMessageResponse(m *entity.Message) dto.MessageResponse {
	return dto.MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		ReceiverID:     m.ReceiverID,
		Content:        m.Content,
		Type:           string(m.Type),
		IsRead:         m.IsRead,
		CreatedAt:      m.CreatedAt,
	}
}
