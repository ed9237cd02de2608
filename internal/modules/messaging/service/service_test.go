package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"locki.app/backend/internal/entity"
	userRepo "locki.app/backend/internal/modules/identity/repository"
	"locki.app/backend/internal/modules/messaging/dto"
	"locki.app/backend/internal/modules/messaging/repository"
	notifService "locki.app/backend/internal/modules/notification/service"
	"locki.app/backend/internal/testutil"
	"locki.app/backend/pkg/apperror"
	"locki.app/backend/pkg/pubsub"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recorder struct {
	mu     sync.Mutex
	events []notifService.Event
}

func (r *recorder) Emit(_ context.Context, event notifService.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

type fixture struct {
	db  *gorm.DB
	svc *messagingService
	rec *recorder
	x   *entity.User
	y   *entity.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	rdb, _ := testutil.NewRedis(t)
	rec := &recorder{}
	svc := NewMessagingService(
		repository.NewConversationRepository(db),
		userRepo.NewUserRepository(db),
		rec,
		pubsub.NewBroker(rdb),
	).(*messagingService)

	return &fixture{
		db:  db,
		svc: svc,
		rec: rec,
		x:   testutil.CreateUser(t, db, "xena"),
		y:   testutil.CreateUser(t, db, "yuri"),
	}
}

func TestSendAndMarkRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conv, err := f.svc.GetOrCreateConversation(ctx, f.x.ID, f.y.ID)
	require.NoError(t, err)

	msg, err := f.svc.SendMessage(ctx, conv.ID, f.x.ID, "hi", "")
	require.NoError(t, err)
	assert.Equal(t, f.y.ID, msg.ReceiverID)
	assert.Equal(t, string(entity.MessageText), msg.Type)

	unread, err := f.svc.UnreadCount(ctx, conv.ID, f.y.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)
	unread, err = f.svc.UnreadCount(ctx, conv.ID, f.x.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), unread)

	require.Len(t, f.rec.events, 1)
	assert.Equal(t, notifService.EventMessage, f.rec.events[0].Kind)
	assert.Equal(t, f.y.ID, f.rec.events[0].Recipient)
	assert.Equal(t, conv.ID.String(), f.rec.events[0].ActionData)

	require.NoError(t, f.svc.MarkRead(ctx, conv.ID, f.y.ID))

	unread, err = f.svc.UnreadCount(ctx, conv.ID, f.y.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), unread)

	var stored entity.Message
	require.NoError(t, f.db.First(&stored, "id = ?", msg.ID).Error)
	assert.True(t, stored.IsRead)
}

func TestGetOrCreateConversationIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.GetOrCreateConversation(ctx, f.x.ID, f.y.ID)
	require.NoError(t, err)
	second, err := f.svc.GetOrCreateConversation(ctx, f.y.ID, f.x.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conv, err := f.svc.GetOrCreateConversation(ctx, f.x.ID, f.y.ID)
			if assert.NoError(t, err) {
				assert.Equal(t, first.ID, conv.ID)
			}
		}()
	}
	wg.Wait()

	var count int64
	require.NoError(t, f.db.Model(&entity.Conversation{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	require.NoError(t, f.db.Model(&entity.ConversationParticipant{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestGetOrCreateConversationErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.GetOrCreateConversation(ctx, f.x.ID, f.x.ID)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = f.svc.GetOrCreateConversation(ctx, f.x.ID, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	require.NoError(t, f.db.Model(f.y).Update("allows_messages", false).Error)
	_, err = f.svc.GetOrCreateConversation(ctx, f.x.ID, f.y.ID)
	assert.ErrorIs(t, err, apperror.ErrPermissionDenied)
}

func TestSendMessageValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	outsider := testutil.CreateUser(t, f.db, "zed")

	conv, err := f.svc.GetOrCreateConversation(ctx, f.x.ID, f.y.ID)
	require.NoError(t, err)

	_, err = f.svc.SendMessage(ctx, conv.ID, f.x.ID, "   ", entity.MessageText)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	_, err = f.svc.SendMessage(ctx, conv.ID, f.x.ID, "hi", "sticker")
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	_, err = f.svc.SendMessage(ctx, conv.ID, outsider.ID, "hi", entity.MessageText)
	assert.ErrorIs(t, err, apperror.ErrPermissionDenied)
	_, err = f.svc.SendMessage(ctx, uuid.New(), f.x.ID, "hi", entity.MessageText)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	assert.Empty(t, f.rec.events)
}

func TestConversationListAndHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	zed := testutil.CreateUser(t, f.db, "zed")
	base := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

	withY, err := f.svc.GetOrCreateConversation(ctx, f.x.ID, f.y.ID)
	require.NoError(t, err)
	withZed, err := f.svc.GetOrCreateConversation(ctx, f.x.ID, zed.ID)
	require.NoError(t, err)

	texts := []string{"one", "two", "three"}
	for i, text := range texts {
		f.svc.now = func() time.Time { return base.Add(time.Duration(i) * time.Minute) }
		_, err := f.svc.SendMessage(ctx, withY.ID, f.y.ID, text, entity.MessageText)
		require.NoError(t, err)
	}
	f.svc.now = func() time.Time { return base.Add(time.Hour) }
	_, err = f.svc.SendMessage(ctx, withZed.ID, zed.ID, "later", entity.MessageText)
	require.NoError(t, err)

	conversations, err := f.svc.GetConversations(ctx, f.x.ID)
	require.NoError(t, err)
	require.Len(t, conversations, 2)
	assert.Equal(t, withZed.ID, conversations[0].ID)
	assert.Equal(t, "zed", conversations[0].Participant.Username)
	assert.Equal(t, withY.ID, conversations[1].ID)
	assert.Equal(t, "three", conversations[1].LastMessage)
	assert.Equal(t, int64(3), conversations[1].UnreadCount)

	page, err := f.svc.GetMessages(ctx, withY.ID, f.x.ID, dto.MessageFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "two", page[0].Content)
	assert.Equal(t, "three", page[1].Content)

	before := page[0].CreatedAt
	older, err := f.svc.GetMessages(ctx, withY.ID, f.x.ID, dto.MessageFilter{Limit: 2, Before: &before})
	require.NoError(t, err)
	require.Len(t, older, 1)
	assert.Equal(t, "one", older[0].Content)

	_, err = f.svc.GetMessages(ctx, withY.ID, zed.ID, dto.MessageFilter{})
	assert.ErrorIs(t, err, apperror.ErrPermissionDenied)
}

func TestSubscribeReceivesMessages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conv, err := f.svc.GetOrCreateConversation(ctx, f.x.ID, f.y.ID)
	require.NoError(t, err)

	sub, err := f.svc.Subscribe(ctx, conv.ID, f.y.ID)
	require.NoError(t, err)
	defer sub.Close()

	sent, err := f.svc.SendMessage(ctx, conv.ID, f.x.ID, "hi", entity.MessageText)
	require.NoError(t, err)

	stream := pubsub.Decode[dto.MessageResponse](sub)
	select {
	case got := <-stream:
		assert.Equal(t, sent.ID, got.ID)
		assert.Equal(t, "hi", got.Content)
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}
