package service

import (
	"context"
	"fmt"
	"time"

	"locki.app/backend/internal/entity"
	notifRepo "locki.app/backend/internal/modules/notification/repository"
	"locki.app/backend/pkg/apperror"
	"locki.app/backend/pkg/logger"
	"locki.app/backend/pkg/metrics"
	"locki.app/backend/pkg/pubsub"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultLimit   = 50
	maxLimit       = 100
	unreadTTL      = time.Hour
	fillWindow     = 5 * time.Second
	maxCachedIDs   = 1000
	streamKind     = "notifications"
	unreadKeyBase  = "notifications:unread:%s"
	fillingKeyBase = "notifications:unread:%s:filling"

	// placeholder keeps an all-read cache entry alive; the count is SCARD - 1.
	placeholder = "_"
)

const (
	opAdd    = "add"
	opRemove = "remove"
	opReset  = "reset"
)

// applyUnread mirrors one committed store change into the cached set of unread ids.
// Membership updates are idempotent, so replaying a change that a concurrent fill already
// saw cannot double count. Any change also spoils a fill that is in flight.
var applyUnread = redis.NewScript(`
if redis.call('EXISTS', KEYS[2]) == 1 then
	redis.call('SET', KEYS[2], 'stale', 'PX', ARGV[3])
end
if ARGV[1] == 'reset' then
	redis.call('DEL', KEYS[1])
elseif redis.call('EXISTS', KEYS[1]) == 1 then
	if ARGV[1] == 'add' then
		redis.call('SADD', KEYS[1], ARGV[2])
	else
		redis.call('SREM', KEYS[1], ARGV[2])
	end
end
return 0
`)

// fillUnread publishes a store snapshot only if this fill still owns the marker and no
// change landed while the snapshot was taken.
var fillUnread = redis.NewScript(`
local owner = redis.call('GET', KEYS[2])
if owner ~= ARGV[1] then
	if owner == 'stale' then
		redis.call('DEL', KEYS[2])
	end
	return 0
end
redis.call('DEL', KEYS[2])
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('SADD', KEYS[1], unpack(ARGV, 3))
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return 1
`)

// Notifier is the fan-out hook used by the modules that cause notifications.
type Notifier interface {
	// Emit delivers event on a best-effort basis; failures are logged, never returned.
	Emit(ctx context.Context, event Event)
}

type NotificationService interface {
	Notifier
	Notify(ctx context.Context, event Event) (*entity.Notification, error)
	GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Notification, error)
	MarkAsRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	Subscribe(ctx context.Context, userID uuid.UUID) (*pubsub.Subscription, error)
}

type notificationService struct {
	repo        notifRepo.NotificationRepository
	redisClient *redis.Client
	broker      *pubsub.Broker
}

func NewNotificationService(repo notifRepo.NotificationRepository, redisClient *redis.Client, broker *pubsub.Broker) NotificationService {
	return &notificationService{
		repo:        repo,
		redisClient: redisClient,
		broker:      broker,
	}
}

func unreadKey(userID uuid.UUID) string {
	return fmt.Sprintf(unreadKeyBase, userID.String())
}

func fillingKey(userID uuid.UUID) string {
	return fmt.Sprintf(fillingKeyBase, userID.String())
}

func (s *notificationService) Notify(ctx context.Context, event Event) (*entity.Notification, error) {
	notification, ok := Build(event)
	if !ok {
		return nil, nil
	}

	// 1. Save to DB
	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, err
	}
	metrics.NotificationsEmitted.WithLabelValues(string(notification.Type)).Inc()

	// 2. Keep the cached unread count in step
	s.apply(ctx, notification.UserID, opAdd, notification.ID)

	// 3. Push to live subscribers unless the recipient muted this type
	if s.wantsPush(ctx, notification) {
		if err := s.broker.Publish(ctx, pubsub.NotificationChannel(notification.UserID.String()), notification); err != nil {
			logger.Warn().Err(err).Str("user_id", notification.UserID.String()).Msg("failed to publish notification")
		}
	}

	return notification, nil
}

func (s *notificationService) Emit(ctx context.Context, event Event) {
	ctx = context.WithoutCancel(ctx)
	if _, err := s.Notify(ctx, event); err != nil {
		metrics.NotificationFailures.WithLabelValues(string(event.Kind)).Inc()
		logger.Warn().
			Err(err).
			Str("kind", string(event.Kind)).
			Str("recipient", event.Recipient.String()).
			Msg("notification delivery failed")
	}
}

func (s *notificationService) wantsPush(ctx context.Context, n *entity.Notification) bool {
	settings, err := s.repo.GetSettings(ctx, n.UserID)
	if err != nil {
		return true
	}

	switch n.Type {
	case entity.NotificationLike:
		return settings.LikeNotifications
	case entity.NotificationComment:
		return settings.CommentNotifications
	case entity.NotificationFollow, entity.NotificationBuddyRequest:
		return settings.BuddyRequestNotifications
	case entity.NotificationMessage:
		return settings.MessageNotifications
	case entity.NotificationAchievement:
		return settings.AchievementNotifications
	case entity.NotificationReminder:
		return settings.ReminderNotifications
	}
	return true
}

func (s *notificationService) GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Notification, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.GetByUserID(ctx, userID, limit, offset)
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID, id uuid.UUID) error {
	flipped, err := s.repo.MarkAsRead(ctx, userID, id)
	if err != nil {
		return err
	}
	if flipped {
		s.apply(ctx, userID, opRemove, id)
	}
	return nil
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.repo.MarkAllAsRead(ctx, userID); err != nil {
		return err
	}

	// Dropping the entry rather than writing 0 keeps notifications that committed after
	// the store update.
	s.apply(ctx, userID, opReset, uuid.Nil)
	return nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	if s.redisClient == nil {
		return s.repo.CountUnread(ctx, userID)
	}

	members, err := s.redisClient.SCard(ctx, unreadKey(userID)).Result()
	if err != nil {
		logger.Warn().Err(err).Str("user_id", userID.String()).Msg("unread cache unavailable, counting from store")
		return s.repo.CountUnread(ctx, userID)
	}
	if members > 0 {
		return members - 1, nil
	}
	return s.fill(ctx, userID)
}

// fill counts from the store and caches the snapshot. Only one fill per user runs at a
// time; the others answer from the store without caching.
func (s *notificationService) fill(ctx context.Context, userID uuid.UUID) (int64, error) {
	token := uuid.NewString()
	owned, err := s.redisClient.SetNX(ctx, fillingKey(userID), token, fillWindow).Result()
	if err != nil {
		logger.Warn().Err(err).Str("user_id", userID.String()).Msg("failed to claim unread cache fill")
	}

	ids, err := s.repo.UnreadIDs(ctx, userID)
	if err != nil {
		return 0, err
	}
	if !owned {
		return int64(len(ids)), nil
	}
	if len(ids) > maxCachedIDs {
		_ = s.redisClient.Del(ctx, fillingKey(userID)).Err()
		return int64(len(ids)), nil
	}

	args := make([]interface{}, 0, len(ids)+3)
	args = append(args, token, unreadTTL.Milliseconds(), placeholder)
	for _, id := range ids {
		args = append(args, id.String())
	}
	if err := fillUnread.Run(ctx, s.redisClient, []string{unreadKey(userID), fillingKey(userID)}, args...).Err(); err != nil {
		logger.Warn().Err(err).Str("user_id", userID.String()).Msg("failed to populate unread cache")
	}
	return int64(len(ids)), nil
}

func (s *notificationService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	wasUnread, err := s.repo.Delete(ctx, userID, id)
	if err != nil {
		return err
	}
	if wasUnread {
		s.apply(ctx, userID, opRemove, id)
	}
	return nil
}

func (s *notificationService) Subscribe(ctx context.Context, userID uuid.UUID) (*pubsub.Subscription, error) {
	sub, err := s.broker.Subscribe(ctx, streamKind, pubsub.NotificationChannel(userID.String()))
	if err != nil {
		return nil, apperror.Wrap(apperror.ErrNetwork, err.Error())
	}
	return sub, nil
}

func (s *notificationService) apply(ctx context.Context, userID uuid.UUID, op string, id uuid.UUID) {
	if s.redisClient == nil {
		return
	}
	keys := []string{unreadKey(userID), fillingKey(userID)}
	if err := applyUnread.Run(ctx, s.redisClient, keys, op, id.String(), fillWindow.Milliseconds()).Err(); err != nil {
		logger.Warn().Err(err).Str("user_id", userID.String()).Str("op", op).Msg("failed to update unread cache")
		s.invalidate(ctx, userID)
	}
}

// invalidate drops the cached count so the next read recounts from the store.
func (s *notificationService) invalidate(ctx context.Context, userID uuid.UUID) {
	_ = s.redisClient.Del(ctx, unreadKey(userID)).Err()
}
