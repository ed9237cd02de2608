package repository

import (
	"context"
	"errors"

	"locki.app/backend/internal/entity"
	"locki.app/backend/pkg/apperror"
	"locki.app/backend/pkg/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationRepository interface {
	Create(ctx context.Context, notification *entity.Notification) error
	GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Notification, error)
	// MarkAsRead reports whether an unread notification owned by userID was flipped.
	MarkAsRead(ctx context.Context, userID, id uuid.UUID) (bool, error)
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	UnreadIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	// Delete removes a notification owned by userID and reports whether it was unread.
	Delete(ctx context.Context, userID, id uuid.UUID) (bool, error)
	GetSettings(ctx context.Context, userID uuid.UUID) (*entity.UserSettings, error)
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, notification *entity.Notification) error {
	return database.MapError(r.db.WithContext(ctx).Create(notification).Error)
}

func (r *notificationRepository) GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Notification, error) {
	var notifications []entity.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Order("id desc").
		Limit(limit).
		Offset(offset).
		Find(&notifications).Error
	return notifications, database.MapError(err)
}

func (r *notificationRepository) MarkAsRead(ctx context.Context, userID, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("id = ? AND user_id = ? AND is_read = ?", id, userID, false).
		Update("is_read", true)
	if result.Error != nil {
		return false, database.MapError(result.Error)
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&entity.Notification{}).Where("id = ? AND user_id = ?", id, userID).Count(&count).Error; err != nil {
		return false, database.MapError(err)
	}
	if count == 0 {
		return false, apperror.Wrap(apperror.ErrNotFound, "notification not found")
	}
	return false, nil
}

func (r *notificationRepository) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return result.RowsAffected, database.MapError(result.Error)
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Notification{}).Where("user_id = ? AND is_read = ?", userID, false).Count(&count).Error
	return count, database.MapError(err)
}

func (r *notificationRepository) UnreadIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Pluck("id", &ids).Error
	return ids, database.MapError(err)
}

func (r *notificationRepository) Delete(ctx context.Context, userID, id uuid.UUID) (bool, error) {
	var wasUnread bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var notification entity.Notification
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&notification).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.Wrap(apperror.ErrNotFound, "notification not found")
			}
			return err
		}

		result := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&entity.Notification{})
		if result.Error != nil {
			return result.Error
		}
		wasUnread = result.RowsAffected > 0 && !notification.IsRead
		return nil
	})
	return wasUnread, database.MapError(err)
}

func (r *notificationRepository) GetSettings(ctx context.Context, userID uuid.UUID) (*entity.UserSettings, error) {
	var settings entity.UserSettings
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&settings).Error; err != nil {
		return nil, database.MapError(err)
	}
	return &settings, nil
}
