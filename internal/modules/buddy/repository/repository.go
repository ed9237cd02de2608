package repository

import (
	"context"
	"errors"

	"locki.app/backend/internal/entity"
	statRepo "locki.app/backend/internal/modules/stat/repository"
	"locki.app/backend/pkg/apperror"
	"locki.app/backend/pkg/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BuddyRepository interface {
	FindEdge(ctx context.Context, followerID, followingID uuid.UUID) (*entity.BuddyRelationship, error)
	// Send creates or reactivates the follower -> following edge.
	Send(ctx context.Context, followerID, followingID uuid.UUID) error
	// Accept makes a pending request mutual and books one buddy for each side.
	Accept(ctx context.Context, requesterID, accepterID uuid.UUID) error
	Decline(ctx context.Context, requesterID, accepterID uuid.UUID) error
	// Remove deactivates both edges between a and b and reports whether they were buddies.
	Remove(ctx context.Context, a, b uuid.UUID) (bool, error)
	GetBuddyIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	GetBuddies(ctx context.Context, userID uuid.UUID, limit int) ([]entity.User, error)
	GetPendingRequests(ctx context.Context, userID uuid.UUID) ([]entity.BuddyRelationship, error)
	IsBuddy(ctx context.Context, a, b uuid.UUID) (bool, error)
}

type buddyRepository struct {
	db *gorm.DB
}

func NewBuddyRepository(db *gorm.DB) BuddyRepository {
	return &buddyRepository{db: db}
}

func (r *buddyRepository) FindEdge(ctx context.Context, followerID, followingID uuid.UUID) (*entity.BuddyRelationship, error) {
	var edge entity.BuddyRelationship
	err := r.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		First(&edge).Error
	if err != nil {
		return nil, database.MapError(err)
	}
	return &edge, nil
}

func (r *buddyRepository) Send(ctx context.Context, followerID, followingID uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var edge entity.BuddyRelationship
		err := tx.Where("follower_id = ? AND following_id = ?", followerID, followingID).First(&edge).Error
		switch {
		case err == nil:
			if edge.IsActive {
				return apperror.ErrDuplicateRelationship
			}
			result := tx.Model(&entity.BuddyRelationship{}).
				Where("id = ? AND is_active = ?", edge.ID, false).
				Updates(map[string]interface{}{"is_active": true, "is_mutual": false})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return apperror.ErrDuplicateRelationship
			}
			return nil

		case errors.Is(err, gorm.ErrRecordNotFound):
			edge = entity.BuddyRelationship{
				FollowerID:  followerID,
				FollowingID: followingID,
				IsActive:    true,
			}
			result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&edge)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return apperror.ErrDuplicateRelationship
			}
			return nil

		default:
			return err
		}
	})
	return database.MapError(err)
}

func (r *buddyRepository) Accept(ctx context.Context, requesterID, accepterID uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&entity.BuddyRelationship{}).
			Where("follower_id = ? AND following_id = ? AND is_active = ? AND is_mutual = ?", requesterID, accepterID, true, false).
			Update("is_mutual", true)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperror.Wrap(apperror.ErrNotFound, "no pending buddy request")
		}

		reverse := entity.BuddyRelationship{
			FollowerID:  accepterID,
			FollowingID: requesterID,
			IsActive:    true,
			IsMutual:    true,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "follower_id"}, {Name: "following_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"is_active": true, "is_mutual": true}),
		}).Create(&reverse).Error
		if err != nil {
			return err
		}

		return statRepo.Increment(tx, statRepo.ColumnBuddyCount, 1, requesterID, accepterID)
	})
	return database.MapError(err)
}

func (r *buddyRepository) Decline(ctx context.Context, requesterID, accepterID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&entity.BuddyRelationship{}).
		Where("follower_id = ? AND following_id = ? AND is_active = ? AND is_mutual = ?", requesterID, accepterID, true, false).
		Update("is_active", false)
	if result.Error != nil {
		return database.MapError(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.Wrap(apperror.ErrNotFound, "no pending buddy request")
	}
	return nil
}

func (r *buddyRepository) Remove(ctx context.Context, a, b uuid.UUID) (bool, error) {
	var mutual bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pair := tx.Where("(follower_id = ? AND following_id = ?) OR (follower_id = ? AND following_id = ?)", a, b, b, a)

		// Only the call that flips the mutual edges books the decrement.
		result := tx.Model(&entity.BuddyRelationship{}).
			Where(pair).
			Where("is_active = ? AND is_mutual = ?", true, true).
			Updates(map[string]interface{}{"is_active": false, "is_mutual": false})
		if result.Error != nil {
			return result.Error
		}
		mutual = result.RowsAffected > 0

		err := tx.Model(&entity.BuddyRelationship{}).
			Where(pair).
			Where("is_active = ?", true).
			Updates(map[string]interface{}{"is_active": false, "is_mutual": false}).Error
		if err != nil {
			return err
		}

		if !mutual {
			return nil
		}
		return statRepo.DecrementClamped(tx, statRepo.ColumnBuddyCount, a, b)
	})
	return mutual, database.MapError(err)
}

func (r *buddyRepository) GetBuddyIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&entity.BuddyRelationship{}).
		Where("follower_id = ? AND is_active = ?", userID, true).
		Pluck("following_id", &ids).Error
	return ids, database.MapError(err)
}

func (r *buddyRepository) GetBuddies(ctx context.Context, userID uuid.UUID, limit int) ([]entity.User, error) {
	var users []entity.User
	err := r.db.WithContext(ctx).
		Joins("JOIN buddy_relationships ON buddy_relationships.following_id = users.id").
		Where("buddy_relationships.follower_id = ? AND buddy_relationships.is_active = ? AND buddy_relationships.is_mutual = ?", userID, true, true).
		Where("users.is_active = ?", true).
		Order("buddy_relationships.updated_at DESC").
		Limit(limit).
		Find(&users).Error
	return users, database.MapError(err)
}

func (r *buddyRepository) GetPendingRequests(ctx context.Context, userID uuid.UUID) ([]entity.BuddyRelationship, error) {
	var edges []entity.BuddyRelationship
	err := r.db.WithContext(ctx).
		Preload("Follower").
		Where("following_id = ? AND is_active = ? AND is_mutual = ?", userID, true, false).
		Order("created_at DESC").
		Find(&edges).Error
	return edges, database.MapError(err)
}

func (r *buddyRepository) IsBuddy(ctx context.Context, a, b uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.BuddyRelationship{}).
		Where("follower_id = ? AND following_id = ? AND is_active = ? AND is_mutual = ?", a, b, true, true).
		Count(&count).Error
	return count > 0, database.MapError(err)
}
