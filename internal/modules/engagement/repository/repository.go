package repository

import (
	"context"

	"locki.app/backend/internal/entity"
	statRepo "locki.app/backend/internal/modules/stat/repository"
	"locki.app/backend/pkg/apperror"
	"locki.app/backend/pkg/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EngagementRepository interface {
	FindActivePost(ctx context.Context, id uuid.UUID) (*entity.Post, error)
	// Like records the like with both counters; a second like returns ErrAlreadyLiked.
	Like(ctx context.Context, postID, userID uuid.UUID) error
	// Unlike removes the like with both counters and reports whether one existed.
	Unlike(ctx context.Context, postID, userID uuid.UUID) (bool, error)
	IsLiked(ctx context.Context, postID, userID uuid.UUID) (bool, error)
	AddComment(ctx context.Context, comment *entity.PostComment) error
	FindComment(ctx context.Context, id uuid.UUID) (*entity.PostComment, error)
	DeleteComment(ctx context.Context, comment *entity.PostComment) error
	GetComments(ctx context.Context, postID uuid.UUID, limit int) ([]entity.PostComment, error)
}

type engagementRepository struct {
	store *database.Store
}

func NewEngagementRepository(db *gorm.DB) EngagementRepository {
	return &engagementRepository{store: database.NewStore(db)}
}

func (r *engagementRepository) FindActivePost(ctx context.Context, id uuid.UUID) (*entity.Post, error) {
	var post entity.Post
	err := r.store.DB(ctx).Where("id = ? AND is_active = ?", id, true).First(&post).Error
	if err != nil {
		return nil, database.MapError(err)
	}
	return &post, nil
}

func (r *engagementRepository) Like(ctx context.Context, postID, userID uuid.UUID) error {
	return r.store.Batch(ctx, func(tx *gorm.DB) error {
		like := entity.PostLike{PostID: postID, UserID: userID}
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&like)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperror.ErrAlreadyLiked
		}

		if err := tx.Model(&entity.Post{}).
			Where("id = ?", postID).
			UpdateColumn("like_count", database.IncrementExpr("like_count", 1)).Error; err != nil {
			return err
		}
		return statRepo.Increment(tx, statRepo.ColumnTotalLikes, 1, userID)
	})
}

func (r *engagementRepository) Unlike(ctx context.Context, postID, userID uuid.UUID) (bool, error) {
	var removed bool
	err := r.store.Batch(ctx, func(tx *gorm.DB) error {
		result := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&entity.PostLike{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		removed = true

		if err := tx.Model(&entity.Post{}).
			Where("id = ?", postID).
			UpdateColumn("like_count", database.DecrementExpr("like_count")).Error; err != nil {
			return err
		}
		return statRepo.DecrementClamped(tx, statRepo.ColumnTotalLikes, userID)
	})
	return removed, err
}

func (r *engagementRepository) IsLiked(ctx context.Context, postID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.store.DB(ctx).
		Model(&entity.PostLike{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Count(&count).Error
	return count > 0, database.MapError(err)
}

func (r *engagementRepository) AddComment(ctx context.Context, comment *entity.PostComment) error {
	return r.store.Batch(ctx, func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(comment).Error; err != nil {
			return err
		}
		if err := tx.Model(&entity.Post{}).
			Where("id = ?", comment.PostID).
			UpdateColumn("comment_count", database.IncrementExpr("comment_count", 1)).Error; err != nil {
			return err
		}
		return statRepo.Increment(tx, statRepo.ColumnTotalComments, 1, comment.UserID)
	})
}

func (r *engagementRepository) FindComment(ctx context.Context, id uuid.UUID) (*entity.PostComment, error) {
	var comment entity.PostComment
	if err := r.store.Get(ctx, &comment, id); err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *engagementRepository) DeleteComment(ctx context.Context, comment *entity.PostComment) error {
	return r.store.Batch(ctx, func(tx *gorm.DB) error {
		result := tx.Model(&entity.PostComment{}).
			Where("id = ? AND is_active = ?", comment.ID, true).
			Update("is_active", false)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperror.Wrap(apperror.ErrNotFound, "comment not found")
		}

		if err := tx.Model(&entity.Post{}).
			Where("id = ?", comment.PostID).
			UpdateColumn("comment_count", database.DecrementExpr("comment_count")).Error; err != nil {
			return err
		}
		return statRepo.DecrementClamped(tx, statRepo.ColumnTotalComments, comment.UserID)
	})
}

func (r *engagementRepository) GetComments(ctx context.Context, postID uuid.UUID, limit int) ([]entity.PostComment, error) {
	var comments []entity.PostComment
	err := r.store.DB(ctx).
		Preload("User").
		Where("post_id = ? AND is_active = ?", postID, true).
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&comments).Error
	return comments, database.MapError(err)
}
