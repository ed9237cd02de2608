package repository

import (
	"context"
	"time"

	"locki.app/backend/internal/entity"
	statRepo "locki.app/backend/internal/modules/stat/repository"
	"locki.app/backend/pkg/apperror"
	"locki.app/backend/pkg/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostRepository interface {
	// Create stores the post and books it on the author's stats in one transaction.
	Create(ctx context.Context, post *entity.Post) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Post, error)
	// SoftDelete deactivates an active post of authorID and takes it off the post count.
	SoftDelete(ctx context.Context, id, authorID uuid.UUID) error
	// FindByAuthor lists one author's active posts with the given visibilities, newest first.
	FindByAuthor(ctx context.Context, authorID uuid.UUID, visibilities []entity.Visibility, before *time.Time, limit int) ([]entity.Post, error)
	// FindFeedChunk lists active posts of authorIDs visible to viewerID in a feed, newest
	// first. buddies_only posts need a mutual edge, as in GetPost.
	FindFeedChunk(ctx context.Context, authorIDs []uuid.UUID, viewerID uuid.UUID, limit int) ([]entity.Post, error)
	// LikedPostIDs reports which of postIDs userID currently likes.
	LikedPostIDs(ctx context.Context, userID uuid.UUID, postIDs []uuid.UUID) (map[uuid.UUID]bool, error)
}

type postRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *entity.Post) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(post).Error; err != nil {
			return err
		}
		return statRepo.RecordPost(tx, post.UserID, post.DurationMinutes(), post.CreatedAt)
	})
	return database.MapError(err)
}

func (r *postRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Post, error) {
	var post entity.Post
	if err := r.db.WithContext(ctx).Preload("User").Where("id = ?", id).First(&post).Error; err != nil {
		return nil, database.MapError(err)
	}
	return &post, nil
}

func (r *postRepository) SoftDelete(ctx context.Context, id, authorID uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&entity.Post{}).
			Where("id = ? AND user_id = ? AND is_active = ?", id, authorID, true).
			Update("is_active", false)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperror.Wrap(apperror.ErrNotFound, "post not found")
		}
		return statRepo.DecrementClamped(tx, statRepo.ColumnTotalPosts, authorID)
	})
	return database.MapError(err)
}

func (r *postRepository) FindByAuthor(ctx context.Context, authorID uuid.UUID, visibilities []entity.Visibility, before *time.Time, limit int) ([]entity.Post, error) {
	query := r.db.WithContext(ctx).
		Preload("User").
		Where("user_id = ? AND is_active = ? AND visibility IN ?", authorID, true, visibilities)
	if before != nil {
		query = query.Where("created_at < ?", *before)
	}

	var posts []entity.Post
	err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&posts).Error
	return posts, database.MapError(err)
}

func (r *postRepository) FindFeedChunk(ctx context.Context, authorIDs []uuid.UUID, viewerID uuid.UUID, limit int) ([]entity.Post, error) {
	var posts []entity.Post
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("posts.user_id IN ? AND posts.is_active = ?", authorIDs, true).
		Where("posts.user_id = ? OR posts.visibility = ? OR (posts.visibility = ? AND EXISTS (?))",
			viewerID, entity.VisibilityPublic, entity.VisibilityBuddiesOnly, mutualEdge(r.db.WithContext(ctx), viewerID)).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&posts).Error
	return posts, database.MapError(err)
}

// mutualEdge matches a mutual buddy edge from the post's author to viewerID.
func mutualEdge(db *gorm.DB, viewerID uuid.UUID) *gorm.DB {
	return db.Session(&gorm.Session{NewDB: true}).
		Model(&entity.BuddyRelationship{}).
		Select("1").
		Where("buddy_relationships.follower_id = posts.user_id").
		Where("buddy_relationships.following_id = ? AND buddy_relationships.is_active = ? AND buddy_relationships.is_mutual = ?", viewerID, true, true)
}

func (r *postRepository) LikedPostIDs(ctx context.Context, userID uuid.UUID, postIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	liked := make(map[uuid.UUID]bool)
	for _, chunk := range database.ChunkIDs(postIDs, database.MaxInFilter) {
		var ids []uuid.UUID
		err := r.db.WithContext(ctx).
			Model(&entity.PostLike{}).
			Where("user_id = ? AND post_id IN ?", userID, chunk).
			Pluck("post_id", &ids).Error
		if err != nil {
			return nil, database.MapError(err)
		}
		for _, id := range ids {
			liked[id] = true
		}
	}
	return liked, nil
}
