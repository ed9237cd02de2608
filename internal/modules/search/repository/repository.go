package repository

import (
	"context"
	"strings"

	"locki.app/backend/internal/entity"
	"locki.app/backend/pkg/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SearchRepository interface {
	// MatchUsers returns active users whose username or display name contains query.
	MatchUsers(ctx context.Context, query string, limit int) ([]entity.User, error)
	// MatchPosts returns active public posts whose title or description contains query.
	MatchPosts(ctx context.Context, query string, limit int) ([]entity.Post, error)
	SaveSearch(ctx context.Context, entry *entity.SearchHistory) error
	GetHistory(ctx context.Context, userID uuid.UUID, limit int) ([]entity.SearchHistory, error)
}

type searchRepository struct {
	db *gorm.DB
}

func NewSearchRepository(db *gorm.DB) SearchRepository {
	return &searchRepository{db: db}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(query string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"
}

func (r *searchRepository) MatchUsers(ctx context.Context, query string, limit int) ([]entity.User, error) {
	pattern := containsPattern(query)

	var users []entity.User
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where(`LOWER(username) LIKE ? ESCAPE '\' OR LOWER(display_name) LIKE ? ESCAPE '\'`, pattern, pattern).
		Order("username ASC").
		Limit(limit).
		Find(&users).Error
	return users, database.MapError(err)
}

func (r *searchRepository) MatchPosts(ctx context.Context, query string, limit int) ([]entity.Post, error) {
	pattern := containsPattern(query)

	var posts []entity.Post
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("is_active = ? AND visibility = ?", true, entity.VisibilityPublic).
		Where(`LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\'`, pattern, pattern).
		Order("created_at DESC").
		Limit(limit).
		Find(&posts).Error
	return posts, database.MapError(err)
}

func (r *searchRepository) SaveSearch(ctx context.Context, entry *entity.SearchHistory) error {
	return database.MapError(r.db.WithContext(ctx).Create(entry).Error)
}

func (r *searchRepository) GetHistory(ctx context.Context, userID uuid.UUID, limit int) ([]entity.SearchHistory, error) {
	var entries []entity.SearchHistory
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, database.MapError(err)
}
