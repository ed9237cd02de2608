package repository

import (
	"context"
	"time"

	"locki.app/backend/internal/entity"
	"locki.app/backend/pkg/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AchievementRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]entity.UserAchievement, error)
	// UpsertProgress records progress for an achievement that is not completed yet.
	UpsertProgress(ctx context.Context, userID uuid.UUID, achievementID string, progress int64) error
	// MarkCompleted flips the achievement to completed and reports whether this call did it.
	MarkCompleted(ctx context.Context, userID uuid.UUID, achievementID string, at time.Time) (bool, error)
}

type achievementRepository struct {
	db *gorm.DB
}

func NewAchievementRepository(db *gorm.DB) AchievementRepository {
	return &achievementRepository{db: db}
}

func (r *achievementRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]entity.UserAchievement, error) {
	var achievements []entity.UserAchievement
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&achievements).Error
	return achievements, database.MapError(err)
}

func (r *achievementRepository) UpsertProgress(ctx context.Context, userID uuid.UUID, achievementID string, progress int64) error {
	row := entity.UserAchievement{
		UserID:        userID,
		AchievementID: achievementID,
		Progress:      progress,
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "achievement_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"progress":   progress,
			"updated_at": time.Now().UTC(),
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Eq{Column: clause.Column{Table: "user_achievements", Name: "is_completed"}, Value: false},
		}},
	}).Create(&row).Error
	return database.MapError(err)
}

func (r *achievementRepository) MarkCompleted(ctx context.Context, userID uuid.UUID, achievementID string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&entity.UserAchievement{}).
		Where("user_id = ? AND achievement_id = ? AND is_completed = ?", userID, achievementID, false).
		Updates(map[string]interface{}{
			"is_completed": true,
			"completed_at": at,
		})
	if result.Error != nil {
		return false, database.MapError(result.Error)
	}
	return result.RowsAffected == 1, nil
}
