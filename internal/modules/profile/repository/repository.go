package repository

import (
	"context"

	"locki.app/backend/internal/entity"
	"locki.app/backend/pkg/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SettingsRepository interface {
	GetSettings(ctx context.Context, userID uuid.UUID) (*entity.UserSettings, error)
	// UpdateSettings applies the column changes and returns the stored row.
	UpdateSettings(ctx context.Context, userID uuid.UUID, fields map[string]interface{}) (*entity.UserSettings, error)
}

type settingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) GetSettings(ctx context.Context, userID uuid.UUID) (*entity.UserSettings, error) {
	var settings entity.UserSettings
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&settings).Error; err != nil {
		return nil, database.MapError(err)
	}
	return &settings, nil
}

func (r *settingsRepository) UpdateSettings(ctx context.Context, userID uuid.UUID, fields map[string]interface{}) (*entity.UserSettings, error) {
	var settings entity.UserSettings
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(fields) > 0 {
			result := tx.Model(&entity.UserSettings{}).Where("user_id = ?", userID).Updates(fields)
			if result.Error != nil {
				return result.Error
			}
		}
		return tx.Where("user_id = ?", userID).First(&settings).Error
	})
	if err != nil {
		return nil, database.MapError(err)
	}
	return &settings, nil
}
