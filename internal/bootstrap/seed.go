package bootstrap

import (
	"locki.app/backend/internal/entity"
	"locki.app/backend/pkg/logger"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(entity.Models()...)
}

type demoUser struct {
	username    string
	displayName string
	bio         string
}

var demoUsers = []demoUser{
	{"demo", "Demo Account", "Logging focus sessions since day one."},
	{"locki_buddy", "Locki Buddy", "Always up for a study session."},
}

// SeedDemoUsers creates the development accounts once. Their password is "locki1234".
func SeedDemoUsers(db *gorm.DB) error {
	hash, err := bcrypt.GenerateFromPassword([]byte("locki1234"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	for _, demo := range demoUsers {
		var count int64
		if err := db.Model(&entity.User{}).
			Where("username = ?", demo.username).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		user := entity.NewUser(demo.username, demo.username+"@locki.dev", demo.displayName)
		user.PasswordHash = string(hash)
		user.Bio = demo.bio
		user.IsVerified = true

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(user).Error; err != nil {
				return err
			}
			if err := tx.Create(&entity.UserStats{UserID: user.ID}).Error; err != nil {
				return err
			}
			return tx.Create(entity.DefaultSettings(user.ID)).Error
		})
		if err != nil {
			return err
		}

		logger.Info().Str("username", demo.username).Msg("demo user seeded")
	}

	return nil
}
