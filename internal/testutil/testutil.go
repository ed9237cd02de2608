// Package testutil builds throwaway stores for package tests.
package testutil

import (
	"testing"
	"time"

	"locki.app/backend/internal/entity"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDB returns a migrated in-memory database. It uses a single connection so the
// in-memory schema is shared and transactions are serialized.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(entity.Models()...))
	return db
}

// NewRedis returns a client backed by an in-process redis server.
func NewRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, mr
}

// CreateUser inserts an active user with its stats and settings rows.
func CreateUser(t *testing.T, db *gorm.DB, username string) *entity.User {
	t.Helper()

	user := entity.NewUser(username, username+"@locki.test", "")
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, db.Create(&entity.UserStats{UserID: user.ID}).Error)
	require.NoError(t, db.Create(entity.DefaultSettings(user.ID)).Error)
	return user
}

// CreatePost inserts an active post directly, bypassing stat bookkeeping.
func CreatePost(t *testing.T, db *gorm.DB, author *entity.User, visibility entity.Visibility, createdAt time.Time) *entity.Post {
	t.Helper()

	post := &entity.Post{
		UserID:     author.ID,
		Title:      "Deep work",
		Hours:      1,
		Visibility: visibility,
		IsActive:   true,
		CreatedAt:  createdAt,
	}
	require.NoError(t, db.Create(post).Error)
	return post
}

// Stats reloads a user's stats row.
func Stats(t *testing.T, db *gorm.DB, userID interface{}) entity.UserStats {
	t.Helper()

	var stats entity.UserStats
	require.NoError(t, db.Where("user_id = ?", userID).First(&stats).Error)
	return stats
}
