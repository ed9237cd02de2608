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

type LeaderboardRepository interface {
	// TopByStat ranks active users by a UserStats column, highest first.
	TopByStat(ctx context.Context, column string, limit int) ([]entity.UserStats, error)
	// TopByBucket ranks active users by the minutes logged in one week or month bucket.
	TopByBucket(ctx context.Context, period, key string, limit int) ([]entity.UserStatBucket, error)
	CountAboveStat(ctx context.Context, column string, value int64) (int64, error)
	CountAboveBucket(ctx context.Context, period, key string, value int64) (int64, error)
	StatValue(ctx context.Context, userID uuid.UUID, column string) (int64, error)
	BucketMinutes(ctx context.Context, userID uuid.UUID, period, key string) (int64, error)
	// StatsFor and BucketMinutesFor load the figures used to annotate entries.
	StatsFor(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]entity.UserStats, error)
	BucketMinutesFor(ctx context.Context, userIDs []uuid.UUID, period, key string) (map[uuid.UUID]int64, error)
}

type leaderboardRepository struct {
	db *gorm.DB
}

func NewLeaderboardRepository(db *gorm.DB) LeaderboardRepository {
	return &leaderboardRepository{db: db}
}

func (r *leaderboardRepository) activeUsers(table string) string {
	return "JOIN users ON users.id = " + table + ".user_id AND users.is_active = ?"
}

func (r *leaderboardRepository) TopByStat(ctx context.Context, column string, limit int) ([]entity.UserStats, error) {
	var stats []entity.UserStats
	err := r.db.WithContext(ctx).
		Joins(r.activeUsers("user_stats"), true).
		Preload("User").
		Order("user_stats." + column + " DESC").
		Order("user_stats.user_id").
		Limit(limit).
		Find(&stats).Error
	return stats, database.MapError(err)
}

func (r *leaderboardRepository) TopByBucket(ctx context.Context, period, key string, limit int) ([]entity.UserStatBucket, error) {
	var buckets []entity.UserStatBucket
	err := r.db.WithContext(ctx).
		Joins(r.activeUsers("user_stat_buckets"), true).
		Preload("User").
		Where("user_stat_buckets.period = ? AND user_stat_buckets.bucket_key = ?", period, key).
		Order("user_stat_buckets.minutes DESC").
		Order("user_stat_buckets.user_id").
		Limit(limit).
		Find(&buckets).Error
	return buckets, database.MapError(err)
}

func (r *leaderboardRepository) CountAboveStat(ctx context.Context, column string, value int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.UserStats{}).
		Joins(r.activeUsers("user_stats"), true).
		Where("user_stats."+column+" > ?", value).
		Count(&count).Error
	return count, database.MapError(err)
}

func (r *leaderboardRepository) CountAboveBucket(ctx context.Context, period, key string, value int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.UserStatBucket{}).
		Joins(r.activeUsers("user_stat_buckets"), true).
		Where("user_stat_buckets.period = ? AND user_stat_buckets.bucket_key = ? AND user_stat_buckets.minutes > ?", period, key, value).
		Count(&count).Error
	return count, database.MapError(err)
}

func (r *leaderboardRepository) StatValue(ctx context.Context, userID uuid.UUID, column string) (int64, error) {
	var values []int64
	err := r.db.WithContext(ctx).
		Model(&entity.UserStats{}).
		Where("user_id = ?", userID).
		Pluck(column, &values).Error
	if err != nil {
		return 0, database.MapError(err)
	}
	if len(values) == 0 {
		return 0, apperror.Wrap(apperror.ErrNotFound, "user stats not found")
	}
	return values[0], nil
}

func (r *leaderboardRepository) BucketMinutes(ctx context.Context, userID uuid.UUID, period, key string) (int64, error) {
	var bucket entity.UserStatBucket
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND period = ? AND bucket_key = ?", userID, period, key).
		First(&bucket).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, database.MapError(err)
	}
	return bucket.Minutes, nil
}

func (r *leaderboardRepository) StatsFor(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]entity.UserStats, error) {
	out := make(map[uuid.UUID]entity.UserStats, len(userIDs))
	for _, chunk := range database.ChunkIDs(userIDs, database.MaxInFilter) {
		var stats []entity.UserStats
		if err := r.db.WithContext(ctx).Where("user_id IN ?", chunk).Find(&stats).Error; err != nil {
			return nil, database.MapError(err)
		}
		for _, s := range stats {
			out[s.UserID] = s
		}
	}
	return out, nil
}

func (r *leaderboardRepository) BucketMinutesFor(ctx context.Context, userIDs []uuid.UUID, period, key string) (map[uuid.UUID]int64, error) {
	out := make(map[uuid.UUID]int64, len(userIDs))
	for _, chunk := range database.ChunkIDs(userIDs, database.MaxInFilter) {
		var buckets []entity.UserStatBucket
		err := r.db.WithContext(ctx).
			Where("user_id IN ? AND period = ? AND bucket_key = ?", chunk, period, key).
			Find(&buckets).Error
		if err != nil {
			return nil, database.MapError(err)
		}
		for _, b := range buckets {
			out[b.UserID] = b.Minutes
		}
	}
	return out, nil
}
