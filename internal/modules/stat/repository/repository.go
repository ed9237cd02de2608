package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"locki.app/backend/internal/entity"
	"locki.app/backend/pkg/apperror"
	"locki.app/backend/pkg/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Counter columns of entity.UserStats maintained by the write paths.
const (
	ColumnTotalPosts    = "total_posts"
	ColumnTotalLikes    = "total_likes"
	ColumnTotalComments = "total_comments"
	ColumnBuddyCount    = "buddy_count"
)

const casAttempts = 3

var ErrStatsConflict = errors.New("user stats changed concurrently")

type StatRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*entity.UserStats, error)
	GetBuckets(ctx context.Context, userID uuid.UUID) ([]entity.UserStatBucket, error)
	CountUsers(ctx context.Context) (int64, error)
	// ExpireStreaks zeroes every current streak whose last post is older than cutoff.
	ExpireStreaks(ctx context.Context, cutoff time.Time) (int64, error)
}

type statRepository struct {
	db *gorm.DB
}

func NewStatRepository(db *gorm.DB) StatRepository {
	return &statRepository{db: db}
}

func (r *statRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*entity.UserStats, error) {
	var stats entity.UserStats
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&stats).Error; err != nil {
		return nil, database.MapError(err)
	}
	return &stats, nil
}

func (r *statRepository) ExpireStreaks(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&entity.UserStats{}).
		Where("current_streak > ?", 0).
		Where("last_post_date IS NULL OR last_post_date < ?", cutoff).
		Update("current_streak", 0)
	return result.RowsAffected, database.MapError(result.Error)
}

func (r *statRepository) GetBuckets(ctx context.Context, userID uuid.UUID) ([]entity.UserStatBucket, error) {
	var buckets []entity.UserStatBucket
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("period").
		Order("bucket_key").
		Find(&buckets).Error
	return buckets, database.MapError(err)
}

func (r *statRepository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.User{}).Where("is_active = ?", true).Count(&count).Error
	return count, database.MapError(err)
}

// Increment adds delta to column for every user in userIDs. It is meant to run inside the
// transaction of the write that causes it.
func Increment(tx *gorm.DB, column string, delta int64, userIDs ...uuid.UUID) error {
	return tx.Model(&entity.UserStats{}).
		Where("user_id IN ?", userIDs).
		UpdateColumn(column, database.IncrementExpr(column, delta)).Error
}

// DecrementClamped subtracts one from column for every user in userIDs, never going below zero.
func DecrementClamped(tx *gorm.DB, column string, userIDs ...uuid.UUID) error {
	return tx.Model(&entity.UserStats{}).
		Where("user_id IN ?", userIDs).
		UpdateColumn(column, database.DecrementExpr(column)).Error
}

// RecordPost books a new post of the given length: post count, logged time, streak and
// the week and month buckets. The stats row is updated with a compare-and-set on
// total_posts so concurrent posts never compute the streak from the same snapshot.
func RecordPost(tx *gorm.DB, userID uuid.UUID, minutes int64, at time.Time) error {
	at = at.UTC()

	for attempt := 0; attempt < casAttempts; attempt++ {
		var stats entity.UserStats
		if err := tx.Where("user_id = ?", userID).First(&stats).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.Wrap(apperror.ErrNotFound, "user stats not found")
			}
			return err
		}

		current, longest := NextStreak(stats.CurrentStreak, stats.LongestStreak, stats.LastPostDate, at)

		result := tx.Model(&entity.UserStats{}).
			Where("user_id = ? AND total_posts = ?", userID, stats.TotalPosts).
			UpdateColumns(map[string]interface{}{
				"total_posts":        gorm.Expr("total_posts + 1"),
				"total_minutes":      gorm.Expr("total_minutes + ?", minutes),
				"total_hours":        gorm.Expr("(total_minutes + ?) / 60", minutes),
				"current_streak":     current,
				"longest_streak":     longest,
				"last_post_date":     at,
				"last_activity_date": at,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			continue
		}

		return AddBucketMinutes(tx, userID, minutes, at)
	}

	return fmt.Errorf("%w: %v", apperror.ErrUnknown, ErrStatsConflict)
}

// AddBucketMinutes adds minutes to the week and month buckets containing at.
func AddBucketMinutes(tx *gorm.DB, userID uuid.UUID, minutes int64, at time.Time) error {
	buckets := []entity.UserStatBucket{
		{UserID: userID, Period: entity.PeriodWeek, Key: entity.WeekKey(at), Minutes: minutes},
		{UserID: userID, Period: entity.PeriodMonth, Key: entity.MonthKey(at), Minutes: minutes},
	}

	return tx.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "period"}, {Name: "bucket_key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"minutes": gorm.Expr("user_stat_buckets.minutes + ?", minutes),
		}),
	}).Create(&buckets).Error
}

// NextStreak applies a post made at now to a streak whose last post was at last.
// A post on the day after the last one extends the streak, a second post on the same
// day leaves it unchanged and anything else starts a new streak.
func NextStreak(current, longest int, last *time.Time, now time.Time) (int, int) {
	if last == nil {
		current = 1
	} else {
		switch daysBetween(*last, now) {
		case 0:
			if current == 0 {
				current = 1
			}
		case 1:
			current++
		default:
			current = 1
		}
	}

	if current > longest {
		longest = current
	}
	return current, longest
}

func daysBetween(from, to time.Time) int {
	from = from.UTC()
	to = to.UTC()
	fromDay := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	toDay := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(toDay.Sub(fromDay).Hours() / 24)
}
