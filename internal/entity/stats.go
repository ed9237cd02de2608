package entity

import (
	"time"

	"github.com/google/uuid"
)

// UserStats aggregates a user's activity. Every counter is maintained by atomic
// increments inside the transaction of the write that causes it.
type UserStats struct {
	UserID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"user_id"`
	User             User       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	TotalMinutes     int64      `gorm:"not null;index" json:"total_minutes"`
	TotalHours       int64      `gorm:"not null" json:"total_hours"`
	CurrentStreak    int        `gorm:"not null;index" json:"current_streak"`
	LongestStreak    int        `gorm:"not null" json:"longest_streak"`
	TotalPosts       int64      `gorm:"not null" json:"total_posts"`
	TotalLikes       int64      `gorm:"not null" json:"total_likes"`
	TotalComments    int64      `gorm:"not null" json:"total_comments"`
	BuddyCount       int64      `gorm:"not null" json:"buddy_count"`
	LastPostDate     *time.Time `json:"last_post_date,omitempty"`
	LastActivityDate *time.Time `json:"last_activity_date,omitempty"`
}

const (
	PeriodWeek  = "week"
	PeriodMonth = "month"
)

// UserStatBucket is one entry of the week-key or month-key hour maps.
type UserStatBucket struct {
	UserID  uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	Period  string    `gorm:"size:10;primaryKey" json:"period"`
	Key     string    `gorm:"column:bucket_key;size:10;primaryKey;index" json:"key"`
	Minutes int64     `gorm:"not null" json:"minutes"`
	User    User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// WeekKey identifies the week containing t by the date of its last day (Saturday).
func WeekKey(t time.Time) string {
	t = t.UTC()
	end := t.AddDate(0, 0, int(time.Saturday-t.Weekday()))
	return end.Format("2006-01-02")
}

func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// Hours converts logged minutes to fractional hours for display.
func Hours(minutes int64) float64 {
	return float64(minutes) / 60
}
