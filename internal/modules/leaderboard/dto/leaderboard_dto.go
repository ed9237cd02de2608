package dto

import "github.com/google/uuid"

const (
	SortHours   = "hours"
	SortStreak  = "streak"
	SortWeekly  = "weekly"
	SortMonthly = "monthly"
)

// ProductivityStatus describes where a user stands by logged work.
// Level is based on all-time hours and never demotes; WeeklyLabel reflects the current week.
type ProductivityStatus struct {
	Level        string  `json:"level"`      // Newcomer, Focused, Dedicated, Expert, Master, Legend
	NextLevel    string  `json:"next_level"` // Next level to reach, or "Max Level"
	CurrentHours float64 `json:"current_hours"`
	TargetHours  int     `json:"target_hours"`
	Progress     float64 `json:"progress"` // Percentage toward TargetHours (0-100)

	WeeklyHours float64 `json:"weekly_hours"`
	WeeklyLabel string  `json:"weekly_label"`
}

// LeaderboardEntry represents a single user entry in the leaderboard.
// Value is minutes for hours, weekly and monthly boards and days for the streak board.
type LeaderboardEntry struct {
	UserID             uuid.UUID          `json:"user_id"`
	Username           string             `json:"username"`
	DisplayName        string             `json:"display_name"`
	AvatarURL          *string            `json:"avatar_url,omitempty"`
	Position           int                `json:"position"` // 1-based position in leaderboard
	Value              int64              `json:"value"`
	ProductivityStatus ProductivityStatus `json:"productivity_status"`
}

type UserRank struct {
	UserID uuid.UUID `json:"user_id"`
	SortBy string    `json:"sort_by"`
	Rank   int64     `json:"rank"`
	Value  int64     `json:"value"`
}
