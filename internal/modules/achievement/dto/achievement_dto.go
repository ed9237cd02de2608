package dto

import "time"

type Category string

const (
	CategoryProductivity Category = "productivity"
	CategorySocial       Category = "social"
	CategoryStreak       Category = "streak"
	CategoryTime         Category = "time"
	CategoryMilestone    Category = "milestone"
)

// Achievement is one entry of the static catalog.
type Achievement struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Icon        string   `json:"icon"`
	Category    Category `json:"category"`
	Requirement int64    `json:"requirement"`
	Points      int      `json:"points"`
}

// UserAchievement is a catalog entry joined with one user's progress.
type UserAchievement struct {
	Achievement
	Progress    int64      `json:"progress"`
	IsCompleted bool       `json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
