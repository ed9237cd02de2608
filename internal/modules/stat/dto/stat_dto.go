package dto

import (
	"locki.app/backend/internal/entity"
	leaderboardDto "locki.app/backend/internal/modules/leaderboard/dto"
)

// UserStatsResponse is the stats row with the hour maps keyed by week-end date and by month.
type UserStatsResponse struct {
	entity.UserStats
	WeeklyHours        map[string]float64                `json:"weekly_hours"`
	MonthlyHours       map[string]float64                `json:"monthly_hours"`
	ProductivityStatus leaderboardDto.ProductivityStatus `json:"productivity_status"`
}
