package service

import (
	"math"

	"locki.app/backend/internal/modules/leaderboard/dto"
)

// Level thresholds in all-time hours.
const (
	HoursLegend    = 1000
	HoursMaster    = 500
	HoursExpert    = 200
	HoursDedicated = 50
	HoursFocused   = 10
	HoursNewcomer  = 0
)

// Weekly activity thresholds in hours logged this week.
const (
	WeeklyOnFire   = 20
	WeeklyTrending = 10
	WeeklyActive   = 5
)

var levels = []struct {
	name  string
	hours int
}{
	{"Legend", HoursLegend},
	{"Master", HoursMaster},
	{"Expert", HoursExpert},
	{"Dedicated", HoursDedicated},
	{"Focused", HoursFocused},
	{"Newcomer", HoursNewcomer},
}

// GetProductivityStatus computes the status from all-time and current-week minutes.
func GetProductivityStatus(totalMinutes, weeklyMinutes int64) dto.ProductivityStatus {
	hours := float64(totalMinutes) / 60
	weekly := float64(weeklyMinutes) / 60

	status := dto.ProductivityStatus{
		CurrentHours: math.Round(hours*100) / 100,
		WeeklyHours:  math.Round(weekly*100) / 100,
	}

	for i, level := range levels {
		if hours < float64(level.hours) {
			continue
		}
		status.Level = level.name
		if i == 0 {
			status.NextLevel = "Max Level"
			status.TargetHours = level.hours
			status.Progress = 100
		} else {
			next := levels[i-1]
			status.NextLevel = next.name
			status.TargetHours = next.hours
			status.Progress = hours / float64(next.hours) * 100
		}
		break
	}

	switch {
	case weekly >= WeeklyOnFire:
		status.WeeklyLabel = "🔥 On Fire!"
	case weekly >= WeeklyTrending:
		status.WeeklyLabel = "⚡ Trending"
	case weekly >= WeeklyActive:
		status.WeeklyLabel = "📈 Active"
	}

	status.Progress = math.Round(status.Progress*100) / 100
	return status
}
