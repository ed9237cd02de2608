package service

import (
	"context"
	"time"

	"locki.app/backend/internal/entity"
	leaderboardService "locki.app/backend/internal/modules/leaderboard/service"
	"locki.app/backend/internal/modules/stat/dto"
	"locki.app/backend/internal/modules/stat/repository"
	"locki.app/backend/pkg/logger"

	"github.com/google/uuid"
)

type StatService interface {
	GetUserStats(ctx context.Context, userID uuid.UUID) (*dto.UserStatsResponse, error)
	GetTotalUsers(ctx context.Context) (int64, error)
	// ExpireStreaks resets the streak of everyone who posted neither today nor yesterday.
	ExpireStreaks(ctx context.Context) (int64, error)
}

type statService struct {
	repo repository.StatRepository
	now  func() time.Time
}

func NewStatService(repo repository.StatRepository) StatService {
	return &statService{
		repo: repo,
		now:  time.Now,
	}
}

func (s *statService) GetUserStats(ctx context.Context, userID uuid.UUID) (*dto.UserStatsResponse, error) {
	stats, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	buckets, err := s.repo.GetBuckets(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := &dto.UserStatsResponse{
		UserStats:    *stats,
		WeeklyHours:  make(map[string]float64),
		MonthlyHours: make(map[string]float64),
	}

	currentWeek := entity.WeekKey(s.now())
	var weekMinutes int64
	for _, b := range buckets {
		switch b.Period {
		case entity.PeriodWeek:
			resp.WeeklyHours[b.Key] = entity.Hours(b.Minutes)
			if b.Key == currentWeek {
				weekMinutes = b.Minutes
			}
		case entity.PeriodMonth:
			resp.MonthlyHours[b.Key] = entity.Hours(b.Minutes)
		}
	}
	resp.ProductivityStatus = leaderboardService.GetProductivityStatus(stats.TotalMinutes, weekMinutes)

	return resp, nil
}

func (s *statService) GetTotalUsers(ctx context.Context) (int64, error) {
	return s.repo.CountUsers(ctx)
}

func (s *statService) ExpireStreaks(ctx context.Context) (int64, error) {
	now := s.now().UTC()
	yesterday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)

	expired, err := s.repo.ExpireStreaks(ctx, yesterday)
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		logger.Info().Int64("users", expired).Msg("expired stale streaks")
	}
	return expired, nil
}

// StreakJob runs ExpireStreaks shortly after midnight UTC.
type StreakJob struct {
	Service StatService
}

func (j StreakJob) Name() string     { return "expire_streaks" }
func (j StreakJob) Schedule() string { return "5 0 * * *" }

func (j StreakJob) Run(ctx context.Context) error {
	_, err := j.Service.ExpireStreaks(ctx)
	return err
}
