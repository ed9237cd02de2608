package service

import (
	"context"
	"time"

	"locki.app/backend/internal/entity"
	"locki.app/backend/internal/modules/leaderboard/dto"
	"locki.app/backend/internal/modules/leaderboard/repository"
	"locki.app/backend/pkg/apperror"

	"github.com/google/uuid"
)

const (
	DefaultLimit = 10
	MaxLimit     = 50
)

type LeaderboardService interface {
	GetLeaderboard(ctx context.Context, sortBy string, limit int) ([]dto.LeaderboardEntry, error)
	// GetUserRank is the number of active users with a strictly greater value, plus one.
	GetUserRank(ctx context.Context, userID uuid.UUID, sortBy string) (*dto.UserRank, error)
}

type leaderboardService struct {
	repo repository.LeaderboardRepository
	now  func() time.Time
}

func NewLeaderboardService(repo repository.LeaderboardRepository) LeaderboardService {
	return &leaderboardService{
		repo: repo,
		now:  time.Now,
	}
}

// board resolves sortBy to either a UserStats column or a bucket of the current period.
type board struct {
	column string
	period string
	key    string
}

func (s *leaderboardService) board(sortBy string) (board, error) {
	now := s.now()
	switch sortBy {
	case "", dto.SortHours:
		return board{column: "total_minutes"}, nil
	case dto.SortStreak:
		return board{column: "current_streak"}, nil
	case dto.SortWeekly:
		return board{period: entity.PeriodWeek, key: entity.WeekKey(now)}, nil
	case dto.SortMonthly:
		return board{period: entity.PeriodMonth, key: entity.MonthKey(now)}, nil
	default:
		return board{}, apperror.Wrapf(apperror.ErrInvalidInput, "unknown leaderboard %q", sortBy)
	}
}

func (s *leaderboardService) GetLeaderboard(ctx context.Context, sortBy string, limit int) ([]dto.LeaderboardEntry, error) {
	b, err := s.board(sortBy)
	if err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	type row struct {
		user  entity.User
		value int64
	}
	var rows []row

	if b.column != "" {
		stats, err := s.repo.TopByStat(ctx, b.column, limit)
		if err != nil {
			return nil, err
		}
		for _, st := range stats {
			value := st.TotalMinutes
			if b.column == "current_streak" {
				value = int64(st.CurrentStreak)
			}
			rows = append(rows, row{user: st.User, value: value})
		}
	} else {
		buckets, err := s.repo.TopByBucket(ctx, b.period, b.key, limit)
		if err != nil {
			return nil, err
		}
		for _, bk := range buckets {
			rows = append(rows, row{user: bk.User, value: bk.Minutes})
		}
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.user.ID)
	}
	stats, err := s.repo.StatsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	weekly, err := s.repo.BucketMinutesFor(ctx, ids, entity.PeriodWeek, entity.WeekKey(s.now()))
	if err != nil {
		return nil, err
	}

	entries := make([]dto.LeaderboardEntry, 0, len(rows))
	for i, r := range rows {
		entries = append(entries, dto.LeaderboardEntry{
			UserID:             r.user.ID,
			Username:           r.user.Username,
			DisplayName:        r.user.DisplayName,
			AvatarURL:          r.user.AvatarURL,
			Position:           i + 1,
			Value:              r.value,
			ProductivityStatus: GetProductivityStatus(stats[r.user.ID].TotalMinutes, weekly[r.user.ID]),
		})
	}
	return entries, nil
}

func (s *leaderboardService) GetUserRank(ctx context.Context, userID uuid.UUID, sortBy string) (*dto.UserRank, error) {
	b, err := s.board(sortBy)
	if err != nil {
		return nil, err
	}
	if sortBy == "" {
		sortBy = dto.SortHours
	}

	var value, above int64
	if b.column != "" {
		if value, err = s.repo.StatValue(ctx, userID, b.column); err != nil {
			return nil, err
		}
		above, err = s.repo.CountAboveStat(ctx, b.column, value)
	} else {
		if value, err = s.repo.BucketMinutes(ctx, userID, b.period, b.key); err != nil {
			return nil, err
		}
		above, err = s.repo.CountAboveBucket(ctx, b.period, b.key, value)
	}
	if err != nil {
		return nil, err
	}

	return &dto.UserRank{
		UserID: userID,
		SortBy: sortBy,
		Rank:   above + 1,
		Value:  value,
	}, nil
}
