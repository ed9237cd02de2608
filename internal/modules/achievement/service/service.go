package service

import (
	"context"
	"time"

	"locki.app/backend/internal/entity"
	"locki.app/backend/internal/modules/achievement/dto"
	"locki.app/backend/internal/modules/achievement/repository"
	notifService "locki.app/backend/internal/modules/notification/service"
	statRepo "locki.app/backend/internal/modules/stat/repository"
	"locki.app/backend/pkg/logger"

	"github.com/google/uuid"
)

// Evaluator re-checks a user's achievements after a write that moved their stats.
type Evaluator interface {
	// Evaluate returns the achievements completed by this call.
	Evaluate(ctx context.Context, userID uuid.UUID) ([]dto.Achievement, error)
}

type AchievementService interface {
	Evaluator
	GetUserAchievements(ctx context.Context, userID uuid.UUID) ([]dto.UserAchievement, error)
}

type achievementService struct {
	repo     repository.AchievementRepository
	statRepo statRepo.StatRepository
	notifier notifService.Notifier
}

func NewAchievementService(repo repository.AchievementRepository, statRepo statRepo.StatRepository, notifier notifService.Notifier) AchievementService {
	return &achievementService{
		repo:     repo,
		statRepo: statRepo,
		notifier: notifier,
	}
}

func (s *achievementService) Evaluate(ctx context.Context, userID uuid.UUID) ([]dto.Achievement, error) {
	stats, err := s.statRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	done := make(map[string]bool, len(existing))
	for _, a := range existing {
		done[a.AchievementID] = a.IsCompleted
	}

	var completed []dto.Achievement
	for _, entry := range Catalog {
		if done[entry.ID] {
			continue
		}

		progress := entry.metric(*stats)
		if err := s.repo.UpsertProgress(ctx, userID, entry.ID, progress); err != nil {
			return completed, err
		}
		if progress < entry.Requirement {
			continue
		}

		flipped, err := s.repo.MarkCompleted(ctx, userID, entry.ID, time.Now().UTC())
		if err != nil {
			return completed, err
		}
		if !flipped {
			continue
		}

		logger.Info().
			Str("user_id", userID.String()).
			Str("achievement", entry.ID).
			Msg("achievement unlocked")
		completed = append(completed, entry.Achievement)
		if s.notifier != nil {
			s.notifier.Emit(ctx, notifService.AchievementEvent(userID, entry.ID, entry.Title, entry.Description))
		}
	}

	return completed, nil
}

func (s *achievementService) GetUserAchievements(ctx context.Context, userID uuid.UUID) ([]dto.UserAchievement, error) {
	rows, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]entity.UserAchievement, len(rows))
	for _, r := range rows {
		byID[r.AchievementID] = r
	}

	out := make([]dto.UserAchievement, 0, len(Catalog))
	for _, entry := range Catalog {
		ua := dto.UserAchievement{Achievement: entry.Achievement}
		if r, ok := byID[entry.ID]; ok {
			ua.Progress = r.Progress
			ua.IsCompleted = r.IsCompleted
			ua.CompletedAt = r.CompletedAt
		}
		out = append(out, ua)
	}
	return out, nil
}
