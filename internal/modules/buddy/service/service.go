package service

import (
	"context"
	"errors"

	"locki.app/backend/internal/entity"
	achievementService "locki.app/backend/internal/modules/achievement/service"
	"locki.app/backend/internal/modules/buddy/dto"
	"locki.app/backend/internal/modules/buddy/repository"
	userRepo "locki.app/backend/internal/modules/identity/repository"
	notifService "locki.app/backend/internal/modules/notification/service"
	"locki.app/backend/pkg/apperror"
	"locki.app/backend/pkg/logger"
	"locki.app/backend/pkg/metrics"

	"github.com/google/uuid"
)

const (
	defaultBuddiesLimit = 50
	maxBuddiesLimit     = 100
)

type BuddyService interface {
	SendRequest(ctx context.Context, fromID, toID uuid.UUID) error
	AcceptRequest(ctx context.Context, requesterID, accepterID uuid.UUID) error
	DeclineRequest(ctx context.Context, requesterID, accepterID uuid.UUID) error
	RemoveBuddy(ctx context.Context, userID, buddyID uuid.UUID) error
	GetBuddyIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	GetBuddies(ctx context.Context, userID uuid.UUID, limit int) ([]dto.BuddyResponse, error)
	GetPendingRequests(ctx context.Context, userID uuid.UUID) ([]dto.PendingRequestResponse, error)
	GetStatus(ctx context.Context, userID, otherID uuid.UUID) (dto.Status, error)
	IsBuddy(ctx context.Context, a, b uuid.UUID) (bool, error)
}

type buddyService struct {
	repo         repository.BuddyRepository
	userRepo     userRepo.UserRepository
	notifier     notifService.Notifier
	achievements achievementService.Evaluator
}

func NewBuddyService(
	repo repository.BuddyRepository,
	userRepo userRepo.UserRepository,
	notifier notifService.Notifier,
	achievements achievementService.Evaluator,
) BuddyService {
	return &buddyService{
		repo:         repo,
		userRepo:     userRepo,
		notifier:     notifier,
		achievements: achievements,
	}
}

func (s *buddyService) activeUser(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, apperror.Wrap(apperror.ErrNotFound, "user not found")
	}
	return user, nil
}

func (s *buddyService) SendRequest(ctx context.Context, fromID, toID uuid.UUID) (err error) {
	defer func() { metrics.RecordOperation("buddy_request", apperror.Kind(err)) }()

	if fromID == toID {
		return apperror.Wrap(apperror.ErrInvalidInput, "cannot send a buddy request to yourself")
	}
	if _, err := s.activeUser(ctx, toID); err != nil {
		return err
	}
	actor, err := s.activeUser(ctx, fromID)
	if err != nil {
		return err
	}

	if err := s.repo.Send(ctx, fromID, toID); err != nil {
		return err
	}

	s.notify(ctx, notifService.BuddyRequestEvent(actor, toID))
	return nil
}

func (s *buddyService) AcceptRequest(ctx context.Context, requesterID, accepterID uuid.UUID) (err error) {
	defer func() { metrics.RecordOperation("buddy_accept", apperror.Kind(err)) }()

	accepter, err := s.activeUser(ctx, accepterID)
	if err != nil {
		return err
	}
	if err := s.repo.Accept(ctx, requesterID, accepterID); err != nil {
		return err
	}

	s.notify(ctx, notifService.BuddyAcceptedEvent(accepter, requesterID))
	s.evaluate(ctx, requesterID)
	s.evaluate(ctx, accepterID)
	return nil
}

func (s *buddyService) DeclineRequest(ctx context.Context, requesterID, accepterID uuid.UUID) error {
	return s.repo.Decline(ctx, requesterID, accepterID)
}

func (s *buddyService) RemoveBuddy(ctx context.Context, userID, buddyID uuid.UUID) (err error) {
	defer func() { metrics.RecordOperation("buddy_remove", apperror.Kind(err)) }()

	if userID == buddyID {
		return apperror.Wrap(apperror.ErrInvalidInput, "cannot remove yourself")
	}
	_, err = s.repo.Remove(ctx, userID, buddyID)
	return err
}

func (s *buddyService) GetBuddyIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return s.repo.GetBuddyIDs(ctx, userID)
}

func (s *buddyService) GetBuddies(ctx context.Context, userID uuid.UUID, limit int) ([]dto.BuddyResponse, error) {
	if limit <= 0 {
		limit = defaultBuddiesLimit
	}
	if limit > maxBuddiesLimit {
		limit = maxBuddiesLimit
	}

	users, err := s.repo.GetBuddies(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	out := make([]dto.BuddyResponse, 0, len(users))
	for i := range users {
		out = append(out, toBuddyResponse(&users[i]))
	}
	return out, nil
}

func (s *buddyService) GetPendingRequests(ctx context.Context, userID uuid.UUID) ([]dto.PendingRequestResponse, error) {
	edges, err := s.repo.GetPendingRequests(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]dto.PendingRequestResponse, 0, len(edges))
	for _, edge := range edges {
		if edge.Follower == nil || !edge.Follower.IsActive {
			continue
		}
		out = append(out, dto.PendingRequestResponse{
			RequestID:   edge.ID,
			From:        toBuddyResponse(edge.Follower),
			RequestedAt: edge.CreatedAt,
		})
	}
	return out, nil
}

func (s *buddyService) GetStatus(ctx context.Context, userID, otherID uuid.UUID) (dto.Status, error) {
	outbound, err := s.edge(ctx, userID, otherID)
	if err != nil {
		return dto.StatusNone, err
	}
	if outbound != nil && outbound.IsMutual {
		return dto.StatusBuddies, nil
	}
	if outbound != nil {
		return dto.StatusPendingSent, nil
	}

	inbound, err := s.edge(ctx, otherID, userID)
	if err != nil {
		return dto.StatusNone, err
	}
	if inbound != nil {
		return dto.StatusPendingReceived, nil
	}
	return dto.StatusNone, nil
}

func (s *buddyService) IsBuddy(ctx context.Context, a, b uuid.UUID) (bool, error) {
	return s.repo.IsBuddy(ctx, a, b)
}

// edge returns the active edge follower -> following, or nil.
func (s *buddyService) edge(ctx context.Context, followerID, followingID uuid.UUID) (*entity.BuddyRelationship, error) {
	edge, err := s.repo.FindEdge(ctx, followerID, followingID)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !edge.IsActive {
		return nil, nil
	}
	return edge, nil
}

func (s *buddyService) notify(ctx context.Context, event notifService.Event) {
	if s.notifier != nil {
		s.notifier.Emit(ctx, event)
	}
}

func (s *buddyService) evaluate(ctx context.Context, userID uuid.UUID) {
	if s.achievements == nil {
		return
	}
	if _, err := s.achievements.Evaluate(context.WithoutCancel(ctx), userID); err != nil {
		logger.Warn().Err(err).Str("user_id", userID.String()).Msg("achievement evaluation failed")
	}
}

func toBuddyResponse(u *entity.User) dto.BuddyResponse {
	return dto.BuddyResponse{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
		Profession:  u.Profession,
	}
}
