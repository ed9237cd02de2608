package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"locki.app/backend/internal/entity"
	achievementService "locki.app/backend/internal/modules/achievement/service"
	"locki.app/backend/internal/modules/engagement/dto"
	"locki.app/backend/internal/modules/engagement/repository"
	userRepo "locki.app/backend/internal/modules/identity/repository"
	notifService "locki.app/backend/internal/modules/notification/service"
	postService "locki.app/backend/internal/modules/post/service"
	"locki.app/backend/pkg/apperror"
	"locki.app/backend/pkg/logger"
	"locki.app/backend/pkg/metrics"
	"locki.app/backend/pkg/ratelimiter"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
)

const (
	maxCommentLength     = 1000
	defaultCommentsLimit = 50
	maxCommentsLimit     = 100
)

type EngagementService interface {
	Like(ctx context.Context, postID, actorID uuid.UUID) error
	Unlike(ctx context.Context, postID, actorID uuid.UUID) error
	// ToggleLike flips the caller's like and returns the resulting state. On failure the
	// returned state is the one before the toggle.
	ToggleLike(ctx context.Context, postID, actorID uuid.UUID) (dto.LikeResponse, error)
	IsLiked(ctx context.Context, postID, actorID uuid.UUID) (bool, error)
	AddComment(ctx context.Context, postID, actorID uuid.UUID, content string) (*dto.CommentResponse, error)
	DeleteComment(ctx context.Context, commentID, actorID uuid.UUID) error
	GetComments(ctx context.Context, postID uuid.UUID, limit int) ([]dto.CommentResponse, error)
}

type Config struct {
	CommentRateLimit time.Duration
}

type engagementService struct {
	repo         repository.EngagementRepository
	userRepo     userRepo.UserRepository
	notifier     notifService.Notifier
	achievements achievementService.Evaluator
	redisClient  *redis.Client
	policy       *bluemonday.Policy
	cfg          Config
}

func NewEngagementService(
	repo repository.EngagementRepository,
	userRepo userRepo.UserRepository,
	notifier notifService.Notifier,
	achievements achievementService.Evaluator,
	redisClient *redis.Client,
	cfg Config,
) EngagementService {
	return &engagementService{
		repo:         repo,
		userRepo:     userRepo,
		notifier:     notifier,
		achievements: achievements,
		redisClient:  redisClient,
		policy:       bluemonday.StrictPolicy(),
		cfg:          cfg,
	}
}

func (s *engagementService) Like(ctx context.Context, postID, actorID uuid.UUID) (err error) {
	defer func() { metrics.RecordOperation("like", apperror.Kind(err)) }()

	post, err := s.repo.FindActivePost(ctx, postID)
	if err != nil {
		return err
	}
	actor, err := s.userRepo.FindByID(ctx, actorID)
	if err != nil {
		return err
	}

	if err := s.repo.Like(ctx, postID, actorID); err != nil {
		return err
	}

	s.notify(ctx, notifService.LikeEvent(actor, post.UserID, post.ID))
	s.evaluate(ctx, actorID)
	return nil
}

func (s *engagementService) Unlike(ctx context.Context, postID, actorID uuid.UUID) (err error) {
	defer func() { metrics.RecordOperation("unlike", apperror.Kind(err)) }()

	_, err = s.repo.Unlike(ctx, postID, actorID)
	return err
}

func (s *engagementService) ToggleLike(ctx context.Context, postID, actorID uuid.UUID) (dto.LikeResponse, error) {
	post, err := s.repo.FindActivePost(ctx, postID)
	if err != nil {
		return dto.LikeResponse{}, err
	}
	liked, err := s.repo.IsLiked(ctx, postID, actorID)
	if err != nil {
		return dto.LikeResponse{}, err
	}

	state := NewOptimistic(LikeState{Liked: liked, Count: post.LikeCount})
	next := state.Apply(state.Value().Toggled())

	if next.Liked {
		err = s.Like(ctx, postID, actorID)
	} else {
		err = s.Unlike(ctx, postID, actorID)
	}

	final := state.Resolve(err)
	return dto.LikeResponse{Liked: final.Liked, LikeCount: final.Count}, err
}

func (s *engagementService) IsLiked(ctx context.Context, postID, actorID uuid.UUID) (bool, error) {
	return s.repo.IsLiked(ctx, postID, actorID)
}

func (s *engagementService) AddComment(ctx context.Context, postID, actorID uuid.UUID, content string) (resp *dto.CommentResponse, err error) {
	defer func() { metrics.RecordOperation("comment", apperror.Kind(err)) }()

	content = strings.TrimSpace(s.policy.Sanitize(strings.TrimSpace(content)))
	if content == "" {
		return nil, apperror.Wrap(apperror.ErrInvalidInput, "comment cannot be empty")
	}
	if utf8.RuneCountInString(content) > maxCommentLength {
		return nil, apperror.Wrapf(apperror.ErrInvalidInput, "comment must be at most %d characters", maxCommentLength)
	}

	post, err := s.repo.FindActivePost(ctx, postID)
	if err != nil {
		return nil, err
	}
	actor, err := s.userRepo.FindByID(ctx, actorID)
	if err != nil {
		return nil, err
	}

	release, err := ratelimiter.Acquire(ctx, s.redisClient, actorID, "comment", s.cfg.CommentRateLimit)
	if err != nil {
		return nil, err
	}

	comment := &entity.PostComment{
		PostID:   postID,
		UserID:   actorID,
		Content:  content,
		IsActive: true,
	}
	if err := s.repo.AddComment(ctx, comment); err != nil {
		release()
		return nil, err
	}
	comment.User = *actor

	s.notify(ctx, notifService.CommentEvent(actor, post.UserID, post.ID, content))
	s.evaluate(ctx, actorID)

	out := toCommentResponse(comment)
	return &out, nil
}

func (s *engagementService) DeleteComment(ctx context.Context, commentID, actorID uuid.UUID) (err error) {
	defer func() { metrics.RecordOperation("comment_delete", apperror.Kind(err)) }()

	comment, err := s.repo.FindComment(ctx, commentID)
	if err != nil {
		return err
	}
	if !comment.IsActive {
		return apperror.Wrap(apperror.ErrNotFound, "comment not found")
	}
	if comment.UserID != actorID {
		return apperror.Wrap(apperror.ErrPermissionDenied, "you can only delete your own comment")
	}
	return s.repo.DeleteComment(ctx, comment)
}

func (s *engagementService) GetComments(ctx context.Context, postID uuid.UUID, limit int) ([]dto.CommentResponse, error) {
	if limit <= 0 {
		limit = defaultCommentsLimit
	}
	if limit > maxCommentsLimit {
		limit = maxCommentsLimit
	}

	if _, err := s.repo.FindActivePost(ctx, postID); err != nil {
		return nil, err
	}
	comments, err := s.repo.GetComments(ctx, postID, limit)
	if err != nil {
		return nil, err
	}

	out := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		out = append(out, toCommentResponse(&comments[i]))
	}
	return out, nil
}

func (s *engagementService) notify(ctx context.Context, event notifService.Event) {
	if s.notifier != nil {
		s.notifier.Emit(ctx, event)
	}
}

func (s *engagementService) evaluate(ctx context.Context, userID uuid.UUID) {
	if s.achievements == nil {
		return
	}
	if _, err := s.achievements.Evaluate(context.WithoutCancel(ctx), userID); err != nil {
		logger.Warn().Err(err).Str("user_id", userID.String()).Msg("achievement evaluation failed")
	}
}

func toCommentResponse(c *entity.PostComment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:        c.ID,
		PostID:    c.PostID,
		Author:    postService.NewAuthor(&c.User),
		Content:   c.Content,
		LikeCount: c.LikeCount,
		CreatedAt: c.CreatedAt,
	}
}
