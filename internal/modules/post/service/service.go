package post

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"locki.app/backend/internal/entity"
	achievementService "locki.app/backend/internal/modules/achievement/service"
	userRepo "locki.app/backend/internal/modules/identity/repository"
	postDto "locki.app/backend/internal/modules/post/dto"
	postRepo "locki.app/backend/internal/modules/post/repository"
	"locki.app/backend/internal/modules/search/indexer"
	"locki.app/backend/pkg/apperror"
	commonDto "locki.app/backend/pkg/dto"
	"locki.app/backend/pkg/logger"
	"locki.app/backend/pkg/metrics"
	"locki.app/backend/pkg/ratelimiter"
	"locki.app/backend/pkg/storage"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
)

const (
	maxTitleLength    = 100
	maxSessionMinutes = 24 * 60
	defaultPostsLimit = 20
	maxPostsLimit     = 100
)

// BuddyChecker reports whether two users are mutual buddies.
type BuddyChecker interface {
	IsBuddy(ctx context.Context, a, b uuid.UUID) (bool, error)
}

type PostService interface {
	CreatePost(ctx context.Context, userID uuid.UUID, req postDto.CreatePostRequest, image *commonDto.UploadFile) (*postDto.PostResponse, error)
	GetPost(ctx context.Context, viewerID, postID uuid.UUID) (*postDto.PostResponse, error)
	GetUserPosts(ctx context.Context, viewerID, ownerID uuid.UUID, filter postDto.PostFilter) ([]postDto.PostResponse, error)
	DeletePost(ctx context.Context, userID, postID uuid.UUID) error
}

type Config struct {
	RateLimit time.Duration
}

type postService struct {
	postRepo     postRepo.PostRepository
	userRepo     userRepo.UserRepository
	buddies      BuddyChecker
	fileStorage  storage.BlobStorage
	redisClient  *redis.Client
	indexer      indexer.Indexer
	achievements achievementService.Evaluator
	policy       *bluemonday.Policy
	cfg          Config
	now          func() time.Time
}

func NewPostService(
	postRepo postRepo.PostRepository,
	userRepo userRepo.UserRepository,
	buddies BuddyChecker,
	fileStorage storage.BlobStorage,
	redisClient *redis.Client,
	idx indexer.Indexer,
	achievements achievementService.Evaluator,
	cfg Config,
) PostService {
	return &postService{
		postRepo:     postRepo,
		userRepo:     userRepo,
		buddies:      buddies,
		fileStorage:  fileStorage,
		redisClient:  redisClient,
		indexer:      idx,
		achievements: achievements,
		policy:       bluemonday.StrictPolicy(),
		cfg:          cfg,
		now:          time.Now,
	}
}

func validate(req *postDto.CreatePostRequest) error {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return apperror.Wrap(apperror.ErrInvalidInput, "title is required")
	}
	if utf8.RuneCountInString(req.Title) > maxTitleLength {
		return apperror.Wrapf(apperror.ErrInvalidInput, "title must be at most %d characters", maxTitleLength)
	}
	if req.Hours < 0 || req.Hours > 24 || req.Minutes < 0 || req.Minutes > 59 {
		return apperror.Wrap(apperror.ErrInvalidInput, "hours must be 0-24 and minutes 0-59")
	}
	total := req.Hours*60 + req.Minutes
	if total == 0 {
		return apperror.Wrap(apperror.ErrInvalidInput, "a session must last at least one minute")
	}
	if total > maxSessionMinutes {
		return apperror.Wrap(apperror.ErrInvalidInput, "a session cannot exceed 24 hours")
	}
	if req.Visibility == "" {
		req.Visibility = string(entity.VisibilityPublic)
	}
	if !entity.Visibility(req.Visibility).Valid() {
		return apperror.Wrapf(apperror.ErrInvalidInput, "unknown visibility %q", req.Visibility)
	}
	return nil
}

func (s *postService) CreatePost(ctx context.Context, userID uuid.UUID, req postDto.CreatePostRequest, image *commonDto.UploadFile) (resp *postDto.PostResponse, err error) {
	defer func() { metrics.RecordOperation("post_create", apperror.Kind(err)) }()

	if err := validate(&req); err != nil {
		return nil, err
	}

	author, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	release, err := ratelimiter.Acquire(ctx, s.redisClient, userID, "post", s.cfg.RateLimit)
	if err != nil {
		return nil, err
	}
	// Give the cooldown back if the post is not created.
	created := false
	defer func() {
		if !created {
			release()
		}
	}()

	post := &entity.Post{
		UserID:      userID,
		Title:       s.policy.Sanitize(req.Title),
		Description: s.policy.Sanitize(strings.TrimSpace(req.Description)),
		Hours:       req.Hours,
		Minutes:     req.Minutes,
		Tags:        normalizeTags(req.Tags),
		Visibility:  entity.Visibility(req.Visibility),
		IsActive:    true,
		CreatedAt:   s.now().UTC(),
	}

	if image != nil && image.Reader != nil {
		if s.fileStorage == nil {
			return nil, apperror.Wrap(apperror.ErrInvalidInput, "image uploads are not available")
		}
		url, err := s.fileStorage.UploadBlob(ctx, image.Reader, storage.FolderPosts, image.FileName)
		if err != nil {
			return nil, err
		}
		post.ImageURL = &url
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		if post.ImageURL != nil {
			_ = s.fileStorage.DeleteBlob(context.WithoutCancel(ctx), *post.ImageURL)
		}
		return nil, err
	}
	created = true
	post.User = *author

	if s.indexer != nil {
		if err := s.indexer.IndexPost(post, author); err != nil {
			logger.Warn().Err(err).Str("post_id", post.ID.String()).Msg("failed to index post")
		}
	}
	if s.achievements != nil {
		if _, err := s.achievements.Evaluate(context.WithoutCancel(ctx), userID); err != nil {
			logger.Warn().Err(err).Str("user_id", userID.String()).Msg("achievement evaluation failed")
		}
	}

	out := ToResponse(post, false)
	return &out, nil
}

// canView applies the visibility rule: owners see everything, buddies see
// buddies_only posts, everyone sees public ones.
func (s *postService) canView(ctx context.Context, viewerID uuid.UUID, post *entity.Post) (bool, error) {
	if post.UserID == viewerID {
		return true, nil
	}
	switch post.Visibility {
	case entity.VisibilityPublic:
		return true, nil
	case entity.VisibilityBuddiesOnly:
		return s.buddies.IsBuddy(ctx, post.UserID, viewerID)
	default:
		return false, nil
	}
}

func (s *postService) GetPost(ctx context.Context, viewerID, postID uuid.UUID) (*postDto.PostResponse, error) {
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !post.IsActive {
		return nil, apperror.Wrap(apperror.ErrNotFound, "post not found")
	}

	ok, err := s.canView(ctx, viewerID, post)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.Wrap(apperror.ErrNotFound, "post not found")
	}

	liked, err := s.postRepo.LikedPostIDs(ctx, viewerID, []uuid.UUID{post.ID})
	if err != nil {
		return nil, err
	}

	out := ToResponse(post, liked[post.ID])
	return &out, nil
}

func (s *postService) GetUserPosts(ctx context.Context, viewerID, ownerID uuid.UUID, filter postDto.PostFilter) ([]postDto.PostResponse, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultPostsLimit
	}
	if limit > maxPostsLimit {
		limit = maxPostsLimit
	}

	visibilities := []entity.Visibility{entity.VisibilityPublic}
	if viewerID == ownerID {
		visibilities = append(visibilities, entity.VisibilityBuddiesOnly, entity.VisibilityPrivate)
	} else {
		isBuddy, err := s.buddies.IsBuddy(ctx, ownerID, viewerID)
		if err != nil {
			return nil, err
		}
		if isBuddy {
			visibilities = append(visibilities, entity.VisibilityBuddiesOnly)
		}
	}

	posts, err := s.postRepo.FindByAuthor(ctx, ownerID, visibilities, filter.Before, limit)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	liked, err := s.postRepo.LikedPostIDs(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}

	out := make([]postDto.PostResponse, 0, len(posts))
	for i := range posts {
		out = append(out, ToResponse(&posts[i], liked[posts[i].ID]))
	}
	return out, nil
}

func (s *postService) DeletePost(ctx context.Context, userID, postID uuid.UUID) (err error) {
	defer func() { metrics.RecordOperation("post_delete", apperror.Kind(err)) }()

	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return err
	}
	if !post.IsActive {
		return apperror.Wrap(apperror.ErrNotFound, "post not found")
	}
	if post.UserID != userID {
		return apperror.Wrap(apperror.ErrPermissionDenied, "you can only delete your own post")
	}

	if err := s.postRepo.SoftDelete(ctx, postID, userID); err != nil {
		return err
	}

	if s.indexer != nil {
		if err := s.indexer.DeletePost(postID.String()); err != nil {
			logger.Warn().Err(err).Str("post_id", postID.String()).Msg("failed to remove post from index")
		}
	}
	return nil
}
