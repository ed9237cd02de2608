package service

import (
	"context"
	"sort"

	"locki.app/backend/internal/entity"
	postDto "locki.app/backend/internal/modules/post/dto"
	postRepo "locki.app/backend/internal/modules/post/repository"
	post "locki.app/backend/internal/modules/post/service"
	"locki.app/backend/pkg/apperror"
	"locki.app/backend/pkg/database"
	"locki.app/backend/pkg/metrics"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	defaultFeedLimit = 20
	maxFeedLimit     = 100
	// maxParallelChunks bounds the chunk queries in flight for one feed.
	maxParallelChunks = 4
)

type BuddyLister interface {
	GetBuddyIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

type FeedService interface {
	// GetFeed merges the newest visible posts of the actor and everyone the actor follows.
	GetFeed(ctx context.Context, actorID uuid.UUID, limit int) ([]postDto.PostResponse, error)
}

type feedService struct {
	postRepo postRepo.PostRepository
	buddies  BuddyLister
}

func NewFeedService(postRepo postRepo.PostRepository, buddies BuddyLister) FeedService {
	return &feedService{postRepo: postRepo, buddies: buddies}
}

func (s *feedService) GetFeed(ctx context.Context, actorID uuid.UUID, limit int) (feed []postDto.PostResponse, err error) {
	defer func() { metrics.RecordOperation("feed", apperror.Kind(err)) }()

	if limit <= 0 {
		limit = defaultFeedLimit
	}
	if limit > maxFeedLimit {
		limit = maxFeedLimit
	}

	buddyIDs, err := s.buddies.GetBuddyIDs(ctx, actorID)
	if err != nil {
		return nil, err
	}
	authorIDs := append([]uuid.UUID{actorID}, buddyIDs...)

	chunks := database.ChunkIDs(authorIDs, database.MaxInFilter)
	results := make([][]entity.Post, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelChunks)
	for i, chunk := range chunks {
		g.Go(func() error {
			posts, err := s.postRepo.FindFeedChunk(gctx, chunk, actorID, limit)
			if err != nil {
				return err
			}
			results[i] = posts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	posts := mergeNewest(results, limit)

	ids := make([]uuid.UUID, 0, len(posts))
	for i := range posts {
		ids = append(ids, posts[i].ID)
	}
	liked, err := s.postRepo.LikedPostIDs(ctx, actorID, ids)
	if err != nil {
		return nil, err
	}

	feed = make([]postDto.PostResponse, 0, len(posts))
	for i := range posts {
		feed = append(feed, post.ToResponse(&posts[i], liked[posts[i].ID]))
	}
	return feed, nil
}

// mergeNewest flattens the chunk results, drops duplicate ids and keeps the newest
// limit posts ordered by created_at desc, then id desc.
func mergeNewest(chunks [][]entity.Post, limit int) []entity.Post {
	seen := make(map[uuid.UUID]bool)
	var merged []entity.Post
	for _, chunk := range chunks {
		for _, p := range chunk {
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			merged = append(merged, p)
		}
	}

	sort.Slice(merged, func(i, j int) bool {
		if !merged[i].CreatedAt.Equal(merged[j].CreatedAt) {
			return merged[i].CreatedAt.After(merged[j].CreatedAt)
		}
		return merged[i].ID.String() > merged[j].ID.String()
	})

	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
