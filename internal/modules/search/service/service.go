package service

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"locki.app/backend/internal/entity"
	postRepo "locki.app/backend/internal/modules/post/repository"
	post "locki.app/backend/internal/modules/post/service"
	"locki.app/backend/internal/modules/search/dto"
	"locki.app/backend/internal/modules/search/repository"
	"locki.app/backend/pkg/apperror"
	"locki.app/backend/pkg/metrics"

	"github.com/google/uuid"
)

const (
	defaultSearchLimit  = 20
	maxSearchLimit      = 50
	maxQueryLength      = 100
	defaultHistoryLimit = 10
	maxHistoryLimit     = 50
	// candidateFactor widens the store query so ranking sees more than one page.
	candidateFactor = 5
)

type SearchService interface {
	SearchUsers(ctx context.Context, query string, limit int) ([]dto.UserResult, error)
	SearchPosts(ctx context.Context, viewerID uuid.UUID, query string, limit int) ([]dto.PostResult, error)
	SaveSearch(ctx context.Context, userID uuid.UUID, query, searchType string) error
	GetSearchHistory(ctx context.Context, userID uuid.UUID, limit int) ([]dto.HistoryEntry, error)
}

type searchService struct {
	repo     repository.SearchRepository
	postRepo postRepo.PostRepository
}

func NewSearchService(repo repository.SearchRepository, postRepo postRepo.PostRepository) SearchService {
	return &searchService{repo: repo, postRepo: postRepo}
}

func normalizeQuery(query string) (string, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return "", apperror.Wrap(apperror.ErrInvalidInput, "search query cannot be empty")
	}
	if utf8.RuneCountInString(query) > maxQueryLength {
		return "", apperror.Wrapf(apperror.ErrInvalidInput, "search query must be at most %d characters", maxQueryLength)
	}
	return query, nil
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

func (s *searchService) SearchUsers(ctx context.Context, query string, limit int) (results []dto.UserResult, err error) {
	defer func() { metrics.RecordOperation("search_users", apperror.Kind(err)) }()

	query, err = normalizeQuery(query)
	if err != nil {
		return nil, err
	}
	limit = clampLimit(limit, defaultSearchLimit, maxSearchLimit)

	users, err := s.repo.MatchUsers(ctx, query, limit*candidateFactor)
	if err != nil {
		return nil, err
	}

	results = make([]dto.UserResult, 0, len(users))
	for i := range users {
		u := &users[i]
		score := ScoreUser(u, query)
		if score == 0 {
			continue
		}
		results = append(results, dto.UserResult{
			AuthorResponse: post.NewAuthor(u),
			Bio:            u.Bio,
			Profession:     u.Profession,
			Relevance:      score,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Relevance != results[j].Relevance {
			return results[i].Relevance > results[j].Relevance
		}
		return results[i].Username < results[j].Username
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *searchService) SearchPosts(ctx context.Context, viewerID uuid.UUID, query string, limit int) (results []dto.PostResult, err error) {
	defer func() { metrics.RecordOperation("search_posts", apperror.Kind(err)) }()

	query, err = normalizeQuery(query)
	if err != nil {
		return nil, err
	}
	limit = clampLimit(limit, defaultSearchLimit, maxSearchLimit)

	posts, err := s.repo.MatchPosts(ctx, query, limit*candidateFactor)
	if err != nil {
		return nil, err
	}

	type scored struct {
		post  *entity.Post
		score int
	}
	ranked := make([]scored, 0, len(posts))
	for i := range posts {
		if score := ScorePost(&posts[i], query); score > 0 {
			ranked = append(ranked, scored{post: &posts[i], score: score})
		}
	}
	// Posts arrive newest first, so a stable sort keeps recency within a score.
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	ids := make([]uuid.UUID, 0, len(ranked))
	for _, r := range ranked {
		ids = append(ids, r.post.ID)
	}
	liked, err := s.postRepo.LikedPostIDs(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}

	results = make([]dto.PostResult, 0, len(ranked))
	for _, r := range ranked {
		results = append(results, dto.PostResult{
			PostResponse: post.ToResponse(r.post, liked[r.post.ID]),
			Relevance:    r.score,
		})
	}
	return results, nil
}

func (s *searchService) SaveSearch(ctx context.Context, userID uuid.UUID, query, searchType string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return apperror.Wrap(apperror.ErrInvalidInput, "search query cannot be empty")
	}
	if utf8.RuneCountInString(query) > maxQueryLength {
		return apperror.Wrapf(apperror.ErrInvalidInput, "search query must be at most %d characters", maxQueryLength)
	}
	switch searchType {
	case "":
		searchType = dto.TypeAll
	case dto.TypeUsers, dto.TypePosts, dto.TypeAll:
	default:
		return apperror.Wrapf(apperror.ErrInvalidInput, "unknown search type %q", searchType)
	}

	return s.repo.SaveSearch(ctx, &entity.SearchHistory{UserID: userID, Query: query, Type: searchType})
}

func (s *searchService) GetSearchHistory(ctx context.Context, userID uuid.UUID, limit int) ([]dto.HistoryEntry, error) {
	entries, err := s.repo.GetHistory(ctx, userID, clampLimit(limit, defaultHistoryLimit, maxHistoryLimit))
	if err != nil {
		return nil, err
	}

	out := make([]dto.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.HistoryEntry{Query: e.Query, Type: e.Type})
	}
	return out, nil
}
