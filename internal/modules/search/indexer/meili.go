package indexer

import (
	"html"
	"strings"

	"locki.app/backend/internal/entity"
	"locki.app/backend/pkg/logger"

	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
)

const (
	usersIndex = "users"
	postsIndex = "posts"
)

// Indexer mirrors profiles and public posts into the search engine.
type Indexer interface {
	IndexUser(user *entity.User) error
	IndexPost(post *entity.Post, author *entity.User) error
	DeleteUser(id string) error
	DeletePost(id string) error
}

type meiliIndexer struct {
	client    meilisearch.ServiceManager
	sanitizer *bluemonday.Policy
}

func NewMeiliIndexer(client meilisearch.ServiceManager) Indexer {
	s := &meiliIndexer{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
	}
	s.initIndexes()
	return s
}

func (s *meiliIndexer) initIndexes() {
	userFilterable := []any{"is_active"}
	if _, err := s.client.Index(usersIndex).UpdateFilterableAttributes(&userFilterable); err != nil {
		logger.Warn().Err(err).Str("index", usersIndex).Msg("failed to update filterable attributes")
	}

	postFilterable := []any{"visibility", "user_id", "tags"}
	if _, err := s.client.Index(postsIndex).UpdateFilterableAttributes(&postFilterable); err != nil {
		logger.Warn().Err(err).Str("index", postsIndex).Msg("failed to update filterable attributes")
	}

	postSortable := []string{"created_at", "like_count"}
	if _, err := s.client.Index(postsIndex).UpdateSortableAttributes(&postSortable); err != nil {
		logger.Warn().Err(err).Str("index", postsIndex).Msg("failed to update sortable attributes")
	}

	logger.Info().Msg("meilisearch indexes initialized")
}

type userDoc struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio"`
	Profession  string `json:"profession"`
	AvatarURL   string `json:"avatar_url"`
	IsActive    bool   `json:"is_active"`
}

type postDoc struct {
	ID          string   `json:"id"`
	UserID      string   `json:"user_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Visibility  string   `json:"visibility"`
	Minutes     int64    `json:"minutes"`
	LikeCount   int64    `json:"like_count"`
	CreatedAt   int64    `json:"created_at"`
	Username    string   `json:"username"`
}

// CleanText strips markup and collapses whitespace so indexed text matches what users see.
func CleanText(policy *bluemonday.Policy, content string) string {
	content = strings.ReplaceAll(content, "</p>", " ")
	content = strings.ReplaceAll(content, "<br>", " ")
	content = strings.ReplaceAll(content, "</div>", " ")

	cleaned := html.UnescapeString(policy.Sanitize(content))
	return strings.Join(strings.Fields(cleaned), " ")
}

// SplitTags turns the stored comma separated tag list into a slice.
func SplitTags(tags string) []string {
	out := []string{}
	for _, tag := range strings.Split(tags, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

func (s *meiliIndexer) IndexUser(user *entity.User) error {
	doc := userDoc{
		ID:          user.ID.String(),
		Username:    user.Username,
		DisplayName: CleanText(s.sanitizer, user.DisplayName),
		Bio:         CleanText(s.sanitizer, user.Bio),
		Profession:  CleanText(s.sanitizer, user.Profession),
		AvatarURL:   stringOrEmpty(user.AvatarURL),
		IsActive:    user.IsActive,
	}

	task, err := s.client.Index(usersIndex).AddDocuments([]userDoc{doc}, strPtr("id"))
	if err != nil {
		return err
	}
	logger.Debug().Str("user_id", doc.ID).Int64("task_uid", task.TaskUID).Msg("indexed user")
	return nil
}

func (s *meiliIndexer) IndexPost(post *entity.Post, author *entity.User) error {
	doc := postDoc{
		ID:          post.ID.String(),
		UserID:      post.UserID.String(),
		Title:       CleanText(s.sanitizer, post.Title),
		Description: CleanText(s.sanitizer, post.Description),
		Tags:        SplitTags(post.Tags),
		Visibility:  string(post.Visibility),
		Minutes:     post.DurationMinutes(),
		LikeCount:   post.LikeCount,
		CreatedAt:   post.CreatedAt.Unix(),
	}
	if author != nil {
		doc.Username = author.Username
	}

	task, err := s.client.Index(postsIndex).AddDocuments([]postDoc{doc}, strPtr("id"))
	if err != nil {
		return err
	}
	logger.Debug().Str("post_id", doc.ID).Int64("task_uid", task.TaskUID).Msg("indexed post")
	return nil
}

func (s *meiliIndexer) DeleteUser(id string) error {
	_, err := s.client.Index(usersIndex).DeleteDocument(id)
	return err
}

func (s *meiliIndexer) DeletePost(id string) error {
	_, err := s.client.Index(postsIndex).DeleteDocument(id)
	return err
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func strPtr(s string) *string {
	return &s
}
