package post

import (
	"strings"

	"locki.app/backend/internal/entity"
	postDto "locki.app/backend/internal/modules/post/dto"
	"locki.app/backend/internal/modules/search/indexer"
	commonDto "locki.app/backend/pkg/dto"
)

const maxTags = 10

// NewAuthor maps a profile to the compact author block.
func NewAuthor(u *entity.User) commonDto.AuthorResponse {
	if u == nil || u.Username == "" {
		return commonDto.AuthorResponse{Username: "unknown"}
	}
	return commonDto.AuthorResponse{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}
}

// ToResponse maps a post with its preloaded author.
func ToResponse(post *entity.Post, liked bool) postDto.PostResponse {
	return postDto.PostResponse{
		ID:           post.ID,
		Author:       NewAuthor(&post.User),
		Title:        post.Title,
		Description:  post.Description,
		Hours:        post.Hours,
		Minutes:      post.Minutes,
		ImageURL:     post.ImageURL,
		Tags:         indexer.SplitTags(post.Tags),
		Visibility:   string(post.Visibility),
		LikeCount:    post.LikeCount,
		CommentCount: post.CommentCount,
		ShareCount:   post.ShareCount,
		IsLiked:      liked,
		CreatedAt:    post.CreatedAt,
	}
}

// normalizeTags trims, strips a leading '#', drops empties and duplicates.
func normalizeTags(tags []string) string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimPrefix(strings.TrimSpace(tag), "#")
		tag = strings.ReplaceAll(tag, ",", "")
		key := strings.ToLower(tag)
		if tag == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, tag)
		if len(out) == maxTags {
			break
		}
	}
	return strings.Join(out, ",")
}
