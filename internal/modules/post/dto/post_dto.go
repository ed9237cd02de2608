package dto

import (
	"time"

	commonDto "locki.app/backend/pkg/dto"

	"github.com/google/uuid"
)

type CreatePostRequest struct {
	Title       string   `form:"title" json:"title" binding:"required,max=100"`
	Description string   `form:"description" json:"description" binding:"max=2000"`
	Hours       int      `form:"hours" json:"hours" binding:"min=0,max=24"`
	Minutes     int      `form:"minutes" json:"minutes" binding:"min=0,max=59"`
	Visibility  string   `form:"visibility" json:"visibility" binding:"omitempty,oneof=public buddies_only private"`
	Tags        []string `form:"tags" json:"tags" binding:"max=10,dive,max=30"`
}

type PostResponse struct {
	ID           uuid.UUID                `json:"id"`
	Author       commonDto.AuthorResponse `json:"author"`
	Title        string                   `json:"title"`
	Description  string                   `json:"description"`
	Hours        int                      `json:"hours"`
	Minutes      int                      `json:"minutes"`
	ImageURL     *string                  `json:"image_url,omitempty"`
	Tags         []string                 `json:"tags"`
	Visibility   string                   `json:"visibility"`
	LikeCount    int64                    `json:"like_count"`
	CommentCount int64                    `json:"comment_count"`
	ShareCount   int64                    `json:"share_count"`
	IsLiked      bool                     `json:"is_liked"`
	CreatedAt    time.Time                `json:"created_at"`
}

type PostFilter struct {
	Limit  int        `form:"limit"`
	Before *time.Time `form:"before" time_format:"2006-01-02T15:04:05Z07:00"`
}
