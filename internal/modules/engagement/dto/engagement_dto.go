package dto

import (
	"time"

	commonDto "locki.app/backend/pkg/dto"

	"github.com/google/uuid"
)

type CommentRequest struct {
	Content string `json:"content" binding:"required,max=1000"`
}

type CommentResponse struct {
	ID        uuid.UUID                `json:"id"`
	PostID    uuid.UUID                `json:"post_id"`
	Author    commonDto.AuthorResponse `json:"author"`
	Content   string                   `json:"content"`
	LikeCount int64                    `json:"like_count"`
	CreatedAt time.Time                `json:"created_at"`
}

// LikeResponse is the like state of a post as seen by the caller.
type LikeResponse struct {
	Liked     bool  `json:"liked"`
	LikeCount int64 `json:"like_count"`
}
