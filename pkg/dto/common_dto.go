package dto

import (
	"io"

	"github.com/google/uuid"
)

// AuthorResponse is the compact profile embedded in posts, comments and feeds.
type AuthorResponse struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	AvatarURL   *string   `json:"avatar_url"`
}

// UploadFile is an image received from a multipart form.
type UploadFile struct {
	Reader   io.Reader
	FileName string
}
