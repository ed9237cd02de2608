package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"locki.app/backend/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPublicID(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"versioned", "https://res.cloudinary.com/demo/image/upload/v123456789/avatars/sample.jpg", "avatars/sample"},
		{"unversioned", "https://res.cloudinary.com/demo/image/upload/posts/run.webp", "posts/run"},
		{"folder starting with v", "https://res.cloudinary.com/demo/image/upload/videos/clip.png", "videos/clip"},
		{"no upload segment", "https://example.com/a/b.png", ""},
		{"garbage", "://bad", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractPublicID(tt.url))
		})
	}
}

func TestIsImage(t *testing.T) {
	assert.True(t, isImage("photo.JPG"))
	assert.True(t, isImage("shot.heic"))
	assert.False(t, isImage("notes.pdf"))
}

func TestUploadParams(t *testing.T) {
	at := time.Unix(1700000000, 0)

	avatar := uploadParams(FolderAvatars, "me.png", at)
	assert.Equal(t, "avatars", avatar.Folder)
	assert.Equal(t, "1700000000000000000-me", avatar.PublicID)
	assert.Equal(t, "webp", avatar.Format)
	assert.Contains(t, avatar.Transformation, "g_face")

	post := uploadParams(FolderPosts, "desk setup.jpeg", at)
	assert.Equal(t, "1700000000000000000-desk setup", post.PublicID)
	assert.Equal(t, "c_limit,w_1600,q_auto", post.Transformation)
}

func TestUploadRejectsNonImages(t *testing.T) {
	store, err := NewCloudinaryStorage(Config{CloudName: "demo", APIKey: "key", APISecret: "secret"})
	require.NoError(t, err)

	_, err = store.UploadBlob(context.Background(), strings.NewReader("%PDF"), FolderPosts, "notes.pdf")
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}
