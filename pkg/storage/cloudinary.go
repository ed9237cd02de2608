package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"locki.app/backend/pkg/apperror"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// BlobStorage stores user uploads (avatars, post images) and hands back public URLs.
type BlobStorage interface {
	// UploadBlob uploads the content of r under folder and returns its secure URL.
	UploadBlob(ctx context.Context, r io.Reader, folder, fileName string) (string, error)
	// DeleteBlob removes a previously uploaded blob by its URL.
	DeleteBlob(ctx context.Context, fileURL string) error
}

const (
	FolderAvatars = "avatars"
	FolderPosts   = "posts"
)

type Config struct {
	CloudName    string
	APIKey       string
	APISecret    string
	UploadFolder string
}

type cloudinaryStorage struct {
	cld          *cloudinary.Cloudinary
	uploadFolder string
}

// NewCloudinaryStorage creates the Cloudinary-backed BlobStorage. Explicit credentials win;
// otherwise the SDK falls back to CLOUDINARY_URL.
func NewCloudinaryStorage(cfg Config) (BlobStorage, error) {
	var (
		cld *cloudinary.Cloudinary
		err error
	)
	if cfg.CloudName != "" && cfg.APIKey != "" && cfg.APISecret != "" {
		cld, err = cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	} else {
		cld, err = cloudinary.New()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary client: %w", err)
	}

	cld.Config.URL.Secure = true

	return &cloudinaryStorage{cld: cld, uploadFolder: cfg.UploadFolder}, nil
}

func (s *cloudinaryStorage) UploadBlob(ctx context.Context, r io.Reader, folder, fileName string) (string, error) {
	if s == nil || s.cld == nil {
		return "", fmt.Errorf("cloudinary storage is not initialized")
	}
	if !isImage(fileName) {
		return "", apperror.Wrapf(apperror.ErrInvalidInput, "unsupported image type %q", filepath.Ext(fileName))
	}

	params := uploadParams(folder, fileName, time.Now())
	if s.uploadFolder != "" {
		params.Folder = s.uploadFolder + "/" + params.Folder
	}

	resp, err := s.cld.Upload.Upload(ctx, r, params)
	if err != nil {
		return "", fmt.Errorf("%w: upload blob: %v", apperror.ErrNetwork, err)
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("cloudinary rejected upload: %s", resp.Error.Message)
	}
	if resp.SecureURL == "" {
		return "", fmt.Errorf("cloudinary upload succeeded but secure URL is empty")
	}

	return resp.SecureURL, nil
}

// uploadParams stores every image as webp. Avatars are cropped square around the face,
// post images are only capped in width.
func uploadParams(folder, fileName string, at time.Time) uploader.UploadParams {
	base := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))

	transformation := "c_limit,w_1600,q_auto"
	if folder == FolderAvatars {
		transformation = "c_fill,g_face,w_256,h_256,q_auto"
	}

	return uploader.UploadParams{
		Folder:         folder,
		PublicID:       fmt.Sprintf("%d-%s", at.UnixNano(), base),
		UniqueFilename: api.Bool(true),
		Overwrite:      api.Bool(false),
		Format:         "webp",
		Transformation: transformation,
	}
}

func (s *cloudinaryStorage) DeleteBlob(ctx context.Context, fileURL string) error {
	if s == nil || s.cld == nil {
		return fmt.Errorf("cloudinary storage is not initialized")
	}

	publicID := extractPublicID(fileURL)
	if publicID == "" {
		return fmt.Errorf("could not extract public ID from URL: %s", fileURL)
	}

	resp, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:   publicID,
		Invalidate: api.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("failed to delete blob from cloudinary: %w", err)
	}

	if resp.Result != "ok" && resp.Result != "not found" {
		return fmt.Errorf("cloudinary destroy api returned result: %s", resp.Result)
	}

	return nil
}

func isImage(fileName string) bool {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".heic":
		return true
	}
	return false
}

// extractPublicID maps a delivery URL back to its public ID.
// https://res.cloudinary.com/demo/image/upload/v123456789/avatars/sample.jpg -> avatars/sample
func extractPublicID(fileURL string) string {
	u, err := url.Parse(fileURL)
	if err != nil {
		return ""
	}

	parts := strings.Split(u.Path, "/")
	uploadIndex := -1
	for i, p := range parts {
		if p == "upload" {
			uploadIndex = i
			break
		}
	}

	if uploadIndex == -1 || uploadIndex+1 >= len(parts) {
		return ""
	}

	relevant := parts[uploadIndex+1:]
	if len(relevant) > 1 && isVersionSegment(relevant[0]) {
		relevant = relevant[1:]
	}

	publicIDWithExt := strings.Join(relevant, "/")
	return strings.TrimSuffix(publicIDWithExt, filepath.Ext(publicIDWithExt))
}

func isVersionSegment(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
