package profile

import (
	"context"
	"errors"
	"strings"
	"time"
	_ "time/tzdata"
	"unicode/utf8"

	"locki.app/backend/internal/entity"
	userRepo "locki.app/backend/internal/modules/identity/repository"
	profileDto "locki.app/backend/internal/modules/profile/dto"
	settingsRepo "locki.app/backend/internal/modules/profile/repository"
	"locki.app/backend/internal/modules/search/indexer"
	statService "locki.app/backend/internal/modules/stat/service"
	"locki.app/backend/pkg/apperror"
	commonDto "locki.app/backend/pkg/dto"
	"locki.app/backend/pkg/logger"
	"locki.app/backend/pkg/metrics"
	"locki.app/backend/pkg/storage"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

type BuddyChecker interface {
	IsBuddy(ctx context.Context, a, b uuid.UUID) (bool, error)
}

type ProfileService interface {
	// GetProfile returns username's profile as seen by viewerID.
	GetProfile(ctx context.Context, viewerID uuid.UUID, username string) (*profileDto.ProfileResponse, error)
	GetCurrentProfile(ctx context.Context, userID uuid.UUID) (*profileDto.ProfileResponse, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input profileDto.UpdateProfileInput, avatar *commonDto.UploadFile) (*profileDto.ProfileResponse, error)
	GetSettings(ctx context.Context, userID uuid.UUID) (*entity.UserSettings, error)
	UpdateSettings(ctx context.Context, userID uuid.UUID, input profileDto.UpdateSettingsInput) (*entity.UserSettings, error)
}

type profileService struct {
	repo         userRepo.UserRepository
	settingsRepo settingsRepo.SettingsRepository
	buddies      BuddyChecker
	stats        statService.StatService
	fileStorage  storage.BlobStorage
	indexer      indexer.Indexer
	policy       *bluemonday.Policy
}

func NewProfileService(
	repo userRepo.UserRepository,
	settingsRepo settingsRepo.SettingsRepository,
	buddies BuddyChecker,
	stats statService.StatService,
	fileStorage storage.BlobStorage,
	idx indexer.Indexer,
) ProfileService {
	return &profileService{
		repo:         repo,
		settingsRepo: settingsRepo,
		buddies:      buddies,
		stats:        stats,
		fileStorage:  fileStorage,
		indexer:      idx,
		policy:       bluemonday.StrictPolicy(),
	}
}

func (s *profileService) GetProfile(ctx context.Context, viewerID uuid.UUID, username string) (*profileDto.ProfileResponse, error) {
	user, err := s.repo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, apperror.Wrap(apperror.ErrNotFound, "user not found")
	}

	if user.ID != viewerID {
		visible, err := s.visibleTo(ctx, user, viewerID)
		if err != nil {
			return nil, err
		}
		if !visible {
			return nil, apperror.Wrap(apperror.ErrPermissionDenied, "this profile is private")
		}
	}

	resp := s.toResponse(ctx, user)
	if user.ID != viewerID {
		resp.Email = ""
	}
	return resp, nil
}

// visibleTo applies the profile visibility setting: private profiles are owner-only and
// buddies profiles, or profiles not marked public, are limited to buddies.
func (s *profileService) visibleTo(ctx context.Context, user *entity.User, viewerID uuid.UUID) (bool, error) {
	visibility := entity.ProfileVisibilityPublic
	settings, err := s.settingsRepo.GetSettings(ctx, user.ID)
	if err == nil {
		visibility = settings.ProfileVisibility
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return false, err
	}

	switch {
	case visibility == entity.ProfileVisibilityPrivate:
		return false, nil
	case visibility == entity.ProfileVisibilityPublic && user.IsProfilePublic:
		return true, nil
	}
	return s.buddies.IsBuddy(ctx, user.ID, viewerID)
}

func (s *profileService) GetCurrentProfile(ctx context.Context, userID uuid.UUID) (*profileDto.ProfileResponse, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.toResponse(ctx, user), nil
}

func (s *profileService) UpdateProfile(ctx context.Context, userID uuid.UUID, input profileDto.UpdateProfileInput, avatar *commonDto.UploadFile) (resp *profileDto.ProfileResponse, err error) {
	defer func() { metrics.RecordOperation("profile_update", apperror.Kind(err)) }()

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if input.DisplayName != nil {
		name := strings.TrimSpace(s.policy.Sanitize(*input.DisplayName))
		if name == "" || utf8.RuneCountInString(name) > 50 {
			return nil, apperror.Wrap(apperror.ErrInvalidInput, "display name must be 1 to 50 characters")
		}
		fields["display_name"] = name
	}
	if input.Bio != nil {
		bio := strings.TrimSpace(s.policy.Sanitize(*input.Bio))
		if utf8.RuneCountInString(bio) > 500 {
			return nil, apperror.Wrap(apperror.ErrInvalidInput, "bio must be at most 500 characters")
		}
		fields["bio"] = bio
	}
	if input.Profession != nil {
		profession := strings.TrimSpace(s.policy.Sanitize(*input.Profession))
		if utf8.RuneCountInString(profession) > 100 {
			return nil, apperror.Wrap(apperror.ErrInvalidInput, "profession must be at most 100 characters")
		}
		fields["profession"] = profession
	}
	if input.IsProfilePublic != nil {
		fields["is_profile_public"] = *input.IsProfilePublic
	}
	if input.AllowsMessages != nil {
		fields["allows_messages"] = *input.AllowsMessages
	}

	var oldAvatar *string
	if avatar != nil && avatar.Reader != nil {
		if s.fileStorage == nil {
			return nil, apperror.Wrap(apperror.ErrInvalidInput, "avatar uploads are not available")
		}
		url, err := s.fileStorage.UploadBlob(ctx, avatar.Reader, storage.FolderAvatars, avatar.FileName)
		if err != nil {
			return nil, err
		}
		fields["avatar_url"] = url
		oldAvatar = user.AvatarURL
	}

	if len(fields) > 0 {
		if err := s.repo.Updates(ctx, userID, fields); err != nil {
			if url, ok := fields["avatar_url"].(string); ok {
				s.deleteBlob(ctx, url)
			}
			return nil, err
		}
	}
	if oldAvatar != nil && *oldAvatar != "" {
		s.deleteBlob(ctx, *oldAvatar)
	}

	updated, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.indexer != nil {
		if err := s.indexer.IndexUser(updated); err != nil {
			logger.Warn().Err(err).Str("user_id", userID.String()).Msg("failed to index user")
		}
	}
	return s.toResponse(ctx, updated), nil
}

func (s *profileService) deleteBlob(ctx context.Context, url string) {
	if err := s.fileStorage.DeleteBlob(context.WithoutCancel(ctx), url); err != nil {
		logger.Warn().Err(err).Str("url", url).Msg("failed to delete blob")
	}
}

func (s *profileService) GetSettings(ctx context.Context, userID uuid.UUID) (*entity.UserSettings, error) {
	return s.settingsRepo.GetSettings(ctx, userID)
}

func (s *profileService) UpdateSettings(ctx context.Context, userID uuid.UUID, input profileDto.UpdateSettingsInput) (*entity.UserSettings, error) {
	fields := map[string]interface{}{}
	setBool := func(column string, v *bool) {
		if v != nil {
			fields[column] = *v
		}
	}
	setBool("like_notifications", input.LikeNotifications)
	setBool("comment_notifications", input.CommentNotifications)
	setBool("buddy_request_notifications", input.BuddyRequestNotifications)
	setBool("message_notifications", input.MessageNotifications)
	setBool("achievement_notifications", input.AchievementNotifications)
	setBool("reminder_notifications", input.ReminderNotifications)
	setBool("show_online_status", input.ShowOnlineStatus)
	setBool("allow_tagging", input.AllowTagging)

	if input.ProfileVisibility != nil {
		switch v := entity.ProfileVisibility(*input.ProfileVisibility); v {
		case entity.ProfileVisibilityPublic, entity.ProfileVisibilityBuddies, entity.ProfileVisibilityPrivate:
			fields["profile_visibility"] = v
		default:
			return nil, apperror.Wrapf(apperror.ErrInvalidInput, "unknown profile visibility %q", *input.ProfileVisibility)
		}
	}
	if input.Theme != nil {
		switch *input.Theme {
		case "light", "dark", "system":
			fields["theme"] = *input.Theme
		default:
			return nil, apperror.Wrapf(apperror.ErrInvalidInput, "unknown theme %q", *input.Theme)
		}
	}
	if input.Language != nil {
		fields["language"] = strings.TrimSpace(*input.Language)
	}
	if input.Timezone != nil {
		if _, err := time.LoadLocation(*input.Timezone); err != nil {
			return nil, apperror.Wrapf(apperror.ErrInvalidInput, "unknown timezone %q", *input.Timezone)
		}
		fields["timezone"] = *input.Timezone
	}

	return s.settingsRepo.UpdateSettings(ctx, userID, fields)
}

func (s *profileService) toResponse(ctx context.Context, user *entity.User) *profileDto.ProfileResponse {
	resp := &profileDto.ProfileResponse{
		ID:              user.ID,
		Username:        user.Username,
		DisplayName:     user.DisplayName,
		Bio:             user.Bio,
		Profession:      user.Profession,
		AvatarURL:       user.AvatarURL,
		IsVerified:      user.IsVerified,
		IsProfilePublic: user.IsProfilePublic,
		AllowsMessages:  user.AllowsMessages,
		JoinDate:        user.JoinDate,
		LastActiveDate:  user.LastActiveDate,
		Email:           user.Email,
	}

	if s.stats != nil {
		stats, err := s.stats.GetUserStats(ctx, user.ID)
		if err != nil {
			logger.Warn().Err(err).Str("user_id", user.ID.String()).Msg("failed to load profile stats")
		} else {
			resp.Stats = stats
		}
	}
	return resp
}
