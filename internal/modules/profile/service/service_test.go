package profile

import (
	"context"
	"io"
	"strings"
	"testing"

	"locki.app/backend/internal/entity"
	buddyRepo "locki.app/backend/internal/modules/buddy/repository"
	userRepo "locki.app/backend/internal/modules/identity/repository"
	profileDto "locki.app/backend/internal/modules/profile/dto"
	settingsRepo "locki.app/backend/internal/modules/profile/repository"
	statRepo "locki.app/backend/internal/modules/stat/repository"
	statService "locki.app/backend/internal/modules/stat/service"
	"locki.app/backend/internal/testutil"
	"locki.app/backend/pkg/apperror"
	commonDto "locki.app/backend/pkg/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) UploadBlob(ctx context.Context, r io.Reader, folder, fileName string) (string, error) {
	args := m.Called(folder, fileName)
	return args.String(0), args.Error(1)
}

func (m *mockStorage) DeleteBlob(ctx context.Context, fileURL string) error {
	return m.Called(fileURL).Error(0)
}

type mockIndexer struct {
	mock.Mock
}

func (m *mockIndexer) IndexUser(user *entity.User) error {
	return m.Called(user.Username).Error(0)
}

func (m *mockIndexer) IndexPost(post *entity.Post, author *entity.User) error { return nil }

func (m *mockIndexer) DeleteUser(id string) error { return nil }

func (m *mockIndexer) DeletePost(id string) error { return nil }

type fixture struct {
	db      *gorm.DB
	svc     *profileService
	buddies buddyRepo.BuddyRepository
	ana     *entity.User
	ben     *entity.User
	cy      *entity.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	buddies := buddyRepo.NewBuddyRepository(db)
	svc := NewProfileService(
		userRepo.NewUserRepository(db),
		settingsRepo.NewSettingsRepository(db),
		buddies,
		statService.NewStatService(statRepo.NewStatRepository(db)),
		nil,
		nil,
	).(*profileService)

	return &fixture{
		db:      db,
		svc:     svc,
		buddies: buddies,
		ana:     testutil.CreateUser(t, db, "ana"),
		ben:     testutil.CreateUser(t, db, "ben"),
		cy:      testutil.CreateUser(t, db, "cy"),
	}
}

func TestGetProfileVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.buddies.Send(ctx, f.ana.ID, f.ben.ID))
	require.NoError(t, f.buddies.Accept(ctx, f.ana.ID, f.ben.ID))

	res, err := f.svc.GetProfile(ctx, f.cy.ID, "ana")
	require.NoError(t, err)
	assert.Empty(t, res.Email)
	require.NotNil(t, res.Stats)
	assert.Equal(t, int64(1), res.Stats.BuddyCount)

	require.NoError(t, f.db.Model(f.ana).Update("is_profile_public", false).Error)

	_, err = f.svc.GetProfile(ctx, f.cy.ID, "ana")
	assert.ErrorIs(t, err, apperror.ErrPermissionDenied)
	_, err = f.svc.GetProfile(ctx, f.ben.ID, "ana")
	assert.NoError(t, err)

	own, err := f.svc.GetProfile(ctx, f.ana.ID, "ana")
	require.NoError(t, err)
	assert.Equal(t, "ana@locki.test", own.Email)

	private := string(entity.ProfileVisibilityPrivate)
	_, err = f.svc.UpdateSettings(ctx, f.ana.ID, profileDto.UpdateSettingsInput{ProfileVisibility: &private})
	require.NoError(t, err)
	_, err = f.svc.GetProfile(ctx, f.ben.ID, "ana")
	assert.ErrorIs(t, err, apperror.ErrPermissionDenied)

	_, err = f.svc.GetProfile(ctx, f.ana.ID, "nobody")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	name := "  Ana <i>B.</i> "
	bio := "Writing every morning"
	closed := false
	res, err := f.svc.UpdateProfile(ctx, f.ana.ID, profileDto.UpdateProfileInput{
		DisplayName:    &name,
		Bio:            &bio,
		AllowsMessages: &closed,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Ana B.", res.DisplayName)
	assert.Equal(t, bio, res.Bio)
	assert.False(t, res.AllowsMessages)

	empty := "   "
	_, err = f.svc.UpdateProfile(ctx, f.ana.ID, profileDto.UpdateProfileInput{DisplayName: &empty}, nil)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestUpdateProfileReplacesAvatar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	old := "https://cdn.locki.test/old.png"
	require.NoError(t, f.db.Model(f.ana).Update("avatar_url", old).Error)

	store := &mockStorage{}
	store.On("UploadBlob", "avatars", "me.png").Return("https://cdn.locki.test/me.png", nil)
	store.On("DeleteBlob", old).Return(nil)
	idx := &mockIndexer{}
	idx.On("IndexUser", "ana").Return(nil)
	f.svc.fileStorage = store
	f.svc.indexer = idx

	avatar := &commonDto.UploadFile{Reader: strings.NewReader("png"), FileName: "me.png"}
	res, err := f.svc.UpdateProfile(ctx, f.ana.ID, profileDto.UpdateProfileInput{}, avatar)
	require.NoError(t, err)
	require.NotNil(t, res.AvatarURL)
	assert.Equal(t, "https://cdn.locki.test/me.png", *res.AvatarURL)

	store.AssertExpectations(t)
	idx.AssertExpectations(t)
}

func TestUpdateSettings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	off := false
	dark := "dark"
	zone := "Asia/Jakarta"
	settings, err := f.svc.UpdateSettings(ctx, f.ana.ID, profileDto.UpdateSettingsInput{
		LikeNotifications: &off,
		Theme:             &dark,
		Timezone:          &zone,
	})
	require.NoError(t, err)
	assert.False(t, settings.LikeNotifications)
	assert.True(t, settings.CommentNotifications)
	assert.Equal(t, "dark", settings.Theme)
	assert.Equal(t, "Asia/Jakarta", settings.Timezone)

	bad := "Mars/Olympus"
	_, err = f.svc.UpdateSettings(ctx, f.ana.ID, profileDto.UpdateSettingsInput{Timezone: &bad})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	stored, err := f.svc.GetSettings(ctx, f.ana.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asia/Jakarta", stored.Timezone)
}
