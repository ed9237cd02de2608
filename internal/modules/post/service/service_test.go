package post

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"locki.app/backend/internal/entity"
	buddyRepo "locki.app/backend/internal/modules/buddy/repository"
	userRepo "locki.app/backend/internal/modules/identity/repository"
	postDto "locki.app/backend/internal/modules/post/dto"
	postRepo "locki.app/backend/internal/modules/post/repository"
	"locki.app/backend/internal/testutil"
	"locki.app/backend/pkg/apperror"
	commonDto "locki.app/backend/pkg/dto"

	"github.com/google/uuid"
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

func (m *mockIndexer) IndexUser(user *entity.User) error { return nil }

func (m *mockIndexer) IndexPost(post *entity.Post, author *entity.User) error {
	return m.Called(post.ID.String()).Error(0)
}

func (m *mockIndexer) DeleteUser(id string) error { return nil }

func (m *mockIndexer) DeletePost(id string) error {
	return m.Called(id).Error(0)
}

type fixture struct {
	db      *gorm.DB
	svc     *postService
	buddies buddyRepo.BuddyRepository
	ana     *entity.User
	ben     *entity.User
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	rdb, _ := testutil.NewRedis(t)
	buddies := buddyRepo.NewBuddyRepository(db)
	svc := NewPostService(
		postRepo.NewPostRepository(db),
		userRepo.NewUserRepository(db),
		buddies,
		nil,
		rdb,
		nil,
		nil,
		cfg,
	).(*postService)

	return &fixture{
		db:      db,
		svc:     svc,
		buddies: buddies,
		ana:     testutil.CreateUser(t, db, "ana"),
		ben:     testutil.CreateUser(t, db, "ben"),
	}
}

func (f *fixture) at(t time.Time) {
	f.svc.now = func() time.Time { return t }
}

func (f *fixture) makeBuddies(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.buddies.Send(ctx, f.ana.ID, f.ben.ID))
	require.NoError(t, f.buddies.Accept(ctx, f.ana.ID, f.ben.ID))
}

func session(title string, hours, minutes int, visibility entity.Visibility) postDto.CreatePostRequest {
	return postDto.CreatePostRequest{
		Title:      title,
		Hours:      hours,
		Minutes:    minutes,
		Visibility: string(visibility),
	}
}

func TestCreatePostBooksStats(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.at(time.Date(2026, 10, 12, 8, 0, 0, 0, time.UTC))

	req := session("  Thesis chapter  ", 1, 30, "")
	req.Tags = []string{"#writing", "Writing", " focus ", ""}

	resp, err := f.svc.CreatePost(ctx, f.ana.ID, req, nil)
	require.NoError(t, err)
	assert.Equal(t, "Thesis chapter", resp.Title)
	assert.Equal(t, "public", resp.Visibility)
	assert.Equal(t, []string{"writing", "focus"}, resp.Tags)
	assert.Equal(t, "ana", resp.Author.Username)

	stats := testutil.Stats(t, f.db, f.ana.ID)
	assert.Equal(t, int64(1), stats.TotalPosts)
	assert.Equal(t, int64(90), stats.TotalMinutes)
	assert.Equal(t, int64(1), stats.TotalHours)
	assert.Equal(t, 1, stats.CurrentStreak)
}

func TestCreatePostStreak(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	days := []time.Time{
		time.Date(2026, 10, 12, 8, 0, 0, 0, time.UTC),
		time.Date(2026, 10, 12, 21, 0, 0, 0, time.UTC),
		time.Date(2026, 10, 13, 7, 0, 0, 0, time.UTC),
		time.Date(2026, 10, 14, 23, 30, 0, 0, time.UTC),
	}
	for _, day := range days {
		f.at(day)
		_, err := f.svc.CreatePost(ctx, f.ana.ID, session("Reading", 0, 45, entity.VisibilityPublic), nil)
		require.NoError(t, err)
	}

	stats := testutil.Stats(t, f.db, f.ana.ID)
	assert.Equal(t, 3, stats.CurrentStreak)
	assert.Equal(t, 3, stats.LongestStreak)

	f.at(time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC))
	_, err := f.svc.CreatePost(ctx, f.ana.ID, session("Reading", 0, 45, entity.VisibilityPublic), nil)
	require.NoError(t, err)

	stats = testutil.Stats(t, f.db, f.ana.ID)
	assert.Equal(t, 1, stats.CurrentStreak)
	assert.Equal(t, 3, stats.LongestStreak)
	assert.Equal(t, int64(5), stats.TotalPosts)
}

func TestCreatePostValidation(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	tests := []struct {
		name string
		req  postDto.CreatePostRequest
	}{
		{"empty title", session("   ", 1, 0, entity.VisibilityPublic)},
		{"long title", session(strings.Repeat("a", 101), 1, 0, entity.VisibilityPublic)},
		{"zero duration", session("Nap", 0, 0, entity.VisibilityPublic)},
		{"minutes out of range", session("Work", 1, 60, entity.VisibilityPublic)},
		{"hours out of range", session("Work", 25, 0, entity.VisibilityPublic)},
		{"longer than a day", session("Work", 24, 1, entity.VisibilityPublic)},
		{"unknown visibility", session("Work", 1, 0, "friends")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreatePost(ctx, f.ana.ID, tt.req, nil)
			assert.ErrorIs(t, err, apperror.ErrInvalidInput)
		})
	}

	assert.Equal(t, int64(0), testutil.Stats(t, f.db, f.ana.ID).TotalPosts)
}

func TestCreatePostRateLimited(t *testing.T) {
	f := newFixture(t, Config{RateLimit: time.Minute})
	ctx := context.Background()

	_, err := f.svc.CreatePost(ctx, f.ana.ID, session("Work", 1, 0, entity.VisibilityPublic), nil)
	require.NoError(t, err)

	_, err = f.svc.CreatePost(ctx, f.ana.ID, session("Work", 1, 0, entity.VisibilityPublic), nil)
	assert.ErrorIs(t, err, apperror.ErrRateLimitExceeded)

	_, err = f.svc.CreatePost(ctx, f.ben.ID, session("Work", 1, 0, entity.VisibilityPublic), nil)
	assert.NoError(t, err)
}

func TestCreatePostWithImageAndIndex(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	store := &mockStorage{}
	store.On("UploadBlob", "posts", "desk.jpg").Return("https://cdn.locki.test/desk.jpg", nil)
	idx := &mockIndexer{}
	idx.On("IndexPost", mock.Anything).Return(nil)
	f.svc.fileStorage = store
	f.svc.indexer = idx

	image := &commonDto.UploadFile{Reader: strings.NewReader("jpeg"), FileName: "desk.jpg"}
	resp, err := f.svc.CreatePost(ctx, f.ana.ID, session("Desk setup", 2, 0, entity.VisibilityPublic), image)
	require.NoError(t, err)
	require.NotNil(t, resp.ImageURL)
	assert.Equal(t, "https://cdn.locki.test/desk.jpg", *resp.ImageURL)

	store.AssertExpectations(t)
	idx.AssertCalled(t, "IndexPost", resp.ID.String())
}

func TestPostVisibility(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	cy := testutil.CreateUser(t, f.db, "cy")

	public, err := f.svc.CreatePost(ctx, f.ana.ID, session("Open", 1, 0, entity.VisibilityPublic), nil)
	require.NoError(t, err)
	buddiesOnly, err := f.svc.CreatePost(ctx, f.ana.ID, session("Circle", 1, 0, entity.VisibilityBuddiesOnly), nil)
	require.NoError(t, err)
	private, err := f.svc.CreatePost(ctx, f.ana.ID, session("Diary", 1, 0, entity.VisibilityPrivate), nil)
	require.NoError(t, err)

	f.makeBuddies(t)

	_, err = f.svc.GetPost(ctx, cy.ID, public.ID)
	assert.NoError(t, err)
	_, err = f.svc.GetPost(ctx, cy.ID, buddiesOnly.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	_, err = f.svc.GetPost(ctx, f.ben.ID, buddiesOnly.ID)
	assert.NoError(t, err)
	_, err = f.svc.GetPost(ctx, f.ben.ID, private.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	_, err = f.svc.GetPost(ctx, f.ana.ID, private.ID)
	assert.NoError(t, err)

	counts := map[uuid.UUID]int{f.ana.ID: 3, f.ben.ID: 2, cy.ID: 1}
	for viewer, want := range counts {
		posts, err := f.svc.GetUserPosts(ctx, viewer, f.ana.ID, postDto.PostFilter{})
		require.NoError(t, err)
		assert.Len(t, posts, want)
	}
}

func TestDeletePost(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	idx := &mockIndexer{}
	idx.On("IndexPost", mock.Anything).Return(nil)
	idx.On("DeletePost", mock.Anything).Return(nil)
	f.svc.indexer = idx

	created, err := f.svc.CreatePost(ctx, f.ana.ID, session("Work", 1, 0, entity.VisibilityPublic), nil)
	require.NoError(t, err)

	err = f.svc.DeletePost(ctx, f.ben.ID, created.ID)
	assert.ErrorIs(t, err, apperror.ErrPermissionDenied)

	require.NoError(t, f.svc.DeletePost(ctx, f.ana.ID, created.ID))
	assert.Equal(t, int64(0), testutil.Stats(t, f.db, f.ana.ID).TotalPosts)
	idx.AssertCalled(t, "DeletePost", created.ID.String())

	_, err = f.svc.GetPost(ctx, f.ana.ID, created.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.ErrorIs(t, f.svc.DeletePost(ctx, f.ana.ID, created.ID), apperror.ErrNotFound)
}
