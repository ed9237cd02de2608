package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"locki.app/backend/internal/entity"
	buddyRepo "locki.app/backend/internal/modules/buddy/repository"
	postRepo "locki.app/backend/internal/modules/post/repository"
	"locki.app/backend/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetFeedAcrossChunks(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	buddies := buddyRepo.NewBuddyRepository(db)
	svc := NewFeedService(postRepo.NewPostRepository(db), buddies)

	base := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	ana := testutil.CreateUser(t, db, "ana")
	own := testutil.CreatePost(t, db, ana, entity.VisibilityPrivate, base)

	for i := 0; i < 25; i++ {
		buddy := testutil.CreateUser(t, db, fmt.Sprintf("buddy%02d", i))
		require.NoError(t, buddies.Send(ctx, ana.ID, buddy.ID))
		require.NoError(t, buddies.Accept(ctx, ana.ID, buddy.ID))

		at := base.Add(time.Duration(i+1) * time.Hour)
		visibility := entity.VisibilityPublic
		if i%2 == 1 {
			visibility = entity.VisibilityBuddiesOnly
		}
		testutil.CreatePost(t, db, buddy, visibility, at)
		testutil.CreatePost(t, db, buddy, entity.VisibilityPrivate, at.Add(time.Minute))
	}

	stranger := testutil.CreateUser(t, db, "stranger")
	testutil.CreatePost(t, db, stranger, entity.VisibilityPublic, base.Add(48*time.Hour))

	feed, err := svc.GetFeed(ctx, ana.ID, 50)
	require.NoError(t, err)
	require.Len(t, feed, 26)

	seen := make(map[uuid.UUID]bool)
	for i, post := range feed {
		assert.False(t, seen[post.ID], "duplicate post %s", post.ID)
		seen[post.ID] = true
		assert.NotEqual(t, "stranger", post.Author.Username)
		if post.Author.Username != "ana" {
			assert.NotEqual(t, string(entity.VisibilityPrivate), post.Visibility)
		}
		if i > 0 {
			assert.False(t, post.CreatedAt.After(feed[i-1].CreatedAt), "feed not sorted at %d", i)
		}
	}
	assert.Equal(t, "buddy24", feed[0].Author.Username)
	assert.Equal(t, own.ID, feed[25].ID)

	feed, err = svc.GetFeed(ctx, ana.ID, 0)
	require.NoError(t, err)
	assert.Len(t, feed, defaultFeedLimit)
}

func TestGetFeedMarksLikedPosts(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	svc := NewFeedService(postRepo.NewPostRepository(db), buddyRepo.NewBuddyRepository(db))

	ana := testutil.CreateUser(t, db, "ana")
	post := testutil.CreatePost(t, db, ana, entity.VisibilityPublic, time.Now())
	require.NoError(t, db.Create(&entity.PostLike{PostID: post.ID, UserID: ana.ID}).Error)

	feed, err := svc.GetFeed(ctx, ana.ID, 10)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.True(t, feed[0].IsLiked)
}

func TestMergeNewestBreaksTiesByID(t *testing.T) {
	at := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	low := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	high := uuid.MustParse("00000000-0000-0000-0000-000000000002")

	merged := mergeNewest([][]entity.Post{
		{{ID: low, CreatedAt: at}},
		{{ID: high, CreatedAt: at}, {ID: low, CreatedAt: at}},
	}, 10)

	require.Len(t, merged, 2)
	assert.Equal(t, high, merged[0].ID)
	assert.Equal(t, low, merged[1].ID)
}

func TestGetFeedHidesBuddiesOnlyFromPendingFollowers(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	buddies := buddyRepo.NewBuddyRepository(db)
	svc := NewFeedService(postRepo.NewPostRepository(db), buddies)

	base := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	ana := testutil.CreateUser(t, db, "ana")
	ben := testutil.CreateUser(t, db, "ben")
	public := testutil.CreatePost(t, db, ben, entity.VisibilityPublic, base)
	circle := testutil.CreatePost(t, db, ben, entity.VisibilityBuddiesOnly, base.Add(time.Hour))

	require.NoError(t, buddies.Send(ctx, ana.ID, ben.ID))

	feed, err := svc.GetFeed(ctx, ana.ID, 10)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, public.ID, feed[0].ID)

	require.NoError(t, buddies.Accept(ctx, ana.ID, ben.ID))

	feed, err = svc.GetFeed(ctx, ana.ID, 10)
	require.NoError(t, err)
	require.Len(t, feed, 2)
	assert.Equal(t, circle.ID, feed[0].ID)
}
