package service

import (
	"context"
	"sync"
	"testing"

	"locki.app/backend/internal/entity"
	"locki.app/backend/internal/modules/achievement/repository"
	notifService "locki.app/backend/internal/modules/notification/service"
	statRepo "locki.app/backend/internal/modules/stat/repository"
	"locki.app/backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recorder struct {
	mu     sync.Mutex
	events []notifService.Event
}

func (r *recorder) Emit(_ context.Context, event notifService.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func newService(db *gorm.DB, rec *recorder) AchievementService {
	return NewAchievementService(
		repository.NewAchievementRepository(db),
		statRepo.NewStatRepository(db),
		rec,
	)
}

func setStats(t *testing.T, db *gorm.DB, user *entity.User, updates map[string]interface{}) {
	t.Helper()
	require.NoError(t, db.Model(&entity.UserStats{}).Where("user_id = ?", user.ID).Updates(updates).Error)
}

func TestEvaluateCompletesOnce(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	rec := &recorder{}
	svc := newService(db, rec)
	user := testutil.CreateUser(t, db, "ana")

	setStats(t, db, user, map[string]interface{}{"total_posts": 1, "total_minutes": 630})

	completed, err := svc.Evaluate(ctx, user.ID)
	require.NoError(t, err)

	ids := make([]string, 0, len(completed))
	for _, a := range completed {
		ids = append(ids, a.ID)
	}
	assert.ElementsMatch(t, []string{"first_post", "hours_10"}, ids)
	require.Equal(t, 2, rec.count())
	assert.Equal(t, notifService.EventAchievement, rec.events[0].Kind)
	assert.Equal(t, user.ID, rec.events[0].Recipient)

	completed, err = svc.Evaluate(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, completed)
	assert.Equal(t, 2, rec.count())
}

func TestEvaluateConcurrentNotifiesOnce(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	rec := &recorder{}
	svc := newService(db, rec)
	user := testutil.CreateUser(t, db, "ana")

	setStats(t, db, user, map[string]interface{}{"buddy_count": 1})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Evaluate(ctx, user.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, rec.count())
}

func TestGetUserAchievements(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	svc := newService(db, &recorder{})
	user := testutil.CreateUser(t, db, "ana")

	setStats(t, db, user, map[string]interface{}{"total_posts": 4, "longest_streak": 3})
	_, err := svc.Evaluate(ctx, user.ID)
	require.NoError(t, err)

	achievements, err := svc.GetUserAchievements(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, achievements, len(Catalog))

	byID := map[string]int{}
	for i, a := range achievements {
		byID[a.ID] = i
	}

	first := achievements[byID["first_post"]]
	assert.True(t, first.IsCompleted)
	assert.NotNil(t, first.CompletedAt)

	ten := achievements[byID["posts_10"]]
	assert.False(t, ten.IsCompleted)
	assert.Equal(t, int64(4), ten.Progress)

	assert.True(t, achievements[byID["streak_3"]].IsCompleted)
	assert.False(t, achievements[byID["streak_7"]].IsCompleted)
}
