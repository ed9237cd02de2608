package service

import (
	"context"
	"sync"
	"testing"

	"locki.app/backend/internal/entity"
	"locki.app/backend/internal/modules/buddy/dto"
	"locki.app/backend/internal/modules/buddy/repository"
	userRepo "locki.app/backend/internal/modules/identity/repository"
	notifService "locki.app/backend/internal/modules/notification/service"
	"locki.app/backend/internal/testutil"
	"locki.app/backend/pkg/apperror"

	"github.com/google/uuid"
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

type fixture struct {
	db  *gorm.DB
	svc BuddyService
	rec *recorder
	ana *entity.User
	ben *entity.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	rec := &recorder{}
	return &fixture{
		db:  db,
		svc: NewBuddyService(repository.NewBuddyRepository(db), userRepo.NewUserRepository(db), rec, nil),
		rec: rec,
		ana: testutil.CreateUser(t, db, "ana"),
		ben: testutil.CreateUser(t, db, "ben"),
	}
}

func (f *fixture) buddyCounts(t *testing.T) (int64, int64) {
	return testutil.Stats(t, f.db, f.ana.ID).BuddyCount, testutil.Stats(t, f.db, f.ben.ID).BuddyCount
}

func (f *fixture) activeEdges(t *testing.T) int64 {
	var count int64
	require.NoError(t, f.db.Model(&entity.BuddyRelationship{}).Where("is_active = ?", true).Count(&count).Error)
	return count
}

func TestAcceptChangesCountsByOne(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.SendRequest(ctx, f.ana.ID, f.ben.ID))

	status, err := f.svc.GetStatus(ctx, f.ana.ID, f.ben.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.StatusPendingSent, status)
	status, err = f.svc.GetStatus(ctx, f.ben.ID, f.ana.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.StatusPendingReceived, status)

	pending, err := f.svc.GetPendingRequests(ctx, f.ben.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "ana", pending[0].From.Username)

	require.NoError(t, f.svc.AcceptRequest(ctx, f.ana.ID, f.ben.ID))

	ana, ben := f.buddyCounts(t)
	assert.Equal(t, int64(1), ana)
	assert.Equal(t, int64(1), ben)
	assert.Equal(t, int64(2), f.activeEdges(t))

	status, err = f.svc.GetStatus(ctx, f.ben.ID, f.ana.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.StatusBuddies, status)

	buddies, err := f.svc.GetBuddies(ctx, f.ana.ID, 0)
	require.NoError(t, err)
	require.Len(t, buddies, 1)
	assert.Equal(t, f.ben.ID, buddies[0].ID)

	isBuddy, err := f.svc.IsBuddy(ctx, f.ben.ID, f.ana.ID)
	require.NoError(t, err)
	assert.True(t, isBuddy)

	require.Len(t, f.rec.events, 2)
	assert.Equal(t, notifService.EventBuddyRequest, f.rec.events[0].Kind)
	assert.Equal(t, f.ben.ID, f.rec.events[0].Recipient)
	assert.Equal(t, notifService.EventBuddyAccepted, f.rec.events[1].Kind)
	assert.Equal(t, f.ana.ID, f.rec.events[1].Recipient)

	err = f.svc.AcceptRequest(ctx, f.ana.ID, f.ben.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	ana, ben = f.buddyCounts(t)
	assert.Equal(t, int64(1), ana)
	assert.Equal(t, int64(1), ben)
}

func TestSendRequestErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.SendRequest(ctx, f.ana.ID, f.ana.ID), apperror.ErrInvalidInput)
	assert.ErrorIs(t, f.svc.SendRequest(ctx, f.ana.ID, uuid.New()), apperror.ErrNotFound)

	require.NoError(t, f.svc.SendRequest(ctx, f.ana.ID, f.ben.ID))
	err := f.svc.SendRequest(ctx, f.ana.ID, f.ben.ID)
	assert.ErrorIs(t, err, apperror.ErrDuplicateRelationship)
	assert.ErrorIs(t, err, apperror.ErrAlreadyExists)

	assert.ErrorIs(t, f.svc.AcceptRequest(ctx, f.ben.ID, f.ana.ID), apperror.ErrNotFound)
}

func TestRemoveBuddy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.SendRequest(ctx, f.ana.ID, f.ben.ID))
	require.NoError(t, f.svc.AcceptRequest(ctx, f.ana.ID, f.ben.ID))

	require.NoError(t, f.svc.RemoveBuddy(ctx, f.ben.ID, f.ana.ID))

	assert.Equal(t, int64(0), f.activeEdges(t))
	ana, ben := f.buddyCounts(t)
	assert.Equal(t, int64(0), ana)
	assert.Equal(t, int64(0), ben)

	// Removing again is a no-op.
	require.NoError(t, f.svc.RemoveBuddy(ctx, f.ben.ID, f.ana.ID))
	ana, _ = f.buddyCounts(t)
	assert.Equal(t, int64(0), ana)

	// A removed pair can start over.
	require.NoError(t, f.svc.SendRequest(ctx, f.ana.ID, f.ben.ID))
	status, err := f.svc.GetStatus(ctx, f.ana.ID, f.ben.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.StatusPendingSent, status)
}

func TestRemovePendingRequestKeepsCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.db.Model(&entity.UserStats{}).Where("user_id = ?", f.ana.ID).Update("buddy_count", 3).Error)
	require.NoError(t, f.svc.SendRequest(ctx, f.ana.ID, f.ben.ID))
	require.NoError(t, f.svc.RemoveBuddy(ctx, f.ana.ID, f.ben.ID))

	assert.Equal(t, int64(0), f.activeEdges(t))
	ana, _ := f.buddyCounts(t)
	assert.Equal(t, int64(3), ana)
}

func TestDeclineRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.SendRequest(ctx, f.ana.ID, f.ben.ID))
	require.NoError(t, f.svc.DeclineRequest(ctx, f.ana.ID, f.ben.ID))

	status, err := f.svc.GetStatus(ctx, f.ana.ID, f.ben.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.StatusNone, status)

	assert.ErrorIs(t, f.svc.DeclineRequest(ctx, f.ana.ID, f.ben.ID), apperror.ErrNotFound)
	require.NoError(t, f.svc.SendRequest(ctx, f.ana.ID, f.ben.ID))
}

func TestConcurrentAcceptBooksOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.SendRequest(ctx, f.ana.ID, f.ben.ID))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := f.svc.AcceptRequest(ctx, f.ana.ID, f.ben.ID); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	ana, ben := f.buddyCounts(t)
	assert.Equal(t, int64(1), ana)
	assert.Equal(t, int64(1), ben)
}
