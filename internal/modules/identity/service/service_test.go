package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"locki.app/backend/internal/entity"
	"locki.app/backend/internal/modules/identity/dto"
	"locki.app/backend/internal/modules/identity/provider"
	"locki.app/backend/internal/modules/identity/repository"
	"locki.app/backend/internal/testutil"
	"locki.app/backend/pkg/apperror"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeVerifier struct {
	identity *provider.ExternalIdentity
}

func (f *fakeVerifier) VerifyIDToken(ctx context.Context, idToken string) (*provider.ExternalIdentity, error) {
	if idToken != "valid" {
		return nil, provider.ErrInvalidToken
	}
	return f.identity, nil
}

func newTestService(t *testing.T, verifier provider.TokenVerifier) (*authService, repository.UserRepository) {
	t.Helper()

	db := testutil.NewDB(t)
	rdb, _ := testutil.NewRedis(t)
	repo := repository.NewUserRepository(db)

	svc := NewAuthService(repo, rdb, Config{Secret: "test-secret", SettleDelay: 10 * time.Millisecond}, verifier, nil, nil).(*authService)
	svc.bcryptCost = bcrypt.MinCost
	return svc, repo
}

func signUp(t *testing.T, svc *authService, username string) *dto.AuthResponse {
	t.Helper()

	res, err := svc.SignUp(context.Background(), dto.SignUpInput{
		Email:    username + "@locki.test",
		Password: "password123",
		Username: username,
	})
	require.NoError(t, err)
	return res
}

func TestSignUpSignInResolve(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	res := signUp(t, svc, "ana")
	assert.Equal(t, "Bearer", res.TokenType)
	assert.Equal(t, "ana", res.User.DisplayName)

	actor, err := svc.ResolveActor(ctx, res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, actor.ID)

	signIn, err := svc.SignIn(ctx, dto.SignInInput{Email: "ANA@locki.test", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, signIn.User.ID)
	assert.NotNil(t, signIn.User.LastActiveDate)
}

func TestSignUpCreatesStatsAndSettings(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewAuthService(repository.NewUserRepository(db), nil, Config{}, nil, nil, nil).(*authService)
	svc.bcryptCost = bcrypt.MinCost

	res := signUp(t, svc, "ana")

	stats := testutil.Stats(t, db, res.User.ID)
	assert.Equal(t, int64(0), stats.TotalPosts)

	var settings entity.UserSettings
	require.NoError(t, db.Where("user_id = ?", res.User.ID).First(&settings).Error)
	assert.True(t, settings.LikeNotifications)
}

func TestSignUpRejectsTakenUsername(t *testing.T) {
	svc, _ := newTestService(t, nil)
	signUp(t, svc, "ana")

	_, err := svc.SignUp(context.Background(), dto.SignUpInput{Email: "other@locki.test", Password: "password123", Username: "ana"})
	assert.ErrorIs(t, err, apperror.ErrAlreadyExists)

	_, err = svc.SignUp(context.Background(), dto.SignUpInput{Email: "ana@locki.test", Password: "password123", Username: "ana2"})
	assert.ErrorIs(t, err, apperror.ErrAlreadyExists)
}

func TestSignInFailures(t *testing.T) {
	svc, _ := newTestService(t, nil)
	signUp(t, svc, "ana")

	tests := []struct {
		name  string
		input dto.SignInInput
	}{
		{"wrong password", dto.SignInInput{Email: "ana@locki.test", Password: "nope-nope"}},
		{"unknown email", dto.SignInInput{Email: "ghost@locki.test", Password: "password123"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SignIn(context.Background(), tt.input)
			assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
		})
	}
}

func TestResolveActorRejects(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.ResolveActor(ctx, "not-a-jwt")
		assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
	})

	t.Run("signed out token", func(t *testing.T) {
		res := signUp(t, svc, "ana")
		require.NoError(t, svc.SignOut(ctx, res.AccessToken))

		_, err := svc.ResolveActor(ctx, res.AccessToken)
		assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
	})

	t.Run("deactivated account", func(t *testing.T) {
		res := signUp(t, svc, "ben")
		require.NoError(t, svc.DeactivateAccount(ctx, res.User.ID))

		_, err := svc.ResolveActor(ctx, res.AccessToken)
		assert.ErrorIs(t, err, apperror.ErrUnauthenticated)

		_, err = svc.SignIn(ctx, dto.SignInInput{Email: "ben@locki.test", Password: "password123"})
		assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
	})

	t.Run("token from another secret", func(t *testing.T) {
		other := NewAuthService(nil, nil, Config{Secret: "other"}, nil, nil, nil).(*authService)
		token, _, err := other.generateToken(&entity.User{ID: uuid.New()})
		require.NoError(t, err)

		_, err = svc.ResolveActor(ctx, token)
		assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
	})
}

func TestPasswordReset(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	signUp(t, svc, "ana")

	token, err := svc.ResetPassword(ctx, "ghost@locki.test")
	require.NoError(t, err)
	assert.Empty(t, token)

	token, err = svc.ResetPassword(ctx, "ana@locki.test")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	require.NoError(t, svc.ConfirmPasswordReset(ctx, token, "new-password"))

	_, err = svc.SignIn(ctx, dto.SignInInput{Email: "ana@locki.test", Password: "new-password"})
	assert.NoError(t, err)

	err = svc.ConfirmPasswordReset(ctx, token, "another-password")
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
}

func TestCredentialChangesRequireReauthentication(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	res := signUp(t, svc, "ana")

	assert.ErrorIs(t, svc.Reauthenticate(ctx, res.User.ID, "wrong-password"), apperror.ErrUnauthenticated)
	assert.NoError(t, svc.Reauthenticate(ctx, res.User.ID, "password123"))

	err := svc.UpdatePassword(ctx, res.User.ID, "wrong-password", "new-password")
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)

	require.NoError(t, svc.UpdatePassword(ctx, res.User.ID, "password123", "new-password"))

	_, err = svc.UpdateEmail(ctx, res.User.ID, "password123", "ana2@locki.test")
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)

	user, err := svc.UpdateEmail(ctx, res.User.ID, "new-password", "Ana2@locki.test")
	require.NoError(t, err)
	assert.Equal(t, "ana2@locki.test", user.Email)
	assert.False(t, user.IsVerified)
}

func TestUsernameOperations(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	ana := signUp(t, svc, "ana")
	signUp(t, svc, "ben")

	available, err := svc.IsUsernameAvailable(ctx, "ben")
	require.NoError(t, err)
	assert.False(t, available)

	available, err = svc.IsUsernameAvailable(ctx, "cara")
	require.NoError(t, err)
	assert.True(t, available)

	_, err = svc.IsUsernameAvailable(ctx, "no spaces")
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = svc.UpdateUsername(ctx, ana.User.ID, "ben")
	assert.ErrorIs(t, err, apperror.ErrAlreadyExists)

	user, err := svc.UpdateUsername(ctx, ana.User.ID, "cara")
	require.NoError(t, err)
	assert.Equal(t, "cara", user.Username)
}

func TestSignInWithFirebase(t *testing.T) {
	verifier := &fakeVerifier{identity: &provider.ExternalIdentity{
		Subject:       "fb-1",
		Email:         "Dana.Fox@locki.test",
		EmailVerified: true,
		Name:          "Dana",
	}}
	svc, repo := newTestService(t, verifier)
	ctx := context.Background()

	first, err := svc.SignInWithFirebase(ctx, "valid")
	require.NoError(t, err)
	assert.Equal(t, "danafox", first.User.Username)
	assert.True(t, first.User.IsVerified)

	second, err := svc.SignInWithFirebase(ctx, "valid")
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, second.User.ID)

	linked, err := repo.FindByFirebaseUID(ctx, "fb-1")
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, linked.ID)

	_, err = svc.SignInWithFirebase(ctx, "forged")
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
}

func TestSignInWithFirebaseLinksExistingEmail(t *testing.T) {
	verifier := &fakeVerifier{identity: &provider.ExternalIdentity{Subject: "fb-2", Email: "ana@locki.test"}}
	svc, _ := newTestService(t, verifier)

	local := signUp(t, svc, "ana")

	res, err := svc.SignInWithFirebase(context.Background(), "valid")
	require.NoError(t, err)
	assert.Equal(t, local.User.ID, res.User.ID)
}

func TestSignInWithFirebaseUnconfigured(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.SignInWithFirebase(context.Background(), "valid")
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
}

type mockUserRepository struct {
	mock.Mock
	repository.UserRepository
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	args := m.Called(ctx, id)
	if user, ok := args.Get(0).(*entity.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func TestWaitForProfile(t *testing.T) {
	userID := uuid.New()

	t.Run("settles on a later attempt", func(t *testing.T) {
		repo := new(mockUserRepository)
		repo.On("FindByID", mock.Anything, userID).Return(nil, apperror.ErrNotFound).Twice()
		repo.On("FindByID", mock.Anything, userID).Return(&entity.User{ID: userID}, nil).Once()

		svc := NewAuthService(repo, nil, Config{SettleDelay: time.Millisecond}, nil, nil, nil)

		user, err := svc.WaitForProfile(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, userID, user.ID)
		repo.AssertNumberOfCalls(t, "FindByID", 3)
	})

	t.Run("gives up after three attempts", func(t *testing.T) {
		repo := new(mockUserRepository)
		repo.On("FindByID", mock.Anything, userID).Return(nil, apperror.ErrNotFound)

		svc := NewAuthService(repo, nil, Config{SettleDelay: time.Millisecond}, nil, nil, nil)

		_, err := svc.WaitForProfile(context.Background(), userID)
		assert.ErrorIs(t, err, apperror.ErrNotFound)
		repo.AssertNumberOfCalls(t, "FindByID", 3)
	})

	t.Run("stops on other errors", func(t *testing.T) {
		repo := new(mockUserRepository)
		repo.On("FindByID", mock.Anything, userID).Return(nil, apperror.ErrNetwork)

		svc := NewAuthService(repo, nil, Config{SettleDelay: time.Millisecond}, nil, nil, nil)

		_, err := svc.WaitForProfile(context.Background(), userID)
		assert.ErrorIs(t, err, apperror.ErrNetwork)
		repo.AssertNumberOfCalls(t, "FindByID", 1)
	})

	t.Run("honours cancellation", func(t *testing.T) {
		repo := new(mockUserRepository)
		svc := NewAuthService(repo, nil, Config{SettleDelay: time.Hour}, nil, nil, nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := svc.WaitForProfile(ctx, userID)
		assert.True(t, errors.Is(err, context.Canceled))
		repo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})
}

func TestResolveActorWaitsForFreshProfile(t *testing.T) {
	userID := uuid.New()
	cfg := Config{Secret: "test-secret", SettleDelay: time.Millisecond}

	t.Run("fresh token settles", func(t *testing.T) {
		repo := new(mockUserRepository)
		repo.On("FindByID", mock.Anything, userID).Return(nil, apperror.ErrNotFound).Twice()
		repo.On("FindByID", mock.Anything, userID).Return(&entity.User{ID: userID, IsActive: true}, nil).Once()
		svc := NewAuthService(repo, nil, cfg, nil, nil, nil).(*authService)

		token, _, err := svc.generateToken(&entity.User{ID: userID})
		require.NoError(t, err)

		user, err := svc.ResolveActor(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, userID, user.ID)
		repo.AssertNumberOfCalls(t, "FindByID", 3)
	})

	t.Run("fresh token for a missing profile", func(t *testing.T) {
		repo := new(mockUserRepository)
		repo.On("FindByID", mock.Anything, userID).Return(nil, apperror.ErrNotFound)
		svc := NewAuthService(repo, nil, cfg, nil, nil, nil).(*authService)

		token, _, err := svc.generateToken(&entity.User{ID: userID})
		require.NoError(t, err)

		_, err = svc.ResolveActor(context.Background(), token)
		assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
		repo.AssertNumberOfCalls(t, "FindByID", 1+settleAttempts)
	})

	t.Run("old token does not wait", func(t *testing.T) {
		repo := new(mockUserRepository)
		repo.On("FindByID", mock.Anything, userID).Return(nil, apperror.ErrNotFound)
		svc := NewAuthService(repo, nil, cfg, nil, nil, nil).(*authService)

		issued := time.Now().Add(-2 * time.Hour)
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(24 * time.Hour)),
		}).SignedString([]byte("test-secret"))
		require.NoError(t, err)

		_, err = svc.ResolveActor(context.Background(), token)
		assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
		repo.AssertNumberOfCalls(t, "FindByID", 1)
	})
}
