package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"locki.app/backend/internal/entity"
	"locki.app/backend/internal/modules/identity/dto"
	"locki.app/backend/internal/modules/identity/provider"
	"locki.app/backend/internal/modules/identity/repository"
	"locki.app/backend/internal/modules/search/indexer"
	"locki.app/backend/pkg/apperror"
	"locki.app/backend/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const (
	settleAttempts = 3
	// settleWindow is how long after issue a token may point at a profile that is not yet
	// readable.
	settleWindow = time.Minute
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,30}$`)

var (
	errInvalidCredentials = apperror.Wrap(apperror.ErrUnauthenticated, "invalid credentials")
	errInvalidToken       = apperror.Wrap(apperror.ErrUnauthenticated, "invalid or expired token")
	errUsernameTaken      = apperror.Wrap(apperror.ErrAlreadyExists, "username is already taken")
)

type AuthService interface {
	SignUp(ctx context.Context, input dto.SignUpInput) (*dto.AuthResponse, error)
	SignIn(ctx context.Context, input dto.SignInInput) (*dto.AuthResponse, error)
	SignInWithFirebase(ctx context.Context, idToken string) (*dto.AuthResponse, error)
	GoogleLogin(state string) (string, error)
	GoogleCallback(ctx context.Context, code string) (*dto.AuthResponse, error)
	SignOut(ctx context.Context, token string) error

	// ResetPassword issues a reset token for email. Unknown emails yield an empty token
	// and no error.
	ResetPassword(ctx context.Context, email string) (string, error)
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error
	Reauthenticate(ctx context.Context, actorID uuid.UUID, password string) error
	UpdatePassword(ctx context.Context, actorID uuid.UUID, current, newPassword string) error
	UpdateEmail(ctx context.Context, actorID uuid.UUID, password, newEmail string) (*entity.User, error)

	// ResolveActor maps a bearer token to the active profile behind it.
	ResolveActor(ctx context.Context, token string) (*entity.User, error)
	// WaitForProfile retries loading a freshly created profile while sign-up settles.
	WaitForProfile(ctx context.Context, userID uuid.UUID) (*entity.User, error)

	IsUsernameAvailable(ctx context.Context, username string) (bool, error)
	UpdateUsername(ctx context.Context, actorID uuid.UUID, username string) (*entity.User, error)
	DeactivateAccount(ctx context.Context, actorID uuid.UUID) error
}

type Config struct {
	Secret      string
	TokenTTL    time.Duration
	ResetTTL    time.Duration
	SettleDelay time.Duration
}

type authService struct {
	repo     repository.UserRepository
	rdb      *redis.Client
	verifier provider.TokenVerifier
	google   *provider.GoogleProvider
	indexer  indexer.Indexer

	secret      string
	tokenTTL    time.Duration
	resetTTL    time.Duration
	settleDelay time.Duration
	bcryptCost  int
}

// NewAuthService wires the identity resolver. rdb, verifier, google and idx are optional;
// the features that need them report themselves unavailable.
func NewAuthService(
	repo repository.UserRepository,
	rdb *redis.Client,
	cfg Config,
	verifier provider.TokenVerifier,
	google *provider.GoogleProvider,
	idx indexer.Indexer,
) AuthService {
	if cfg.Secret == "" {
		cfg.Secret = "change-me"
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = 30 * time.Minute
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = time.Second
	}

	return &authService{
		repo:        repo,
		rdb:         rdb,
		verifier:    verifier,
		google:      google,
		indexer:     idx,
		secret:      cfg.Secret,
		tokenTTL:    cfg.TokenTTL,
		resetTTL:    cfg.ResetTTL,
		settleDelay: cfg.SettleDelay,
		bcryptCost:  bcrypt.DefaultCost,
	}
}

func revokedKey(tokenID string) string {
	return fmt.Sprintf("revoked_token:%s", tokenID)
}

func resetKey(token string) string {
	return fmt.Sprintf("password_reset:%s", token)
}

func (s *authService) SignUp(ctx context.Context, input dto.SignUpInput) (*dto.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if !usernamePattern.MatchString(input.Username) {
		return nil, apperror.Wrap(apperror.ErrInvalidInput, "username may only contain letters, digits and underscores")
	}
	if len(input.Password) < 8 {
		return nil, apperror.Wrap(apperror.ErrInvalidInput, "password must be at least 8 characters")
	}

	taken, err := s.repo.UsernameExists(ctx, input.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, errUsernameTaken
	}
	if exists, err := s.repo.EmailExists(ctx, email); err != nil {
		return nil, err
	} else if exists {
		return nil, apperror.Wrap(apperror.ErrAlreadyExists, "email is already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := entity.NewUser(input.Username, email, strings.TrimSpace(input.DisplayName))
	user.PasswordHash = string(hash)
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.index(user)
	logger.Info().Str("user_id", user.ID.String()).Msg("user signed up")
	return s.buildAuthResponse(user)
}

func (s *authService) SignIn(ctx context.Context, input dto.SignInInput) (*dto.AuthResponse, error) {
	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, errInvalidCredentials
	}
	if !user.IsActive {
		return nil, apperror.Wrap(apperror.ErrUnauthenticated, "account is deactivated")
	}

	s.touch(ctx, user)
	return s.buildAuthResponse(user)
}

func (s *authService) SignInWithFirebase(ctx context.Context, idToken string) (*dto.AuthResponse, error) {
	if s.verifier == nil {
		return nil, apperror.Wrap(apperror.ErrUnauthenticated, "firebase sign-in is not configured")
	}

	identity, err := s.verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, errInvalidToken
	}

	user, err := s.signInExternal(ctx, identity, s.repo.FindByFirebaseUID, "firebase_uid", func(u *entity.User) {
		u.FirebaseUID = &identity.Subject
	})
	if err != nil {
		return nil, err
	}
	return s.buildAuthResponse(user)
}

func (s *authService) GoogleLogin(state string) (string, error) {
	if s.google == nil {
		return "", apperror.Wrap(apperror.ErrUnauthenticated, "google sign-in is not configured")
	}
	return s.google.AuthCodeURL(state), nil
}

func (s *authService) GoogleCallback(ctx context.Context, code string) (*dto.AuthResponse, error) {
	if s.google == nil {
		return nil, apperror.Wrap(apperror.ErrUnauthenticated, "google sign-in is not configured")
	}

	identity, err := s.google.Exchange(ctx, code)
	if err != nil {
		logger.Warn().Err(err).Msg("google code exchange failed")
		return nil, errInvalidToken
	}

	user, err := s.signInExternal(ctx, identity, s.repo.FindByGoogleID, "google_id", func(u *entity.User) {
		u.GoogleID = &identity.Subject
	})
	if err != nil {
		return nil, err
	}
	return s.buildAuthResponse(user)
}

// signInExternal finds the profile linked to an external identity. An existing profile
// with the same email is linked; otherwise a new profile is created.
func (s *authService) signInExternal(
	ctx context.Context,
	identity *provider.ExternalIdentity,
	find func(context.Context, string) (*entity.User, error),
	column string,
	link func(*entity.User),
) (*entity.User, error) {
	user, err := find(ctx, identity.Subject)
	if err == nil {
		if !user.IsActive {
			return nil, apperror.Wrap(apperror.ErrUnauthenticated, "account is deactivated")
		}
		s.touch(ctx, user)
		return user, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(identity.Email))
	if email == "" {
		return nil, apperror.Wrap(apperror.ErrInvalidInput, "identity provider did not supply an email")
	}

	user, err = s.repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if !user.IsActive {
			return nil, apperror.Wrap(apperror.ErrUnauthenticated, "account is deactivated")
		}
		if err := s.repo.Updates(ctx, user.ID, map[string]interface{}{column: identity.Subject}); err != nil {
			return nil, err
		}
		link(user)
		s.touch(ctx, user)
		return user, nil
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, err
	}

	username, err := s.generateUsername(ctx, email)
	if err != nil {
		return nil, err
	}

	user = entity.NewUser(username, email, identity.Name)
	user.IsVerified = identity.EmailVerified
	if identity.Picture != "" {
		picture := identity.Picture
		user.AvatarURL = &picture
	}
	link(user)

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	s.index(user)
	logger.Info().Str("user_id", user.ID.String()).Str("provider", column).Msg("user signed up with external identity")
	return user, nil
}

func (s *authService) generateUsername(ctx context.Context, email string) (string, error) {
	local := strings.SplitN(email, "@", 2)[0]

	var b strings.Builder
	for _, r := range strings.ToLower(local) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	base := b.String()
	if len(base) > 20 {
		base = base[:20]
	}
	if len(base) < 3 {
		base = "user" + base
	}

	candidate := base
	for i := 0; i < 5; i++ {
		taken, err := s.repo.UsernameExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + "_" + uuid.NewString()[:4]
	}
	return "", errUsernameTaken
}

func (s *authService) SignOut(ctx context.Context, token string) error {
	claims, err := s.parseToken(token)
	if err != nil {
		return err
	}
	if s.rdb == nil || claims.ID == "" {
		return nil
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	if err := s.rdb.Set(ctx, revokedKey(claims.ID), claims.Subject, ttl).Err(); err != nil {
		return fmt.Errorf("%w: revoke token: %v", apperror.ErrNetwork, err)
	}
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, email string) (string, error) {
	if s.rdb == nil {
		return "", apperror.Wrap(apperror.ErrNetwork, "password reset is unavailable")
	}

	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	if !user.IsActive {
		return "", nil
	}

	token := uuid.NewString()
	if err := s.rdb.Set(ctx, resetKey(token), user.ID.String(), s.resetTTL).Err(); err != nil {
		return "", fmt.Errorf("%w: store reset token: %v", apperror.ErrNetwork, err)
	}
	return token, nil
}

func (s *authService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if s.rdb == nil {
		return apperror.Wrap(apperror.ErrNetwork, "password reset is unavailable")
	}
	if len(newPassword) < 8 {
		return apperror.Wrap(apperror.ErrInvalidInput, "password must be at least 8 characters")
	}

	raw, err := s.rdb.GetDel(ctx, resetKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return apperror.Wrap(apperror.ErrUnauthenticated, "reset token is invalid or expired")
	}
	if err != nil {
		return fmt.Errorf("%w: read reset token: %v", apperror.ErrNetwork, err)
	}

	userID, err := uuid.Parse(raw)
	if err != nil {
		return apperror.Wrap(apperror.ErrUnauthenticated, "reset token is invalid or expired")
	}
	return s.setPassword(ctx, userID, newPassword)
}

func (s *authService) Reauthenticate(ctx context.Context, actorID uuid.UUID, password string) error {
	_, err := s.reauthenticate(ctx, actorID, password)
	return err
}

func (s *authService) reauthenticate(ctx context.Context, actorID uuid.UUID, password string) (*entity.User, error) {
	user, err := s.repo.FindByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.ErrUnauthenticated
		}
		return nil, err
	}
	if user.PasswordHash == "" {
		return nil, apperror.Wrap(apperror.ErrUnauthenticated, "account has no password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, errInvalidCredentials
	}
	return user, nil
}

func (s *authService) UpdatePassword(ctx context.Context, actorID uuid.UUID, current, newPassword string) error {
	if _, err := s.reauthenticate(ctx, actorID, current); err != nil {
		return err
	}
	if len(newPassword) < 8 {
		return apperror.Wrap(apperror.ErrInvalidInput, "password must be at least 8 characters")
	}
	return s.setPassword(ctx, actorID, newPassword)
}

func (s *authService) setPassword(ctx context.Context, userID uuid.UUID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return err
	}
	return s.repo.Updates(ctx, userID, map[string]interface{}{"password_hash": string(hash)})
}

func (s *authService) UpdateEmail(ctx context.Context, actorID uuid.UUID, password, newEmail string) (*entity.User, error) {
	user, err := s.reauthenticate(ctx, actorID, password)
	if err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(newEmail))
	if email == user.Email {
		return user, nil
	}
	if exists, err := s.repo.EmailExists(ctx, email); err != nil {
		return nil, err
	} else if exists {
		return nil, apperror.Wrap(apperror.ErrAlreadyExists, "email is already registered")
	}

	if err := s.repo.Updates(ctx, actorID, map[string]interface{}{"email": email, "is_verified": false}); err != nil {
		return nil, err
	}
	user.Email = email
	user.IsVerified = false
	return user, nil
}

func (s *authService) ResolveActor(ctx context.Context, token string) (*entity.User, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return nil, err
	}

	if s.rdb != nil && claims.ID != "" {
		revoked, err := s.rdb.Exists(ctx, revokedKey(claims.ID)).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: check token revocation: %v", apperror.ErrNetwork, err)
		}
		if revoked > 0 {
			return nil, errInvalidToken
		}
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, errInvalidToken
	}

	user, err := s.repo.FindByID(ctx, userID)
	if errors.Is(err, apperror.ErrNotFound) && justIssued(claims) {
		user, err = s.WaitForProfile(ctx, userID)
	}
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Wrap(apperror.ErrUnauthenticated, "profile not found")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, apperror.Wrap(apperror.ErrUnauthenticated, "account is deactivated")
	}
	return user, nil
}

func justIssued(claims *jwt.RegisteredClaims) bool {
	return claims.IssuedAt != nil && time.Since(claims.IssuedAt.Time) < settleWindow
}

func (s *authService) WaitForProfile(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	timer := time.NewTimer(s.settleDelay)
	defer timer.Stop()

	for attempt := 1; attempt <= settleAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}

		user, err := s.repo.FindByID(ctx, userID)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		logger.Debug().Str("user_id", userID.String()).Int("attempt", attempt).Msg("profile not settled yet")
		timer.Reset(s.settleDelay)
	}

	return nil, apperror.Wrap(apperror.ErrNotFound, "profile not found")
}

func (s *authService) IsUsernameAvailable(ctx context.Context, username string) (bool, error) {
	if !usernamePattern.MatchString(username) {
		return false, apperror.Wrap(apperror.ErrInvalidInput, "username may only contain letters, digits and underscores")
	}
	taken, err := s.repo.UsernameExists(ctx, username)
	if err != nil {
		return false, err
	}
	return !taken, nil
}

func (s *authService) UpdateUsername(ctx context.Context, actorID uuid.UUID, username string) (*entity.User, error) {
	user, err := s.repo.FindByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if user.Username == username {
		return user, nil
	}

	available, err := s.IsUsernameAvailable(ctx, username)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, errUsernameTaken
	}

	if err := s.repo.Updates(ctx, actorID, map[string]interface{}{"username": username}); err != nil {
		if errors.Is(err, apperror.ErrAlreadyExists) {
			return nil, errUsernameTaken
		}
		return nil, err
	}

	user.Username = username
	s.index(user)
	return user, nil
}

func (s *authService) DeactivateAccount(ctx context.Context, actorID uuid.UUID) error {
	if err := s.repo.Updates(ctx, actorID, map[string]interface{}{"is_active": false}); err != nil {
		return err
	}

	if s.indexer != nil {
		if err := s.indexer.DeleteUser(actorID.String()); err != nil {
			logger.Warn().Err(err).Str("user_id", actorID.String()).Msg("failed to remove user from search index")
		}
	}
	logger.Info().Str("user_id", actorID.String()).Msg("account deactivated")
	return nil
}

func (s *authService) parseToken(tokenString string) (*jwt.RegisteredClaims, error) {
	if tokenString == "" {
		return nil, apperror.Wrap(apperror.ErrUnauthenticated, "authorization required")
	}

	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.ExpiresAt == nil {
		return nil, errInvalidToken
	}
	return claims, nil
}

func (s *authService) generateToken(user *entity.User) (string, int64, error) {
	now := time.Now()
	expiresAt := now.Add(s.tokenTTL)

	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   user.ID.String(),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return "", 0, err
	}

	return signed, expiresAt.Unix(), nil
}

func (s *authService) buildAuthResponse(user *entity.User) (*dto.AuthResponse, error) {
	token, expiresAt, err := s.generateToken(user)
	if err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	return &dto.AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   expiresAt,
		User:        user,
	}, nil
}

func (s *authService) touch(ctx context.Context, user *entity.User) {
	now := time.Now().UTC()
	if err := s.repo.Updates(ctx, user.ID, map[string]interface{}{"last_active_date": now}); err != nil {
		logger.Warn().Err(err).Str("user_id", user.ID.String()).Msg("failed to update last active date")
		return
	}
	user.LastActiveDate = &now
}

func (s *authService) index(user *entity.User) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.IndexUser(user); err != nil {
		logger.Warn().Err(err).Str("user_id", user.ID.String()).Msg("failed to index user")
	}
}
