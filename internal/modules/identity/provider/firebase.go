package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"locki.app/backend/pkg/logger"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

type firebaseVerifier struct {
	client *auth.Client
}

// NewFirebaseVerifier initializes Firebase Auth from a service account, given either as a
// file path or as raw JSON.
func NewFirebaseVerifier(ctx context.Context, credentialsFile, credentialsJSON string) (TokenVerifier, error) {
	var opt option.ClientOption
	switch {
	case credentialsJSON != "":
		opt = option.WithCredentialsJSON([]byte(credentialsJSON))
	case credentialsFile != "":
		opt = option.WithCredentialsFile(credentialsFile)
	default:
		return nil, errors.New("firebase credentials are not configured")
	}

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := app.Auth(initCtx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth: %w", err)
	}

	logger.Info().Msg("firebase auth initialized")
	return &firebaseVerifier{client: client}, nil
}

func (v *firebaseVerifier) VerifyIDToken(ctx context.Context, idToken string) (*ExternalIdentity, error) {
	if idToken == "" {
		return nil, ErrInvalidToken
	}

	verifyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	token, err := v.client.VerifyIDToken(verifyCtx, idToken)
	if err != nil {
		logger.Debug().Err(err).Msg("firebase token verification failed")
		return nil, ErrInvalidToken
	}
	if token.UID == "" {
		return nil, ErrInvalidToken
	}

	identity := &ExternalIdentity{Subject: token.UID}
	identity.Email, _ = token.Claims["email"].(string)
	identity.EmailVerified, _ = token.Claims["email_verified"].(bool)
	identity.Name, _ = token.Claims["name"].(string)
	identity.Picture, _ = token.Claims["picture"].(string)
	return identity, nil
}
