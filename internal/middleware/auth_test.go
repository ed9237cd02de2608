package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"locki.app/backend/internal/entity"
	"locki.app/backend/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type stubResolver struct {
	user *entity.User
}

func (s *stubResolver) ResolveActor(ctx context.Context, token string) (*entity.User, error) {
	if token != "good" {
		return nil, apperror.Wrap(apperror.ErrUnauthenticated, "invalid or expired token")
	}
	return s.user, nil
}

func newRouter(resolver ActorResolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewAuthMiddleware(resolver).RequireAuth())
	r.GET("/me", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("user_id"))
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	user := &entity.User{ID: uuid.New()}
	router := newRouter(&stubResolver{user: user})

	tests := []struct {
		name   string
		target string
		header string
		status int
	}{
		{"bearer header", "/me", "Bearer good", http.StatusOK},
		{"query token", "/me?token=good", "", http.StatusOK},
		{"missing", "/me", "", http.StatusUnauthorized},
		{"malformed header", "/me", "Token good", http.StatusUnauthorized},
		{"rejected token", "/me", "Bearer bad", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, user.ID.String(), rec.Body.String())
			} else {
				assert.Contains(t, rec.Body.String(), `"code":"unauthenticated"`)
			}
		})
	}
}
