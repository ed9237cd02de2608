package middleware

import (
	"context"
	"strings"

	"locki.app/backend/internal/entity"
	"locki.app/backend/pkg/apperror"
	"locki.app/backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// ActorResolver maps a bearer token to the active profile it was issued for.
type ActorResolver interface {
	ResolveActor(ctx context.Context, token string) (*entity.User, error)
}

type AuthMiddleware struct {
	resolver ActorResolver
}

func NewAuthMiddleware(resolver ActorResolver) *AuthMiddleware {
	return &AuthMiddleware{resolver: resolver}
}

// BearerToken extracts the token from the Authorization header, falling back to the
// "token" query parameter used by websocket clients.
func BearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
	}
	return c.Query("token")
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := BearerToken(c)
		if tokenString == "" {
			response.ResponseError(c, apperror.Wrap(apperror.ErrUnauthenticated, "authorization required"))
			c.Abort()
			return
		}

		user, err := m.resolver.ResolveActor(c.Request.Context(), tokenString)
		if err != nil {
			response.ResponseError(c, err)
			c.Abort()
			return
		}

		c.Set("user_id", user.ID.String())
		c.Set("user", user)
		c.Set("token", tokenString)
		c.Next()
	}
}
