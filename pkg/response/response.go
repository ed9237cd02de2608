package response

import (
	"errors"
	"fmt"
	"net/http"

	"locki.app/backend/pkg/apperror"
	"locki.app/backend/pkg/logger"
	"locki.app/backend/pkg/ratelimiter"
	"locki.app/backend/pkg/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GetUserID retrieves the authenticated user ID from the context
func GetUserID(c *gin.Context) (uuid.UUID, error) {
	userIDStr, exists := c.Get("user_id")
	if !exists {
		return uuid.Nil, apperror.ErrUnauthenticated
	}

	userID, err := uuid.Parse(userIDStr.(string))
	if err != nil {
		return uuid.Nil, apperror.ErrUnauthenticated
	}

	return userID, nil
}

// ParamUUID parses a path parameter as a UUID.
func ParamUUID(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperror.Wrapf(apperror.ErrInvalidInput, "invalid %s", name)
	}
	return id, nil
}

// ResponseError standardized error response
func ResponseError(c *gin.Context, err error) {
	code := apperror.MapErrorToStatus(err)

	if code >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}

	var rlErr *ratelimiter.RateLimitError
	if errors.As(err, &rlErr) {
		c.Header("Retry-After", fmt.Sprintf("%.0f", rlErr.RetryAfter.Seconds()))
	}

	c.JSON(code, gin.H{"error": err.Error(), "code": apperror.Kind(err)})
}

// BindError reports a request binding failure as invalid input.
func BindError(c *gin.Context, err error) {
	ResponseError(c, apperror.Wrap(apperror.ErrInvalidInput, validator.FormatValidationError(err)))
}
