package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrNotFound          = errors.New("resource not found")
	ErrAlreadyExists     = errors.New("resource already exists")
	ErrInvalidInput      = errors.New("invalid input")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrNetwork           = errors.New("network error")
	ErrUnknown           = errors.New("unknown error")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// Idempotency violations are named outcomes of ErrAlreadyExists.
	ErrAlreadyLiked          = fmt.Errorf("post already liked: %w", ErrAlreadyExists)
	ErrDuplicateRelationship = fmt.Errorf("buddy relationship already exists: %w", ErrAlreadyExists)
)

// AppError is a custom error type that can hold an HTTP status code
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "application error"
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Wrap attaches a caller-facing message to one of the sentinel kinds.
func Wrap(kind error, message string) *AppError {
	return New(MapErrorToStatus(kind), message, kind)
}

// Wrapf is Wrap with formatting.
func Wrapf(kind error, format string, args ...interface{}) *AppError {
	return Wrap(kind, fmt.Sprintf(format, args...))
}

// Kind returns the taxonomy name of err, used as the "code" field of error responses.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyLiked):
		return "already_liked"
	case errors.Is(err, ErrDuplicateRelationship):
		return "duplicate_relationship"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrNetwork):
		return "network_error"
	case errors.Is(err, ErrRateLimitExceeded):
		return "rate_limited"
	default:
		return "unknown"
	}
}

// MapErrorToStatus maps common errors to HTTP status codes
func MapErrorToStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != 0 {
		return appErr.Code
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrUnauthenticated) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrPermissionDenied) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrAlreadyExists) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidInput) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrRateLimitExceeded) {
		return http.StatusTooManyRequests
	}
	if errors.Is(err, ErrNetwork) {
		return http.StatusServiceUnavailable
	}
	// Default to internal server error
	return http.StatusInternalServerError
}
