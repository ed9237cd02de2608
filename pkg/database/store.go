package database

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"locki.app/backend/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaxInFilter is the number of ids a single "in" query may carry. Larger id sets are
// split with ChunkIDs and merged by the caller.
const MaxInFilter = 10

// Store is the document store client shared by the repositories: keyed reads,
// queries and all-or-nothing batches over gorm.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB returns a session bound to ctx.
func (s *Store) DB(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// Get loads the row whose primary key is id into dest.
func (s *Store) Get(ctx context.Context, dest interface{}, id interface{}) error {
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(dest).Error; err != nil {
		return MapError(err)
	}
	return nil
}

// Batch applies every write in fn atomically. Returning an error from fn discards all of them.
func (s *Store) Batch(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return MapError(s.db.WithContext(ctx).Transaction(fn))
}

// ChunkIDs splits ids into consecutive slices of at most size elements.
func ChunkIDs(ids []uuid.UUID, size int) [][]uuid.UUID {
	if size <= 0 {
		size = MaxInFilter
	}
	chunks := make([][]uuid.UUID, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

// IncrementExpr adds delta to column in place.
func IncrementExpr(column string, delta int64) clause.Expr {
	return gorm.Expr(column+" + ?", delta)
}

// DecrementExpr subtracts one from column without going below zero.
func DecrementExpr(column string) clause.Expr {
	return gorm.Expr(fmt.Sprintf("CASE WHEN %s > 0 THEN %s - 1 ELSE 0 END", column, column))
}

var taxonomy = []error{
	apperror.ErrUnauthenticated,
	apperror.ErrNotFound,
	apperror.ErrAlreadyExists,
	apperror.ErrInvalidInput,
	apperror.ErrPermissionDenied,
	apperror.ErrNetwork,
	apperror.ErrUnknown,
	apperror.ErrRateLimitExceeded,
}

// MapError translates driver and gorm errors into the apperror taxonomy.
// Errors that already carry a taxonomy kind pass through untouched.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range taxonomy {
		if errors.Is(err, kind) {
			return err
		}
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %v", apperror.ErrNotFound, err)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
		return fmt.Errorf("%w: %v", apperror.ErrAlreadyExists, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", apperror.ErrNetwork, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", apperror.ErrNetwork, err)
	}
	if strings.Contains(strings.ToLower(err.Error()), "permission denied") {
		return fmt.Errorf("%w: %v", apperror.ErrPermissionDenied, err)
	}

	return fmt.Errorf("%w: %v", apperror.ErrUnknown, err)
}

func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "SQLSTATE 23505")
}
