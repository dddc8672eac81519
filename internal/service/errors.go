package service

import (
	"errors"
	"fmt"

	"dira-go/internal/repository"

	"gorm.io/gorm"
)

// Sentinel errors returned by the services. Handlers map them to HTTP status codes with errors.Is.
var (
	ErrProviderUnavailable  = errors.New("embedding provider unavailable")
	ErrNotFound             = errors.New("not found")
	ErrInvalidThreshold     = errors.New("threshold must be within [0,1]")
	ErrInvalidLimit         = errors.New("limit must be between 1 and 100")
	ErrReferentialIntegrity = errors.New("referenced report does not exist")
	ErrInvalidScore         = errors.New("similarity score must be within [0,1]")
	ErrInvalidRelationship  = errors.New("invalid relationship")
	ErrInvalidInput         = errors.New("invalid input")
	ErrConflict             = errors.New("already exists")

	// ErrDimensionMismatch means the provider returned a vector of the wrong length.
	// It wraps ErrProviderUnavailable so intake treats it the same way.
	ErrDimensionMismatch = fmt.Errorf("%w: embedding dimension mismatch", ErrProviderUnavailable)
)

const maxLimit = 100

func validateThreshold(threshold float64) error {
	// NaN fails both comparisons, so test for the valid range.
	if !(threshold >= 0 && threshold <= 1) {
		return fmt.Errorf("%w: got %v", ErrInvalidThreshold, threshold)
	}
	return nil
}

func validateLimit(limit int) error {
	if limit < 1 || limit > maxLimit {
		return fmt.Errorf("%w: got %d", ErrInvalidLimit, limit)
	}
	return nil
}

// translate maps repository errors onto service sentinels.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	case errors.Is(err, repository.ErrReportMissing), errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%s: %w", what, ErrReferentialIntegrity)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", what, ErrConflict)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func isConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
