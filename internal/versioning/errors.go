package versioning

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means a referenced version or family does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState means the operation is not legal for the version's current state.
	ErrInvalidState = errors.New("invalid state")
	// ErrContention means the family lock could not be acquired in time; the caller may retry.
	ErrContention = errors.New("family contention")
	// ErrStorageFailure means the persistence layer failed.
	ErrStorageFailure = errors.New("storage failure")
	// ErrInvalidInput means the request itself is malformed and was rejected before any lock was taken.
	ErrInvalidInput = errors.New("invalid input")
)

func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func InvalidStatef(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

func InvalidInputf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func Contentionf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrContention, fmt.Sprintf(format, args...))
}

// StorageFailure wraps err unless it already carries one of the taxonomy sentinels.
func StorageFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	if Classified(err) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStorageFailure, op, err)
}

// Classified reports whether err already belongs to the taxonomy.
func Classified(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrContention) ||
		errors.Is(err, ErrStorageFailure) ||
		errors.Is(err, ErrInvalidInput)
}

// Kind returns a stable machine-readable name for err.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrContention):
		return "contention"
	case errors.Is(err, ErrStorageFailure):
		return "storage_failure"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "internal"
	}
}
