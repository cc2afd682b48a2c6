package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"wordhero/internal/models"
)

var (
	// ErrStorageUnavailable means the local cache could not be opened. Callers continue memory-only.
	ErrStorageUnavailable = errors.New("local storage unavailable")

	// ErrRemoteUnavailable means the remote store could not be reached. The operation may be retried.
	ErrRemoteUnavailable = errors.New("remote store unavailable")

	// ErrConflictOnWrite means the document changed since it was read. Re-read and recompute.
	ErrConflictOnWrite = errors.New("document changed since it was read")

	// ErrNotFound means the requested record does not exist
	ErrNotFound = errors.New("not found")

	// ErrCorruptDocument means a stored document could not be decoded
	ErrCorruptDocument = errors.New("stored document is corrupt")
)

// IsRetryable reports whether err should leave a session queued for a later attempt
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRemoteUnavailable)
}

// classifyRemote maps a driver error onto the remote error taxonomy
func classifyRemote(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrConflictOnWrite), errors.Is(err, ErrRemoteUnavailable),
		errors.Is(err, ErrCorruptDocument):
		return fmt.Errorf("%s: %w", op, err)
	case models.IsValidationError(err):
		return err
	default:
		// Timeouts, refused connections and driver failures are all worth another attempt
		return fmt.Errorf("%s: %w: %w", op, ErrRemoteUnavailable, err)
	}
}
