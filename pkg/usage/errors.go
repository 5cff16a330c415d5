package usage

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by a ledger after Close.
var ErrClosed = errors.New("usage ledger closed")

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown usage backend")

// StorageError reports a failed backend operation.
type StorageError struct {
	Backend   string // "memory", "sqlite" or "sqlite3"
	Operation string // "record", "query", "prune", ...
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("usage storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

func newStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: operation, Cause: cause}
}
