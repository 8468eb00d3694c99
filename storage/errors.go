package storage

import (
	"errors"
	"fmt"
)

// ErrStoreDestroyed is returned by operations submitted after a store was destroyed.
var ErrStoreDestroyed = errors.New("storage: store destroyed")

// StorageError is a failed backing store operation.
//
//nolint:revive // storage.StorageError reads better at call sites than storage.Error
type StorageError struct {
	Op    string // Operation that failed (e.g., "put", "rename")
	Layer string // Layer the operation targeted, if any
	Err   error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Layer != "" {
		return fmt.Sprintf("storage %s failed for layer %s: %v", e.Op, e.Layer, e.Err)
	}
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError creates a new storage error.
func NewStorageError(op, layer string, err error) *StorageError {
	return &StorageError{
		Op:    op,
		Layer: layer,
		Err:   err,
	}
}
