package services

import (
	"errors"
	"fmt"

	"github.com/diewo77/retail-invoices/validation"
)

var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when a requested invoice does not exist.
	ErrNotFound = errors.New("invoice not found")
)

// ValidationError reports rejected input. Nothing was written.
type ValidationError struct {
	Violations validation.Violations
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %d field(s)", len(e.Violations))
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// StorageError wraps a failing statement. When returned from a save, the
// transaction has already been rolled back.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }
