package model

import (
	"errors"
	"fmt"
)

// Error taxonomy. Read paths translate ErrNotFound into empty results;
// write paths abort with nothing committed on ErrValidation or ErrStorage.
// ErrConflict surfaces only after the bounded local retry budget is spent.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrStorage    = errors.New("storage failure")
	ErrConflict   = errors.New("write contention")
)

// ValidationError wraps a formatted message with ErrValidation.
func ValidationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// StorageError wraps an underlying storage failure with ErrStorage,
// preserving the cause for errors.Is/As.
func StorageError(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(ErrStorage, err))
}
