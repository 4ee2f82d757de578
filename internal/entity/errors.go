package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the id is absent from the collection.
	ErrNotFound = errors.New("entity: not found")
	// ErrValidation means a required field was missing or malformed. It is
	// raised before any remote call is attempted.
	ErrValidation = errors.New("entity: validation failed")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
