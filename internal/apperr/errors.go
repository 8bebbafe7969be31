// Package apperr holds the error kinds shared by the services. Callers wrap
// them with fmt.Errorf("...: %w", ...) and handlers match with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("already exists")
	ErrUnauthorized       = errors.New("not authorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrValidation         = errors.New("validation failed")
	ErrSelfReference      = errors.New("actor and target are the same user")
)

// Validation wraps a schema error so that errors.Is(err, ErrValidation) holds
// while the field details stay in the message.
func Validation(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrValidation, err)
}
