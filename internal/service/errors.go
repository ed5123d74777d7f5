// Package service provides business logic for the application.
package service

import (
	"errors"
	"strings"
)

// Service errors.
var (
	// ErrPaperNotFound covers both unknown papers and papers owned by
	// another user, so paper existence never leaks across accounts.
	ErrPaperNotFound      = errors.New("paper not found")
	ErrTitleExists        = errors.New("a paper with this title already exists")
	ErrUsernameExists     = errors.New("username already exists")
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
)

// ValidationError reports every violated input rule at once, so clients
// can render the full list instead of fixing one field at a time.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Errors, "; ")
}

// AsValidationError unwraps err into a ValidationError, or nil.
func AsValidationError(err error) *ValidationError {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr
	}
	return nil
}
