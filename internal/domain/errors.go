package domain

import "errors"

// Domain errors
var (
	ErrNotFound             = errors.New("record not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrUserAlreadyExists    = errors.New("user already exists")
	ErrFileNotFound         = errors.New("file not found")
	ErrInvalidTransition    = errors.New("invalid file status transition")
	ErrInvalidLearningStyle = errors.New("invalid learning style")
	ErrUnsupportedFileType  = errors.New("file type not allowed")
	ErrNotAuthenticated     = errors.New("not authenticated")
	ErrAuthExchange         = errors.New("authorization code exchange failed")
	ErrGeneratorUnavailable = errors.New("generative backend not configured")
	ErrNotProcessed         = errors.New("file has not been processed yet")
)

// ValidationError represents a validation error with field and message information.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}

// NewValidationError is a shorthand for &ValidationError{...}
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
