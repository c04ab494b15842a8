package apperrors

import "errors"

// Common errors
var (
	// Authentication errors
	ErrTokenExpired  = errors.New("token expired")
	ErrTokenInvalid  = errors.New("invalid token")
	ErrInvalidFormat = errors.New("invalid token format")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
)

// Enrollment errors
var (
	ErrCourseNotFound       = errors.New("course not found")
	ErrSelectionNotFound    = errors.New("selection not found")
	ErrAlreadySelected      = errors.New("course already selected")
	ErrAlreadyDropped       = errors.New("course already dropped")
	ErrCourseFull           = errors.New("course is full")
	ErrTimeConflict         = errors.New("schedule conflicts with a selected course")
	ErrSelectionCompleted   = errors.New("completed selection cannot be dropped")
	ErrConsistencyViolation = errors.New("enrolled counter does not match selections")
)

// Storage errors
var (
	// ErrTransientStorage marks a storage fault that was rolled back and may be retried.
	ErrTransientStorage = errors.New("transient storage failure")
)

// NewValidationError creates a validation error naming the offending field
func NewValidationError(field, message string) *CustomError {
	return &CustomError{
		Err:     ErrValidationFailed,
		Message: message,
		Details: map[string]interface{}{"field": field},
	}
}

// Is returns whether err matches target or any of errList
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}

	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}

	return false
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
	Details map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}
