package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType defines the category of the error
type ErrorType string

const (
	ErrorTypeSourceUnreachable ErrorType = "SOURCE_UNREACHABLE"
	ErrorTypeNoContent         ErrorType = "NO_CONTENT"
	ErrorTypeAIBackend         ErrorType = "AI_BACKEND_ERROR"
	ErrorTypeNoRecipe          ErrorType = "NO_RECIPE"
	ErrorTypeValidation        ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound          ErrorType = "NOT_FOUND_ERROR"
	ErrorTypeStorage           ErrorType = "STORAGE_ERROR"
	ErrorTypeRateLimit         ErrorType = "RATE_LIMIT_ERROR"
	ErrorTypeInternal          ErrorType = "INTERNAL_ERROR"
)

// AppError represents a structured error for the application
type AppError struct {
	Type          ErrorType `json:"type"`
	Message       string    `json:"message"`
	StatusCode    int       `json:"statusCode"`
	ErrorCode     string    `json:"errorCode"`
	IsOperational bool      `json:"isOperational"`
	Recovery      string    `json:"recoverySuggestion,omitempty"`
	Err           error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Code returns the application-specific error code
func (e *AppError) Code() string {
	return e.ErrorCode
}

// RecoverySuggestion returns the suggestion on how to recover from the error
func (e *AppError) RecoverySuggestion() string {
	return e.Recovery
}

// IsRetryable determines if the operation that caused the error should be retried
func (e *AppError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeRateLimit:
		return true
	case ErrorTypeAIBackend, ErrorTypeStorage:
		return e.StatusCode >= 500
	default:
		// Unreachable sources and missing recipes are input-dependent; a retry
		// returns the same answer.
		return false
	}
}

// As returns the first *AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType reports whether err carries an AppError of the given type.
func IsType(err error, t ErrorType) bool {
	appErr, ok := As(err)
	return ok && appErr.Type == t
}

// NewSourceUnreachableError creates an error for a page or video that could not be fetched (502)
func NewSourceUnreachableError(message string, errorCode string, err error) *AppError {
	return &AppError{
		Type:          ErrorTypeSourceUnreachable,
		Message:       message,
		StatusCode:    http.StatusBadGateway,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      "Verify the URL is accessible and try again later.",
		Err:           err,
	}
}

// NewNoContentError creates an error for a source that yielded no text (422)
func NewNoContentError(message string, errorCode string) *AppError {
	return &AppError{
		Type:          ErrorTypeNoContent,
		Message:       message,
		StatusCode:    http.StatusUnprocessableEntity,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      "Check that the page renders its recipe without JavaScript.",
	}
}

// NewAIBackendError creates a text-generation backend error (502)
func NewAIBackendError(message string, errorCode string, err error) *AppError {
	return &AppError{
		Type:          ErrorTypeAIBackend,
		Message:       message,
		StatusCode:    http.StatusBadGateway,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      "Check the AI provider credentials and status page.",
		Err:           err,
	}
}

// NewNoRecipeError creates an error for content without a detectable recipe (422)
func NewNoRecipeError(message string, errorCode string) *AppError {
	return &AppError{
		Type:          ErrorTypeNoRecipe,
		Message:       message,
		StatusCode:    http.StatusUnprocessableEntity,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      "The page may not contain a recipe or may be behind a paywall.",
	}
}

// NewValidationError creates a new validation error (400)
func NewValidationError(message string, errorCode string, suggestion string) *AppError {
	return &AppError{
		Type:          ErrorTypeValidation,
		Message:       message,
		StatusCode:    http.StatusBadRequest,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      suggestion,
	}
}

// NewNotFoundError creates a new not found error (404)
func NewNotFoundError(message string, errorCode string, suggestion string) *AppError {
	return &AppError{
		Type:          ErrorTypeNotFound,
		Message:       message,
		StatusCode:    http.StatusNotFound,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      suggestion,
	}
}

// NewStorageError creates a recipe store error (500)
func NewStorageError(message string, errorCode string, err error) *AppError {
	return &AppError{
		Type:          ErrorTypeStorage,
		Message:       message,
		StatusCode:    http.StatusInternalServerError,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      "Try again later.",
		Err:           err,
	}
}

// NewRateLimitError creates a new rate limit error (429)
func NewRateLimitError(message string, errorCode string, suggestion string) *AppError {
	return &AppError{
		Type:          ErrorTypeRateLimit,
		Message:       message,
		StatusCode:    http.StatusTooManyRequests,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      suggestion,
	}
}

// NewInternalError creates an unexpected error (500)
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Type:          ErrorTypeInternal,
		Message:       message,
		StatusCode:    http.StatusInternalServerError,
		ErrorCode:     "INTERNAL",
		IsOperational: false,
		Err:           err,
	}
}
