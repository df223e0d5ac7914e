package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// EngineError represents a standardized error response
type EngineError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrInvalidInput    = "INVALID_INPUT"
	ErrValidation      = "VALIDATION_ERROR"
	ErrInvariant       = "INVARIANT_VIOLATION"
	ErrConsentProvider = "CONSENT_PROVIDER_ERROR"
	ErrKnowledgeBase   = "KNOWLEDGE_BASE_ERROR"
	ErrNotFoundCode    = "NOT_FOUND"
	ErrDatabaseError   = "DATABASE_ERROR"
	ErrRateLimit       = "RATE_LIMIT_EXCEEDED"
	ErrInternalServer  = "INTERNAL_SERVER_ERROR"
)

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ValidationErrors collects every field that failed validation.
type ValidationErrors []*ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, e := range v {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// NewEngineError creates a new EngineError with timestamp
func NewEngineError(code, message, details, requestID string) *EngineError {
	return &EngineError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// IsValidationError reports whether err carries input validation failures.
func IsValidationError(err error) bool {
	var single *ValidationError
	var multi ValidationErrors
	return errors.As(err, &single) || errors.As(err, &multi)
}

// ErrorCode classifies err into one of the standardized error codes.
func ErrorCode(err error) string {
	var engineErr *EngineError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &engineErr):
		return engineErr.Code
	case IsValidationError(err):
		return ErrValidation
	case errors.Is(err, ErrInvariantViolation):
		return ErrInvariant
	case errors.Is(err, ErrConsentUnavailable):
		return ErrConsentProvider
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUnknownCompound):
		return ErrNotFoundCode
	default:
		return ErrInternalServer
	}
}
