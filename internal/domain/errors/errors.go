package errors

import (
	"errors"
	"fmt"
)

var (
	// Order errors
	ErrOrderNotFound          = errors.New("payment order not found")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrAmountOutOfBounds      = errors.New("amount outside gateway bounds")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrConflictingTransition  = errors.New("conflicting terminal transition")

	// Reconciliation errors
	ErrSignatureMismatch     = errors.New("signature verification failed")
	ErrUnknownOrderReference = errors.New("unknown order reference")

	// Registration errors
	ErrRegistrationNotFound = errors.New("registration not found")

	// Gateway errors
	ErrGatewayNotFound    = errors.New("payment gateway not found")
	ErrGatewayDisabled    = errors.New("payment gateway disabled")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrGatewayRejected    = errors.New("request rejected by gateway")
	ErrGatewayTimeout     = errors.New("gateway request timeout")

	// Configuration errors
	ErrMissingSecret = errors.New("gateway secret not configured")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidInput     = errors.New("invalid input")
)

// DomainError wraps errors with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
