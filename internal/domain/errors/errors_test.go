package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *DomainError
		expected string
	}{
		{
			name: "with wrapped error",
			err: &DomainError{
				Code:    "refund_not_allowed",
				Message: "order is not refundable",
				Err:     errors.New("status is pending"),
			},
			expected: "order is not refundable: status is pending",
		},
		{
			name: "without wrapped error",
			err: &DomainError{
				Code:    "invalid_transition",
				Message: "cannot transition from failed to success",
				Err:     nil,
			},
			expected: "cannot transition from failed to success",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	wrapped := NewDomainError("refund_not_allowed", "order is not refundable", ErrInvalidStateTransition)

	assert.True(t, errors.Is(wrapped, ErrInvalidStateTransition))
	assert.Equal(t, ErrInvalidStateTransition, wrapped.Unwrap())
}

func TestNewDomainError(t *testing.T) {
	base := errors.New("underlying error")
	err := NewDomainError("test_code", "test message", base)

	assert.Equal(t, "test_code", err.Code)
	assert.Equal(t, "test message", err.Message)
	assert.Equal(t, base, err.Err)

	nilWrapped := NewDomainError("test_code", "test message", nil)
	assert.Nil(t, nilWrapped.Err)
}

func TestValidationError_Error(t *testing.T) {
	err := NewValidationError("email", "must be a valid email address")

	assert.Equal(t, "email", err.Field)
	assert.Equal(t, "validation failed for field email: must be a valid email address", err.Error())
}

func TestErrorConstants(t *testing.T) {
	// Order errors
	assert.NotNil(t, ErrOrderNotFound)
	assert.NotNil(t, ErrInvalidAmount)
	assert.NotNil(t, ErrAmountOutOfBounds)
	assert.NotNil(t, ErrInvalidStateTransition)
	assert.NotNil(t, ErrConflictingTransition)

	// Reconciliation errors
	assert.NotNil(t, ErrSignatureMismatch)
	assert.NotNil(t, ErrUnknownOrderReference)

	// Registration errors
	assert.NotNil(t, ErrRegistrationNotFound)

	// Gateway errors
	assert.NotNil(t, ErrGatewayNotFound)
	assert.NotNil(t, ErrGatewayDisabled)
	assert.NotNil(t, ErrGatewayUnavailable)
	assert.NotNil(t, ErrGatewayRejected)
	assert.NotNil(t, ErrGatewayTimeout)
	assert.NotNil(t, ErrMissingSecret)

	// Validation errors
	assert.NotNil(t, ErrValidationFailed)
	assert.NotNil(t, ErrInvalidInput)
}
