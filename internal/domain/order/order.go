package order

import (
	"context"
	"strings"
	"time"

	"github.com/confreg/regpay/internal/domain/errors"
	"github.com/google/uuid"
)

// Status represents the payment order status in the state machine
type Status string

const (
	StatusPending  Status = "pending"
	StatusSuccess  Status = "success"
	StatusFailed   Status = "failed"
	StatusRefunded Status = "refunded"
)

// Gateway identifies the external payment provider an order was created on.
type Gateway string

const (
	GatewayRazorpay Gateway = "razorpay"
	GatewayPayU     Gateway = "payu"
)

// Payer holds the contact details the gateway checkout is prefilled with.
type Payer struct {
	Name  string
	Email string
	Phone string
}

// Order is one payment attempt against a registration. A registration may
// have many orders over its lifetime; at most one ever reaches success.
type Order struct {
	ID             uuid.UUID
	RegistrationID string
	Gateway        Gateway
	ExternalRef    string // gateway-assigned order/transaction id, reconciliation lookup key
	PaymentRef     string // gateway payment id once learned, fallback lookup key
	AmountMinor    int64
	SurchargeMinor int64
	Currency       string
	Status         Status
	Payer          Payer
	RefundRef      string // gateway refund id once a refund settles
	InvoiceURL     *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	VerifiedAt     *time.Time
}

// TotalMinor is the amount actually charged at the gateway.
func (o *Order) TotalMinor() int64 {
	return o.AmountMinor + o.SurchargeMinor
}

// New creates a pending order for a registration.
func New(registrationID string, gw Gateway, externalRef string, amountMinor, surchargeMinor int64, currency string, payer Payer) (*Order, error) {
	if registrationID == "" {
		return nil, errors.NewValidationError("registration_id", "cannot be empty")
	}
	if externalRef == "" {
		return nil, errors.NewValidationError("external_ref", "cannot be empty")
	}
	if err := ValidatePayer(payer); err != nil {
		return nil, err
	}
	if err := ValidateAmount(amountMinor, currency); err != nil {
		return nil, err
	}

	now := time.Now()
	return &Order{
		ID:             uuid.New(),
		RegistrationID: registrationID,
		Gateway:        gw,
		ExternalRef:    externalRef,
		AmountMinor:    amountMinor,
		SurchargeMinor: surchargeMinor,
		Currency:       currency,
		Status:         StatusPending,
		Payer:          payer,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// CanTransitionTo checks if the order can transition to the given status
func (o *Order) CanTransitionTo(newStatus Status) bool {
	transitions := map[Status][]Status{
		StatusPending: {
			StatusSuccess,
			StatusFailed,
		},
		StatusSuccess: {
			StatusRefunded,
		},
		StatusFailed:   {}, // Terminal state
		StatusRefunded: {}, // Terminal state
	}

	allowed, exists := transitions[o.Status]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == newStatus {
			return true
		}
	}
	return false
}

// TransitionTo transitions the order to a new status
func (o *Order) TransitionTo(newStatus Status) error {
	if !o.CanTransitionTo(newStatus) {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot transition from "+string(o.Status)+" to "+string(newStatus),
			errors.ErrInvalidStateTransition,
		)
	}

	o.Status = newStatus
	o.UpdatedAt = time.Now()
	return nil
}

// MarkVerified applies a verified outcome to a pending order and stamps
// the verification time.
func (o *Order) MarkVerified(target Status, paymentRef string) error {
	if target != StatusSuccess && target != StatusFailed {
		return errors.NewDomainError(
			"invalid_outcome",
			"verified outcome must be success or failed, got "+string(target),
			errors.ErrInvalidStateTransition,
		)
	}
	if err := o.TransitionTo(target); err != nil {
		return err
	}
	now := time.Now()
	o.VerifiedAt = &now
	if paymentRef != "" {
		o.PaymentRef = paymentRef
	}
	return nil
}

// MarkRefunded transitions the order to refunded status
func (o *Order) MarkRefunded() error {
	return o.TransitionTo(StatusRefunded)
}

// IsTerminal checks if the order is in a terminal state
func (o *Order) IsTerminal() bool {
	return o.Status == StatusSuccess ||
		o.Status == StatusFailed ||
		o.Status == StatusRefunded
}

// ValidateAmount checks the amount and currency independent of gateway bounds.
func ValidateAmount(amountMinor int64, currency string) error {
	if amountMinor <= 0 {
		return errors.NewValidationError("amount", "must be greater than 0")
	}
	if currency == "" {
		return errors.NewValidationError("currency", "cannot be empty")
	}
	// Simple currency validation (3-letter code)
	if len(currency) != 3 {
		return errors.NewValidationError("currency", "must be a 3-letter ISO code")
	}
	return nil
}

// ValidatePayer checks the payer fields required by both gateways.
func ValidatePayer(p Payer) error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.NewValidationError("name", "cannot be empty")
	}
	if strings.TrimSpace(p.Email) == "" {
		return errors.NewValidationError("email", "cannot be empty")
	}
	return nil
}

// Repository persists payment orders. The backing store only guarantees
// single-document reads and writes, so the conditional update methods are
// the concurrency primitive: they apply a transition only if the stored
// status still matches the expected source state and report whether the
// write happened.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	// GetByReference looks an order up by external ref or payment ref.
	GetByReference(ctx context.Context, ref string) (*Order, error)
	// LatestByRegistration returns the most recently created order for a
	// registration.
	LatestByRegistration(ctx context.Context, registrationID string) (*Order, error)
	ListByRegistration(ctx context.Context, registrationID string) ([]*Order, error)
	// ListPendingOlderThan returns pending orders created before the
	// cutoff, oldest first, for the stale-order monitor.
	ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*Order, error)
	// ApplyVerified sets status, payment ref and verified_at on an order
	// that is still pending. Returns false if the order was not pending.
	ApplyVerified(ctx context.Context, id uuid.UUID, target Status, paymentRef string, verifiedAt time.Time) (bool, error)
	// ApplyRefund sets status refunded on an order that is still success.
	// Returns false if the order was not success.
	ApplyRefund(ctx context.Context, id uuid.UUID, refundRef string) (bool, error)
}
