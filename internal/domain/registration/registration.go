package registration

import (
	"context"
	"time"
)

// PaymentStatus is the payment view owned by the registration document.
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

// Registration is the slice of the registration document this service
// reads and writes. The rest of the document (form answers, check-in,
// scoring) belongs to other parts of the platform.
type Registration struct {
	ID            string
	Name          string
	Email         string
	EventName     string
	PaymentStatus PaymentStatus
	CreatedAt     time.Time
}

// Repository reads registrations and updates their payment view.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Registration, error)
	// MarkPaid sets payment_status to paid. The transition is monotonic:
	// implementations must never write unpaid over paid, and calling
	// MarkPaid on an already-paid registration is a no-op.
	MarkPaid(ctx context.Context, id string) error
}
