package postgres

import (
	"context"
	"errors"
	"fmt"

	domainErrors "github.com/confreg/regpay/internal/domain/errors"
	"github.com/confreg/regpay/internal/domain/registration"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RegistrationRepository implements registration.Repository. The
// registration document is owned by the registration side of the
// platform; this service only reads it and flips the payment view.
type RegistrationRepository struct {
	pool *pgxpool.Pool
}

// NewRegistrationRepository creates a new RegistrationRepository.
func NewRegistrationRepository(pool *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{pool: pool}
}

// GetByID retrieves a registration by id.
func (r *RegistrationRepository) GetByID(ctx context.Context, id string) (*registration.Registration, error) {
	reg := &registration.Registration{}
	var status string
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, email, event_name, payment_status, created_at
		 FROM registrations WHERE id = $1`, id,
	).Scan(&reg.ID, &reg.Name, &reg.Email, &reg.EventName, &status, &reg.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("scan registration: %w", err)
	}
	reg.PaymentStatus = registration.PaymentStatus(status)
	return reg, nil
}

// MarkPaid flips payment_status to paid. Monotonic: the WHERE clause never
// lets paid go back to unpaid, and marking an already-paid registration is
// a no-op.
func (r *RegistrationRepository) MarkPaid(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE registrations SET payment_status = 'paid'
		 WHERE id = $1 AND payment_status <> 'paid'`, id)
	if err != nil {
		return fmt.Errorf("mark registration paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Already paid, or the registration is gone. Only the latter is
		// an error.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
