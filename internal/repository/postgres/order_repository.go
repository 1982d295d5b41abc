package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainErrors "github.com/confreg/regpay/internal/domain/errors"
	"github.com/confreg/regpay/internal/domain/order"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const orderColumns = `id, registration_id, gateway, external_ref, payment_ref, refund_ref,
	amount_minor, surcharge_minor, currency, status,
	payer_name, payer_email, payer_phone, invoice_url,
	created_at, updated_at, verified_at`

// OrderRepository implements order.Repository using PostgreSQL. All writes
// are single-row; transitions use conditional updates on the current status
// so concurrent duplicate events converge without explicit locking.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Create inserts a new payment order.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO payment_orders
		 (id, registration_id, gateway, external_ref, payment_ref, refund_ref,
		  amount_minor, surcharge_minor, currency, status,
		  payer_name, payer_email, payer_phone, invoice_url,
		  created_at, updated_at, verified_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		o.ID, o.RegistrationID, string(o.Gateway), o.ExternalRef, o.PaymentRef, o.RefundRef,
		o.AmountMinor, o.SurchargeMinor, o.Currency, string(o.Status),
		o.Payer.Name, o.Payer.Email, o.Payer.Phone, o.InvoiceURL,
		o.CreatedAt, o.UpdatedAt, o.VerifiedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("external ref already stored: %w", domainErrors.ErrInvalidInput)
		}
		return fmt.Errorf("insert payment order: %w", err)
	}
	return nil
}

// GetByID retrieves an order by its ID.
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM payment_orders WHERE id = $1`, id))
}

// GetByReference retrieves an order by external ref, falling back to the
// gateway payment ref. Some gateways deliver events keyed by the payment
// id rather than the order id minted at creation.
func (r *OrderRepository) GetByReference(ctx context.Context, ref string) (*order.Order, error) {
	return r.scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM payment_orders
		 WHERE external_ref = $1 OR payment_ref = $1
		 ORDER BY created_at DESC LIMIT 1`, ref))
}

// LatestByRegistration returns the most recently created order for a
// registration.
func (r *OrderRepository) LatestByRegistration(ctx context.Context, registrationID string) (*order.Order, error) {
	return r.scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM payment_orders
		 WHERE registration_id = $1
		 ORDER BY created_at DESC LIMIT 1`, registrationID))
}

// ListByRegistration returns all orders for a registration, newest first.
func (r *OrderRepository) ListByRegistration(ctx context.Context, registrationID string) ([]*order.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM payment_orders
		 WHERE registration_id = $1
		 ORDER BY created_at DESC`, registrationID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []*order.Order
	for rows.Next() {
		o, err := r.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// ListPendingOlderThan returns pending orders created before the cutoff,
// oldest first.
func (r *OrderRepository) ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*order.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM payment_orders
		 WHERE status = 'pending' AND created_at < $1
		 ORDER BY created_at ASC LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale pending orders: %w", err)
	}
	defer rows.Close()

	var orders []*order.Order
	for rows.Next() {
		o, err := r.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// ApplyVerified is the reconciliation write: it moves a pending order to
// the verified target status and stamps verified_at, but only if the row
// is still pending. The WHERE clause is the idempotency guard - a
// re-delivered or racing event affects zero rows.
func (r *OrderRepository) ApplyVerified(ctx context.Context, id uuid.UUID, target order.Status, paymentRef string, verifiedAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE payment_orders
		 SET status = $2,
		     payment_ref = CASE WHEN $3 <> '' THEN $3 ELSE payment_ref END,
		     verified_at = $4,
		     updated_at = NOW()
		 WHERE id = $1 AND status = 'pending'`,
		id, string(target), paymentRef, verifiedAt,
	)
	if err != nil {
		return false, fmt.Errorf("apply verified transition: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ApplyRefund moves a success order to refunded, only if it is still
// success.
func (r *OrderRepository) ApplyRefund(ctx context.Context, id uuid.UUID, refundRef string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE payment_orders
		 SET status = 'refunded',
		     refund_ref = $2,
		     updated_at = NOW()
		 WHERE id = $1 AND status = 'success'`,
		id, refundRef,
	)
	if err != nil {
		return false, fmt.Errorf("apply refund transition: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// scanOrder scans an order from any source implementing the scanner interface.
func (r *OrderRepository) scanOrder(s scanner) (*order.Order, error) {
	o := &order.Order{}
	var gw, status string
	err := s.Scan(
		&o.ID, &o.RegistrationID, &gw, &o.ExternalRef, &o.PaymentRef, &o.RefundRef,
		&o.AmountMinor, &o.SurchargeMinor, &o.Currency, &status,
		&o.Payer.Name, &o.Payer.Email, &o.Payer.Phone, &o.InvoiceURL,
		&o.CreatedAt, &o.UpdatedAt, &o.VerifiedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrOrderNotFound
		}
		return nil, fmt.Errorf("scan payment order: %w", err)
	}
	o.Gateway = order.Gateway(gw)
	o.Status = order.Status(status)
	return o, nil
}
