package reconcile

import (
	"context"
	"fmt"
	"time"

	domainErrors "github.com/confreg/regpay/internal/domain/errors"
	"github.com/confreg/regpay/internal/domain/order"
	"github.com/confreg/regpay/internal/domain/registration"
	"github.com/confreg/regpay/internal/gateway"
	"github.com/confreg/regpay/internal/infrastructure/observability"
	"github.com/rs/zerolog"
)

// Result reports what a confirmation event did to the order.
type Result struct {
	// Applied is true when the order is in the outcome's target state
	// after the call, whether this event moved it there or an earlier
	// duplicate already had.
	Applied bool
	// Duplicate is true when the event changed nothing because an
	// identical outcome had already been applied.
	Duplicate   bool
	FinalStatus order.Status
	Order       *order.Order
}

// Engine applies verified confirmation events to payment orders. Both
// delivery channels converge here: a callback and a webhook for the same
// payment run the exact same code path, so processing is idempotent no
// matter how many times or in what order the gateway delivers.
type Engine struct {
	orders   order.Repository
	regs     registration.Repository
	gateways *gateway.Registry
	logger   zerolog.Logger
	metrics  *observability.Metrics
}

// NewEngine creates a new reconciliation Engine.
func NewEngine(
	orders order.Repository,
	regs registration.Repository,
	gateways *gateway.Registry,
	logger zerolog.Logger,
	metrics *observability.Metrics,
) *Engine {
	return &Engine{
		orders:   orders,
		regs:     regs,
		gateways: gateways,
		logger:   logger,
		metrics:  metrics,
	}
}

// Reconcile verifies a confirmation event and applies its outcome.
//
// The signature is checked before anything is read or written: an event
// that does not verify never touches an order, regardless of channel.
// Lookup tries the external ref first and falls back to the gateway
// payment ref, since some gateways key webhook events by payment id.
func (e *Engine) Reconcile(ctx context.Context, ev *gateway.VerificationEvent) (*Result, error) {
	log := e.logger.With().
		Str("gateway", ev.Gateway).
		Str("channel", string(ev.SourceChannel)).
		Str("external_ref", ev.ExternalRef).
		Logger()

	// Disabled gateways still reconcile: disabling stops new orders, not
	// confirmations for orders already in flight.
	gw, _, err := e.gateways.Get(ev.Gateway)
	if err != nil {
		return nil, err
	}

	if !gw.Verify(ev) {
		e.metrics.SignatureFailures.WithLabelValues(ev.Gateway, string(ev.SourceChannel)).Inc()
		log.Warn().Msg("confirmation event failed signature verification")
		return nil, domainErrors.ErrSignatureMismatch
	}

	o, err := e.lookup(ctx, ev)
	if err != nil {
		return nil, err
	}
	log = log.With().Str("order_id", o.ID.String()).Logger()

	target := order.StatusFailed
	if ev.ClaimedOutcome == gateway.OutcomeSuccess {
		target = order.StatusSuccess
	}

	// Amount mismatches are logged for manual review but do not block the
	// transition; the signature already proved the gateway sent the event.
	if ev.ClaimedAmountMinor > 0 && ev.ClaimedAmountMinor != o.TotalMinor() {
		log.Warn().
			Int64("claimed_amount_minor", ev.ClaimedAmountMinor).
			Int64("expected_amount_minor", o.TotalMinor()).
			Msg("confirmation event amount differs from order total")
	}

	switch o.Status {
	case target:
		// Re-delivery of an outcome already applied.
		e.metrics.DuplicateEvents.WithLabelValues(ev.Gateway, string(ev.SourceChannel)).Inc()
		e.metrics.Reconciliations.WithLabelValues(ev.Gateway, string(ev.SourceChannel), "duplicate").Inc()
		log.Info().Msg("duplicate confirmation event, outcome already applied")
		return &Result{Applied: true, Duplicate: true, FinalStatus: o.Status, Order: o}, nil

	case order.StatusPending:
		return e.applyPending(ctx, log, ev, o, target)

	default:
		// A different terminal outcome is already recorded. First verified
		// outcome wins; the conflict is logged, never overwritten.
		e.metrics.ConflictingEvents.WithLabelValues(ev.Gateway).Inc()
		e.metrics.Reconciliations.WithLabelValues(ev.Gateway, string(ev.SourceChannel), "conflict").Inc()
		log.Error().
			Str("stored_status", string(o.Status)).
			Str("claimed_status", string(target)).
			Msg("conflicting confirmation event for settled order")
		return &Result{Applied: false, FinalStatus: o.Status, Order: o},
			fmt.Errorf("order %s already %s: %w", o.ID, o.Status, domainErrors.ErrConflictingTransition)
	}
}

func (e *Engine) applyPending(ctx context.Context, log zerolog.Logger, ev *gateway.VerificationEvent, o *order.Order, target order.Status) (*Result, error) {
	if err := o.MarkVerified(target, ev.PaymentRef); err != nil {
		return nil, err
	}

	applied, err := e.orders.ApplyVerified(ctx, o.ID, target, ev.PaymentRef, *o.VerifiedAt)
	if err != nil {
		return nil, fmt.Errorf("apply verified outcome: %w", err)
	}
	if !applied {
		// Lost the race to a concurrent event. Re-read to find out which
		// outcome landed first.
		settled, err := e.orders.GetByID(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		if settled.Status == target {
			e.metrics.DuplicateEvents.WithLabelValues(ev.Gateway, string(ev.SourceChannel)).Inc()
			e.metrics.Reconciliations.WithLabelValues(ev.Gateway, string(ev.SourceChannel), "duplicate").Inc()
			log.Info().Msg("concurrent duplicate confirmation event, outcome already applied")
			return &Result{Applied: true, Duplicate: true, FinalStatus: settled.Status, Order: settled}, nil
		}
		e.metrics.ConflictingEvents.WithLabelValues(ev.Gateway).Inc()
		e.metrics.Reconciliations.WithLabelValues(ev.Gateway, string(ev.SourceChannel), "conflict").Inc()
		log.Error().
			Str("stored_status", string(settled.Status)).
			Str("claimed_status", string(target)).
			Msg("conflicting confirmation event lost race to settled order")
		return &Result{Applied: false, FinalStatus: settled.Status, Order: settled},
			fmt.Errorf("order %s already %s: %w", o.ID, settled.Status, domainErrors.ErrConflictingTransition)
	}

	// This event won the transition. Flipping the registration is only
	// done on the winning path, so it happens at most once per order.
	if target == order.StatusSuccess {
		if err := e.regs.MarkPaid(ctx, o.RegistrationID); err != nil {
			// The order is settled; the registration flip can be replayed
			// by any later duplicate of this event.
			log.Error().Err(err).
				Str("registration_id", o.RegistrationID).
				Msg("order settled but registration not marked paid")
			return nil, fmt.Errorf("mark registration paid: %w", err)
		}
		e.metrics.RegistrationsPaid.Inc()
	}

	e.metrics.Reconciliations.WithLabelValues(ev.Gateway, string(ev.SourceChannel), "applied").Inc()
	log.Info().
		Str("status", string(target)).
		Str("payment_ref", ev.PaymentRef).
		Msg("confirmation event applied")
	return &Result{Applied: true, FinalStatus: target, Order: o}, nil
}

// lookup resolves the event to an order, preferring the external ref and
// falling back to the payment ref.
func (e *Engine) lookup(ctx context.Context, ev *gateway.VerificationEvent) (*order.Order, error) {
	ref := ev.ExternalRef
	if ref == "" {
		ref = ev.PaymentRef
	}
	if ref == "" {
		return nil, fmt.Errorf("event carries no order reference: %w", domainErrors.ErrUnknownOrderReference)
	}

	o, err := e.orders.GetByReference(ctx, ref)
	if err == nil {
		return o, nil
	}
	if ev.ExternalRef != "" && ev.PaymentRef != "" && ev.PaymentRef != ev.ExternalRef {
		if o, err2 := e.orders.GetByReference(ctx, ev.PaymentRef); err2 == nil {
			return o, nil
		}
	}

	// No order matches. Log everything needed for manual reconciliation
	// and refuse the event; the gateway will retry webhooks.
	e.metrics.UnknownReferences.WithLabelValues(ev.Gateway).Inc()
	e.logger.Error().
		Str("gateway", ev.Gateway).
		Str("channel", string(ev.SourceChannel)).
		Str("external_ref", ev.ExternalRef).
		Str("payment_ref", ev.PaymentRef).
		Str("claimed_outcome", string(ev.ClaimedOutcome)).
		Int64("claimed_amount_minor", ev.ClaimedAmountMinor).
		Time("received_at", time.Now()).
		Msg("confirmation event references no known order")
	return nil, fmt.Errorf("reference %q: %w", ref, domainErrors.ErrUnknownOrderReference)
}
