package refund

import (
	"context"
	"fmt"
	"time"

	domainErrors "github.com/confreg/regpay/internal/domain/errors"
	"github.com/confreg/regpay/internal/domain/order"
	"github.com/confreg/regpay/internal/gateway"
	"github.com/confreg/regpay/internal/infrastructure/config"
	"github.com/confreg/regpay/internal/infrastructure/observability"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RefundRequest identifies the order to refund. AmountMinor selects a
// partial refund; zero refunds the full amount charged.
type RefundRequest struct {
	OrderID     uuid.UUID
	AmountMinor int64
	Reason      string
	RequestedBy string
}

// RefundResponse holds the refunded order and the gateway refund id.
type RefundResponse struct {
	Order     *order.Order
	RefundRef string
}

// RefundUseCase refunds a successfully paid order at its gateway and
// records the transition. Only success orders can be refunded; pending
// and failed orders have nothing to give back.
type RefundUseCase struct {
	orders   order.Repository
	gateways *gateway.Registry
	cfg      *config.Config
	logger   zerolog.Logger
	metrics  *observability.Metrics
}

// NewRefundUseCase creates a new RefundUseCase.
func NewRefundUseCase(
	orders order.Repository,
	gateways *gateway.Registry,
	cfg *config.Config,
	logger zerolog.Logger,
	metrics *observability.Metrics,
) *RefundUseCase {
	return &RefundUseCase{
		orders:   orders,
		gateways: gateways,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
	}
}

// Execute refunds an order. The state precondition is checked up front to
// fail fast, and enforced again by the conditional update so a racing
// second refund of the same order cannot go to the gateway twice and win.
func (uc *RefundUseCase) Execute(ctx context.Context, req RefundRequest) (*RefundResponse, error) {
	o, err := uc.orders.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}

	if o.Status != order.StatusSuccess {
		return nil, domainErrors.NewDomainError(
			"refund_not_allowed",
			fmt.Sprintf("order is %s, only success orders can be refunded", o.Status),
			domainErrors.ErrInvalidStateTransition,
		)
	}

	refundMinor := o.TotalMinor()
	if req.AmountMinor != 0 {
		if req.AmountMinor < 0 || req.AmountMinor > o.TotalMinor() {
			return nil, domainErrors.NewValidationError("amount_minor",
				fmt.Sprintf("must be between 1 and the charged total %d", o.TotalMinor()))
		}
		refundMinor = req.AmountMinor
	}

	gw, breaker, err := uc.gateways.Get(string(o.Gateway))
	if err != nil {
		return nil, err
	}

	gwCtx, cancel := context.WithTimeout(ctx, uc.cfg.Payment.GatewayTimeout)
	defer cancel()

	start := time.Now()
	gwResp, err := breaker.Execute(func() (any, error) {
		return gw.Refund(gwCtx, gateway.RefundRequest{
			ExternalRef: o.ExternalRef,
			PaymentRef:  o.PaymentRef,
			AmountMinor: refundMinor,
			Reason:      req.Reason,
		})
	})
	uc.metrics.GatewayLatency.WithLabelValues(string(o.Gateway), "refund").Observe(time.Since(start).Seconds())
	if err != nil {
		uc.metrics.Refunds.WithLabelValues(string(o.Gateway), "error").Inc()
		return nil, fmt.Errorf("gateway refund: %w", err)
	}
	refunded := gwResp.(*gateway.RefundResponse)

	applied, err := uc.orders.ApplyRefund(ctx, o.ID, refunded.RefundRef)
	if err != nil {
		return nil, fmt.Errorf("apply refund transition: %w", err)
	}
	if !applied {
		// The order left success between our read and write. The gateway
		// refund went through, so this needs eyes.
		uc.logger.Error().
			Str("order_id", o.ID.String()).
			Str("refund_ref", refunded.RefundRef).
			Msg("gateway refund succeeded but order was no longer success")
		return nil, fmt.Errorf("order %s no longer refundable: %w",
			o.ID, domainErrors.ErrInvalidStateTransition)
	}

	o.Status = order.StatusRefunded
	o.RefundRef = refunded.RefundRef
	uc.metrics.Refunds.WithLabelValues(string(o.Gateway), "success").Inc()
	uc.logger.Info().
		Str("order_id", o.ID.String()).
		Str("gateway", string(o.Gateway)).
		Str("refund_ref", refunded.RefundRef).
		Int64("amount_minor", refundMinor).
		Str("requested_by", req.RequestedBy).
		Msg("order refunded")

	return &RefundResponse{Order: o, RefundRef: refunded.RefundRef}, nil
}
