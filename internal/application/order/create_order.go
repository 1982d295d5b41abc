package order

import (
	"context"
	"fmt"
	"time"

	domainErrors "github.com/confreg/regpay/internal/domain/errors"
	"github.com/confreg/regpay/internal/domain/order"
	"github.com/confreg/regpay/internal/domain/registration"
	"github.com/confreg/regpay/internal/gateway"
	"github.com/confreg/regpay/internal/infrastructure/config"
	"github.com/confreg/regpay/internal/infrastructure/observability"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CreateOrderRequest holds the input for creating a payment order.
type CreateOrderRequest struct {
	RegistrationID string
	AmountMinor    int64
	Currency       string
	Name           string
	Email          string
	Phone          string
	RedirectURL    string
	Gateway        string
}

// CreateOrderResponse holds the persisted order and whatever the browser
// needs to open the gateway checkout.
type CreateOrderResponse struct {
	Order           *order.Order
	CheckoutPayload map[string]any
}

// CreateOrderUseCase validates the request, mints an external reference at
// the selected gateway and persists the pending order. The stored order is
// the explicit externalRef -> registrationId mapping every later
// confirmation event resolves through.
type CreateOrderUseCase struct {
	orders   order.Repository
	regs     registration.Repository
	gateways *gateway.Registry
	cfg      *config.Config
	logger   zerolog.Logger
	metrics  *observability.Metrics
}

// NewCreateOrderUseCase creates a new CreateOrderUseCase.
func NewCreateOrderUseCase(
	orders order.Repository,
	regs registration.Repository,
	gateways *gateway.Registry,
	cfg *config.Config,
	logger zerolog.Logger,
	metrics *observability.Metrics,
) *CreateOrderUseCase {
	return &CreateOrderUseCase{
		orders:   orders,
		regs:     regs,
		gateways: gateways,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
	}
}

// Execute creates a payment order. All validation happens before the
// gateway is called: an out-of-bounds amount or missing payer field must
// never reach the wire.
func (uc *CreateOrderUseCase) Execute(ctx context.Context, req CreateOrderRequest) (*CreateOrderResponse, error) {
	currency := req.Currency
	if currency == "" {
		currency = uc.cfg.Payment.Currency
	}

	payer := order.Payer{Name: req.Name, Email: req.Email, Phone: req.Phone}
	if err := order.ValidatePayer(payer); err != nil {
		return nil, err
	}
	if err := order.ValidateAmount(req.AmountMinor, currency); err != nil {
		return nil, err
	}

	bounds, ok := uc.cfg.BoundsFor(req.Gateway)
	if !ok {
		return nil, fmt.Errorf("gateway %q: %w", req.Gateway, domainErrors.ErrGatewayNotFound)
	}
	if !bounds.Contains(req.AmountMinor) {
		return nil, domainErrors.NewDomainError(
			"amount_out_of_bounds",
			fmt.Sprintf("amount %d outside [%d, %d] for gateway %s",
				req.AmountMinor, bounds.MinMinor, bounds.MaxMinor, req.Gateway),
			domainErrors.ErrAmountOutOfBounds,
		)
	}

	if !uc.gateways.Enabled(req.Gateway) {
		return nil, fmt.Errorf("gateway %q: %w", req.Gateway, domainErrors.ErrGatewayDisabled)
	}
	gw, breaker, err := uc.gateways.Get(req.Gateway)
	if err != nil {
		return nil, err
	}

	// The owning registration must exist before money moves toward it.
	if _, err := uc.regs.GetByID(ctx, req.RegistrationID); err != nil {
		return nil, err
	}

	orderID := uuid.New()
	totalMinor := req.AmountMinor + uc.cfg.Payment.SurchargeMinor

	gwCtx, cancel := context.WithTimeout(ctx, uc.cfg.Payment.GatewayTimeout)
	defer cancel()

	start := time.Now()
	gwResp, err := breaker.Execute(func() (any, error) {
		return gw.CreateOrder(gwCtx, gateway.CreateOrderRequest{
			OrderID:        orderID.String(),
			RegistrationID: req.RegistrationID,
			AmountMinor:    totalMinor,
			Currency:       currency,
			PayerName:      req.Name,
			PayerEmail:     req.Email,
			PayerPhone:     req.Phone,
			RedirectURL:    req.RedirectURL,
		})
	})
	uc.metrics.GatewayLatency.WithLabelValues(req.Gateway, "create_order").Observe(time.Since(start).Seconds())
	if err != nil {
		uc.metrics.OrderErrors.WithLabelValues(req.Gateway, "gateway").Inc()
		return nil, fmt.Errorf("gateway order creation: %w", err)
	}
	created := gwResp.(*gateway.CreateOrderResponse)

	o, err := order.New(req.RegistrationID, order.Gateway(req.Gateway), created.ExternalRef,
		req.AmountMinor, uc.cfg.Payment.SurchargeMinor, currency, payer)
	if err != nil {
		return nil, err
	}
	o.ID = orderID

	if err := uc.orders.Create(ctx, o); err != nil {
		// The gateway order is already in flight. A later confirmation
		// event will surface as an unknown reference and land in the
		// manual reconciliation log rather than being dropped.
		uc.metrics.OrderErrors.WithLabelValues(req.Gateway, "store").Inc()
		uc.logger.Error().Err(err).
			Str("gateway", req.Gateway).
			Str("external_ref", created.ExternalRef).
			Str("registration_id", req.RegistrationID).
			Msg("order persisted failed after gateway call, external ref is in flight")
		return nil, fmt.Errorf("persist order: %w", err)
	}

	uc.metrics.OrdersCreated.WithLabelValues(req.Gateway).Inc()
	uc.logger.Info().
		Str("order_id", o.ID.String()).
		Str("gateway", req.Gateway).
		Str("external_ref", o.ExternalRef).
		Str("registration_id", req.RegistrationID).
		Int64("amount_minor", o.AmountMinor).
		Msg("payment order created")

	return &CreateOrderResponse{Order: o, CheckoutPayload: created.CheckoutPayload}, nil
}
