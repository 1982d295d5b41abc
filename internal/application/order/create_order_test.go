package order

import (
	"context"
	"errors"
	"testing"
	"time"

	domainErrors "github.com/confreg/regpay/internal/domain/errors"
	"github.com/confreg/regpay/internal/domain/order"
	"github.com/confreg/regpay/internal/gateway"
	"github.com/confreg/regpay/internal/infrastructure/config"
	"github.com/confreg/regpay/internal/infrastructure/observability"
	"github.com/confreg/regpay/internal/testutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Payment.Currency = "INR"
	cfg.Payment.SurchargeMinor = 200
	cfg.Payment.GatewayTimeout = 5 * time.Second
	cfg.Razorpay.Enabled = true
	cfg.Razorpay.Bounds = config.AmountBounds{MinMinor: 100, MaxMinor: 1_000_000}
	cfg.PayU.Enabled = true
	cfg.PayU.Bounds = config.AmountBounds{MinMinor: 100, MaxMinor: 1_000_000}
	return cfg
}

type ucFixture struct {
	uc     *CreateOrderUseCase
	orders *testutil.MockOrderRepository
	regs   *testutil.MockRegistrationRepository
	gw     *testutil.FakeGateway
	reg    *gateway.Registry
}

func newUCFixture(t *testing.T) *ucFixture {
	t.Helper()
	orders := testutil.NewMockOrderRepository()
	regs := testutil.NewMockRegistrationRepository()
	regs.AddRegistration(testutil.NewTestRegistration("reg-1"))
	gw := testutil.NewFakeGateway("razorpay")
	registry := gateway.NewRegistry(gw)
	metrics := observability.NewMetrics("test", prometheus.NewRegistry())
	uc := NewCreateOrderUseCase(orders, regs, registry, testConfig(), zerolog.Nop(), metrics)
	return &ucFixture{uc: uc, orders: orders, regs: regs, gw: gw, reg: registry}
}

func validRequest() CreateOrderRequest {
	return CreateOrderRequest{
		RegistrationID: "reg-1",
		AmountMinor:    50000,
		Gateway:        "razorpay",
		Name:           "Asha Rao",
		Email:          "asha@example.com",
		Phone:          "+919999999999",
	}
}

func TestCreateOrder_Success(t *testing.T) {
	f := newUCFixture(t)

	resp, err := f.uc.Execute(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	o := resp.Order
	if o.Status != order.StatusPending {
		t.Errorf("status = %s, want pending", o.Status)
	}
	if o.ExternalRef == "" {
		t.Error("external ref is empty")
	}
	if o.AmountMinor != 50000 || o.SurchargeMinor != 200 {
		t.Errorf("amounts = %d + %d, want 50000 + 200", o.AmountMinor, o.SurchargeMinor)
	}
	if o.Currency != "INR" {
		t.Errorf("currency = %s, want default INR", o.Currency)
	}
	if resp.CheckoutPayload == nil {
		t.Error("checkout payload is nil")
	}
	if f.orders.GetOrderByID(o.ID) == nil {
		t.Error("order not persisted")
	}
}

func TestCreateOrder_AmountOutOfBoundsNeverReachesGateway(t *testing.T) {
	f := newUCFixture(t)
	gatewayCalled := false
	f.gw.CreateOrderFunc = func(ctx context.Context, req gateway.CreateOrderRequest) (*gateway.CreateOrderResponse, error) {
		gatewayCalled = true
		return nil, errors.New("should not be reached")
	}

	req := validRequest()
	req.AmountMinor = 2_000_000

	_, err := f.uc.Execute(context.Background(), req)
	if !errors.Is(err, domainErrors.ErrAmountOutOfBounds) {
		t.Fatalf("Execute() error = %v, want ErrAmountOutOfBounds", err)
	}
	if gatewayCalled {
		t.Error("gateway was called for an out-of-bounds amount")
	}
}

func TestCreateOrder_InvalidPayer(t *testing.T) {
	f := newUCFixture(t)

	req := validRequest()
	req.Email = ""

	_, err := f.uc.Execute(context.Background(), req)
	var validationErr *domainErrors.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("Execute() error = %v, want ValidationError", err)
	}
}

func TestCreateOrder_UnknownGateway(t *testing.T) {
	f := newUCFixture(t)

	req := validRequest()
	req.Gateway = "stripe"

	_, err := f.uc.Execute(context.Background(), req)
	if !errors.Is(err, domainErrors.ErrGatewayNotFound) {
		t.Fatalf("Execute() error = %v, want ErrGatewayNotFound", err)
	}
}

func TestCreateOrder_DisabledGateway(t *testing.T) {
	f := newUCFixture(t)
	f.reg.SetEnabled("razorpay", false)

	_, err := f.uc.Execute(context.Background(), validRequest())
	if !errors.Is(err, domainErrors.ErrGatewayDisabled) {
		t.Fatalf("Execute() error = %v, want ErrGatewayDisabled", err)
	}
}

func TestCreateOrder_MissingRegistration(t *testing.T) {
	f := newUCFixture(t)

	req := validRequest()
	req.RegistrationID = "reg-nobody"

	_, err := f.uc.Execute(context.Background(), req)
	if !errors.Is(err, domainErrors.ErrRegistrationNotFound) {
		t.Fatalf("Execute() error = %v, want ErrRegistrationNotFound", err)
	}
}

func TestCreateOrder_GatewayChargedTotalIncludingSurcharge(t *testing.T) {
	f := newUCFixture(t)
	var charged int64
	f.gw.CreateOrderFunc = func(ctx context.Context, req gateway.CreateOrderRequest) (*gateway.CreateOrderResponse, error) {
		charged = req.AmountMinor
		return &gateway.CreateOrderResponse{ExternalRef: "ext_1"}, nil
	}

	if _, err := f.uc.Execute(context.Background(), validRequest()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if charged != 50200 {
		t.Errorf("gateway charged %d, want amount+surcharge 50200", charged)
	}
}

func TestCreateOrder_GatewayFailure(t *testing.T) {
	f := newUCFixture(t)
	f.gw.CreateOrderFunc = func(ctx context.Context, req gateway.CreateOrderRequest) (*gateway.CreateOrderResponse, error) {
		return nil, domainErrors.ErrGatewayUnavailable
	}

	_, err := f.uc.Execute(context.Background(), validRequest())
	if !errors.Is(err, domainErrors.ErrGatewayUnavailable) {
		t.Fatalf("Execute() error = %v, want ErrGatewayUnavailable", err)
	}
}
