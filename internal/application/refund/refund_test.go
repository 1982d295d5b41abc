package refund

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
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

type refundFixture struct {
	uc     *RefundUseCase
	orders *testutil.MockOrderRepository
	gw     *testutil.FakeGateway
}

func newRefundFixture(t *testing.T) *refundFixture {
	t.Helper()
	orders := testutil.NewMockOrderRepository()
	gw := testutil.NewFakeGateway("razorpay")
	registry := gateway.NewRegistry(gw)
	cfg := &config.Config{}
	cfg.Payment.GatewayTimeout = 5 * time.Second
	metrics := observability.NewMetrics("test", prometheus.NewRegistry())
	uc := NewRefundUseCase(orders, registry, cfg, zerolog.Nop(), metrics)
	return &refundFixture{uc: uc, orders: orders, gw: gw}
}

func TestRefund_Success(t *testing.T) {
	f := newRefundFixture(t)
	o := testutil.NewSuccessOrder("reg-1", order.GatewayRazorpay, 50000)
	f.orders.AddOrder(o)

	resp, err := f.uc.Execute(context.Background(), RefundRequest{OrderID: o.ID, Reason: "event cancelled"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if resp.Order.Status != order.StatusRefunded {
		t.Errorf("status = %s, want refunded", resp.Order.Status)
	}
	if resp.RefundRef == "" {
		t.Error("refund ref is empty")
	}
	if got := f.orders.GetOrderByID(o.ID).Status; got != order.StatusRefunded {
		t.Errorf("stored status = %s, want refunded", got)
	}
}

func TestRefund_DefaultsToFullAmount(t *testing.T) {
	f := newRefundFixture(t)
	o := testutil.NewSuccessOrder("reg-1", order.GatewayRazorpay, 50000)
	o.SurchargeMinor = 1000
	f.orders.AddOrder(o)

	var sentMinor int64
	f.gw.RefundFunc = func(ctx context.Context, req gateway.RefundRequest) (*gateway.RefundResponse, error) {
		sentMinor = req.AmountMinor
		return &gateway.RefundResponse{RefundRef: "rfnd_1", Status: "processed"}, nil
	}

	_, err := f.uc.Execute(context.Background(), RefundRequest{OrderID: o.ID})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if sentMinor != o.TotalMinor() {
		t.Errorf("gateway refund amount = %d, want full total %d", sentMinor, o.TotalMinor())
	}
}

func TestRefund_PartialAmountReachesGateway(t *testing.T) {
	f := newRefundFixture(t)
	o := testutil.NewSuccessOrder("reg-1", order.GatewayRazorpay, 50000)
	f.orders.AddOrder(o)

	var sentMinor int64
	f.gw.RefundFunc = func(ctx context.Context, req gateway.RefundRequest) (*gateway.RefundResponse, error) {
		sentMinor = req.AmountMinor
		return &gateway.RefundResponse{RefundRef: "rfnd_1", Status: "processed"}, nil
	}

	resp, err := f.uc.Execute(context.Background(), RefundRequest{OrderID: o.ID, AmountMinor: 20000})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if sentMinor != 20000 {
		t.Errorf("gateway refund amount = %d, want 20000", sentMinor)
	}
	if resp.Order.Status != order.StatusRefunded {
		t.Errorf("status = %s, want refunded", resp.Order.Status)
	}
}

func TestRefund_AmountAboveTotalRejected(t *testing.T) {
	f := newRefundFixture(t)
	o := testutil.NewSuccessOrder("reg-1", order.GatewayRazorpay, 50000)
	f.orders.AddOrder(o)

	gatewayCalled := false
	f.gw.RefundFunc = func(ctx context.Context, req gateway.RefundRequest) (*gateway.RefundResponse, error) {
		gatewayCalled = true
		return nil, errors.New("should not be reached")
	}

	_, err := f.uc.Execute(context.Background(), RefundRequest{OrderID: o.ID, AmountMinor: o.TotalMinor() + 1})
	var vErr *domainErrors.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Execute() error = %v, want *ValidationError", err)
	}
	if vErr.Field != "amount_minor" {
		t.Errorf("validation field = %s, want amount_minor", vErr.Field)
	}
	if gatewayCalled {
		t.Error("gateway refund was called with an amount above the charged total")
	}
	if got := f.orders.GetOrderByID(o.ID).Status; got != order.StatusSuccess {
		t.Errorf("stored status = %s, want success untouched", got)
	}
}

func TestRefund_OnlySuccessOrdersRefundable(t *testing.T) {
	tests := []struct {
		name   string
		status order.Status
	}{
		{"pending", order.StatusPending},
		{"failed", order.StatusFailed},
		{"already refunded", order.StatusRefunded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRefundFixture(t)
			o := testutil.NewTestOrder("reg-1", order.GatewayRazorpay, 50000)
			o.Status = tt.status
			f.orders.AddOrder(o)

			gatewayCalled := false
			f.gw.RefundFunc = func(ctx context.Context, req gateway.RefundRequest) (*gateway.RefundResponse, error) {
				gatewayCalled = true
				return nil, errors.New("should not be reached")
			}

			_, err := f.uc.Execute(context.Background(), RefundRequest{OrderID: o.ID})
			if !errors.Is(err, domainErrors.ErrInvalidStateTransition) {
				t.Fatalf("Execute() error = %v, want ErrInvalidStateTransition", err)
			}
			if gatewayCalled {
				t.Error("gateway refund was called for a non-success order")
			}
		})
	}
}

func TestRefund_OrderNotFound(t *testing.T) {
	f := newRefundFixture(t)

	_, err := f.uc.Execute(context.Background(), RefundRequest{OrderID: uuid.New()})
	if !errors.Is(err, domainErrors.ErrOrderNotFound) {
		t.Fatalf("Execute() error = %v, want ErrOrderNotFound", err)
	}
}

func TestRefund_GatewayFailureLeavesOrderSuccess(t *testing.T) {
	f := newRefundFixture(t)
	o := testutil.NewSuccessOrder("reg-1", order.GatewayRazorpay, 50000)
	f.orders.AddOrder(o)
	f.gw.RefundFunc = func(ctx context.Context, req gateway.RefundRequest) (*gateway.RefundResponse, error) {
		return nil, domainErrors.ErrGatewayUnavailable
	}

	_, err := f.uc.Execute(context.Background(), RefundRequest{OrderID: o.ID})
	if !errors.Is(err, domainErrors.ErrGatewayUnavailable) {
		t.Fatalf("Execute() error = %v, want ErrGatewayUnavailable", err)
	}
	if got := f.orders.GetOrderByID(o.ID).Status; got != order.StatusSuccess {
		t.Errorf("stored status = %s, want success untouched", got)
	}
}

func TestRefund_RaceLosesToConcurrentRefund(t *testing.T) {
	f := newRefundFixture(t)
	o := testutil.NewSuccessOrder("reg-1", order.GatewayRazorpay, 50000)
	f.orders.AddOrder(o)

	// Another instance refunds between our read and write.
	f.orders.ApplyRefundFunc = func(ctx context.Context, id uuid.UUID, refundRef string) (bool, error) {
		return false, nil
	}

	_, err := f.uc.Execute(context.Background(), RefundRequest{OrderID: o.ID})
	if !errors.Is(err, domainErrors.ErrInvalidStateTransition) {
		t.Fatalf("Execute() error = %v, want ErrInvalidStateTransition", err)
	}
}
