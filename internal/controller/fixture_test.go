package controller

import (
	"testing"
	"time"

	appOrder "github.com/confreg/regpay/internal/application/order"
	"github.com/confreg/regpay/internal/application/receipt"
	"github.com/confreg/regpay/internal/application/reconcile"
	appRefund "github.com/confreg/regpay/internal/application/refund"
	"github.com/confreg/regpay/internal/gateway"
	"github.com/confreg/regpay/internal/infrastructure/config"
	"github.com/confreg/regpay/internal/infrastructure/observability"
	"github.com/confreg/regpay/internal/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const testResultURL = "https://conf.example.com/payment/result"

// apiFixture wires the controllers against in-memory mocks and mounts them
// on the same routes the real router uses.
type apiFixture struct {
	router   *chi.Mux
	orders   *testutil.MockOrderRepository
	regs     *testutil.MockRegistrationRepository
	gw       *testutil.FakeGateway
	registry *gateway.Registry
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	orders := testutil.NewMockOrderRepository()
	regs := testutil.NewMockRegistrationRepository()
	gw := testutil.NewFakeGateway("razorpay")
	registry := gateway.NewRegistry(gw)
	metrics := observability.NewMetrics("test", prometheus.NewRegistry())
	logger := zerolog.Nop()

	cfg := &config.Config{}
	cfg.Payment.Currency = "INR"
	cfg.Payment.SurchargeMinor = 200
	cfg.Payment.GatewayTimeout = 5 * time.Second
	cfg.Payment.ResultURL = testResultURL
	cfg.Razorpay.Enabled = true
	cfg.Razorpay.Bounds = config.AmountBounds{MinMinor: 100, MaxMinor: 1_000_000}

	engine := reconcile.NewEngine(orders, regs, registry, logger, metrics)
	createUC := appOrder.NewCreateOrderUseCase(orders, regs, registry, cfg, logger, metrics)
	refundUC := appRefund.NewRefundUseCase(orders, registry, cfg, logger, metrics)
	receiptUC := receipt.NewRenderUseCase(orders, regs, logger)

	orderCtrl := NewOrderController(createUC, orders)
	callbackCtrl := NewCallbackController(engine, registry, cfg.Payment.ResultURL, logger)
	webhookCtrl := NewWebhookController(engine, registry, logger)
	refundCtrl := NewRefundController(refundUC)
	receiptCtrl := NewReceiptController(receiptUC)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/orders", orderCtrl.Create)
		r.Get("/orders/{id}", orderCtrl.Get)
		r.Get("/callback/{gateway}", callbackCtrl.Handle)
		r.Post("/callback/{gateway}", callbackCtrl.Handle)
		r.Post("/webhook/{gateway}", webhookCtrl.Handle)
		r.Post("/refund", refundCtrl.Refund)
		r.Get("/receipt", receiptCtrl.Get)
	})

	return &apiFixture{router: r, orders: orders, regs: regs, gw: gw, registry: registry}
}
