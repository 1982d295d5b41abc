package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	appOrder "github.com/confreg/regpay/internal/application/order"
	"github.com/confreg/regpay/internal/application/receipt"
	"github.com/confreg/regpay/internal/application/reconcile"
	appRefund "github.com/confreg/regpay/internal/application/refund"
	"github.com/confreg/regpay/internal/bootstrap"
	"github.com/confreg/regpay/internal/controller"
	"github.com/confreg/regpay/internal/gateway"
	"github.com/confreg/regpay/internal/gateway/payu"
	"github.com/confreg/regpay/internal/gateway/razorpay"
	infraRedis "github.com/confreg/regpay/internal/infrastructure/redis"
	"github.com/confreg/regpay/internal/repository/postgres"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, "regpay-api", "regpay")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()
	cfg := app.Config

	// --- Repositories ---
	orderRepo := postgres.NewOrderRepository(app.Pool)
	registrationRepo := postgres.NewRegistrationRepository(app.Pool)
	idempotencyStore := infraRedis.NewIdempotencyStore(app.Redis, cfg.Payment.IdempotencyTTL)

	// --- Gateways ---
	registry := gateway.NewRegistry(
		razorpay.New(razorpay.Config{
			KeyID:         cfg.Razorpay.KeyID,
			KeySecret:     cfg.Razorpay.KeySecret,
			WebhookSecret: cfg.Razorpay.WebhookSecret,
			BaseURL:       cfg.Razorpay.BaseURL,
			Timeout:       cfg.Payment.GatewayTimeout,
		}),
		payu.New(payu.Config{
			Key:         cfg.PayU.Key,
			Salt:        cfg.PayU.Salt,
			CheckoutURL: cfg.PayU.CheckoutURL,
			ServiceURL:  cfg.PayU.ServiceURL,
			Timeout:     cfg.Payment.GatewayTimeout,
		}),
	)
	registry.SetEnabled("razorpay", cfg.Razorpay.Enabled)
	registry.SetEnabled("payu", cfg.PayU.Enabled)

	// --- Application services ---
	createOrderUC := appOrder.NewCreateOrderUseCase(orderRepo, registrationRepo, registry, cfg, app.Logger, app.Metrics)
	reconciler := reconcile.NewEngine(orderRepo, registrationRepo, registry, app.Logger, app.Metrics)
	refundUC := appRefund.NewRefundUseCase(orderRepo, registry, cfg, app.Logger, app.Metrics)
	receiptUC := receipt.NewRenderUseCase(orderRepo, registrationRepo, app.Logger)

	// --- Build router ---
	router := controller.NewRouter(controller.RouterDeps{
		Pool:             app.Pool,
		RedisClient:      app.Redis,
		OrderRepo:        orderRepo,
		Gateways:         registry,
		CreateOrder:      createOrderUC,
		Reconciler:       reconciler,
		Refund:           refundUC,
		Receipt:          receiptUC,
		IdempotencyStore: idempotencyStore,
		Metrics:          app.Metrics,
		Config:           cfg,
		Logger:           app.Logger,
	})

	// --- HTTP server ---
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		app.Logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		app.Logger.Info().Msg("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		app.Logger.Error().Err(err).Msg("Server exited with error")
		os.Exit(1)
	}
	app.Logger.Info().Msg("Server exited")
}
