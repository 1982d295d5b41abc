package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/confreg/regpay/internal/application/monitor"
	"github.com/confreg/regpay/internal/bootstrap"
	"github.com/confreg/regpay/internal/repository/postgres"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, "regpay-worker", "regpay_worker")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	orderRepo := postgres.NewOrderRepository(app.Pool)
	workerCfg := app.Config.Worker

	mon := monitor.New(
		orderRepo,
		app.Redis,
		app.Logger,
		app.Metrics,
		app.Config.InstanceID,
		workerCfg.StaleAfter,
		workerCfg.BatchSize,
	)

	app.Logger.Info().
		Dur("poll_interval", workerCfg.PollInterval).
		Dur("stale_after", workerCfg.StaleAfter).
		Msg("Stale order monitor started")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return mon.Run(gctx, workerCfg.PollInterval)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		app.Logger.Error().Err(err).Msg("Worker error")
	}
	app.Logger.Info().Msg("Worker exited")
}
