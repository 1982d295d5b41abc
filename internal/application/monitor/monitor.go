package monitor

import (
	"context"
	"time"

	"github.com/confreg/regpay/internal/domain/order"
	"github.com/confreg/regpay/internal/infrastructure/observability"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const lockKey = "regpay:monitor:lock"

// Monitor periodically sweeps for pending orders that should have been
// settled by a confirmation event by now. It never changes their state;
// pending orders do not expire. It surfaces them in the log and a gauge
// so a human can reconcile against the gateway dashboard.
type Monitor struct {
	orders     order.Repository
	redis      *redis.Client
	logger     zerolog.Logger
	metrics    *observability.Metrics
	instanceID string
	staleAfter time.Duration
	batchSize  int
}

// New creates a new Monitor.
func New(
	orders order.Repository,
	redisClient *redis.Client,
	logger zerolog.Logger,
	metrics *observability.Metrics,
	instanceID string,
	staleAfter time.Duration,
	batchSize int,
) *Monitor {
	return &Monitor{
		orders:     orders,
		redis:      redisClient,
		logger:     logger,
		metrics:    metrics,
		instanceID: instanceID,
		staleAfter: staleAfter,
		batchSize:  batchSize,
	}
}

// Run sweeps on the given interval until the context is cancelled.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		m.sweep(ctx)
	}
}

func (m *Monitor) sweep(ctx context.Context) {
	// One instance sweeps at a time; the others find the lock held and
	// skip the round.
	acquired, err := m.redis.SetNX(ctx, lockKey, m.instanceID, m.staleAfter/2).Result()
	if err != nil {
		m.logger.Error().Err(err).Msg("monitor lock acquisition failed")
		return
	}
	if !acquired {
		return
	}
	defer m.redis.Del(ctx, lockKey)

	cutoff := time.Now().Add(-m.staleAfter)
	stale, err := m.orders.ListPendingOlderThan(ctx, cutoff, m.batchSize)
	if err != nil {
		m.logger.Error().Err(err).Msg("stale pending order sweep failed")
		return
	}

	m.metrics.StalePendingOrders.Set(float64(len(stale)))
	for _, o := range stale {
		m.logger.Warn().
			Str("order_id", o.ID.String()).
			Str("gateway", string(o.Gateway)).
			Str("external_ref", o.ExternalRef).
			Str("registration_id", o.RegistrationID).
			Time("created_at", o.CreatedAt).
			Msg("pending order past stale threshold, check gateway dashboard")
	}
}
