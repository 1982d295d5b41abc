package controller

import (
	"net/http"
	"time"

	appOrder "github.com/confreg/regpay/internal/application/order"
	"github.com/confreg/regpay/internal/application/receipt"
	"github.com/confreg/regpay/internal/application/reconcile"
	appRefund "github.com/confreg/regpay/internal/application/refund"
	"github.com/confreg/regpay/internal/domain/order"
	"github.com/confreg/regpay/internal/gateway"
	"github.com/confreg/regpay/internal/infrastructure/config"
	"github.com/confreg/regpay/internal/infrastructure/observability"
	infraRedis "github.com/confreg/regpay/internal/infrastructure/redis"
	customMW "github.com/confreg/regpay/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type RouterDeps struct {
	Pool             *pgxpool.Pool
	RedisClient      *redis.Client
	OrderRepo        order.Repository
	Gateways         *gateway.Registry
	CreateOrder      *appOrder.CreateOrderUseCase
	Reconciler       *reconcile.Engine
	Refund           *appRefund.RefundUseCase
	Receipt          *receipt.RenderUseCase
	IdempotencyStore *infraRedis.IdempotencyStore
	Metrics          *observability.Metrics
	Config           *config.Config
	Logger           zerolog.Logger
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(customMW.SecurityHeaders())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.Server.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: deps.Config.Server.CORS.AllowCredentials,
		MaxAge:           300,
	}))
	r.Use(customMW.Metrics(deps.Metrics))

	healthH := NewHealthController(deps.Pool, deps.RedisClient)
	orderH := NewOrderController(deps.CreateOrder, deps.OrderRepo)
	callbackH := NewCallbackController(deps.Reconciler, deps.Gateways, deps.Config.Payment.ResultURL, deps.Logger)
	webhookH := NewWebhookController(deps.Reconciler, deps.Gateways, deps.Logger)
	refundH := NewRefundController(deps.Refund)
	receiptH := NewReceiptController(deps.Receipt)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		idempotencyMW := customMW.Idempotency(deps.IdempotencyStore)
		rateLimitMW := customMW.RateLimit(deps.Config.Server.RateLimitPerMinute)

		// Orders
		r.With(rateLimitMW, idempotencyMW).Post("/orders", orderH.Create)
		r.Get("/orders/{id}", orderH.Get)

		// Confirmation channels. Callbacks arrive as GET or POST depending
		// on the gateway; webhooks are always POST.
		r.Get("/callback/{gateway}", callbackH.Handle)
		r.Post("/callback/{gateway}", callbackH.Handle)
		r.Post("/webhook/{gateway}", webhookH.Handle)

		// Back office. Auth runs before idempotency so a replayed
		// response still requires a valid token.
		var refundMWs []func(http.Handler) http.Handler
		if deps.Config.Server.JWTSecret != "" {
			refundMWs = append(refundMWs, customMW.RequireAuth(deps.Config.Server.JWTSecret))
		}
		refundMWs = append(refundMWs, idempotencyMW)
		r.With(refundMWs...).Post("/refund", refundH.Refund)

		r.Get("/receipt", receiptH.Get)
	})

	return r
}
