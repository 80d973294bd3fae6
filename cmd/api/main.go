package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/freshfork/mealkit-backend/api/routes"
	"github.com/freshfork/mealkit-backend/internal/audit"
	"github.com/freshfork/mealkit-backend/internal/checkout"
	"github.com/freshfork/mealkit-backend/internal/discounts"
	"github.com/freshfork/mealkit-backend/internal/fulfillment"
	"github.com/freshfork/mealkit-backend/internal/notifications"
	"github.com/freshfork/mealkit-backend/internal/orders"
	"github.com/freshfork/mealkit-backend/internal/subscriptions"
	stripewebhook "github.com/freshfork/mealkit-backend/internal/webhooks/stripe"
	"github.com/freshfork/mealkit-backend/pkg/config"
	"github.com/freshfork/mealkit-backend/pkg/db"
	"github.com/freshfork/mealkit-backend/pkg/logger"
	"github.com/freshfork/mealkit-backend/pkg/metrics"
	"github.com/freshfork/mealkit-backend/pkg/migrate"
	"github.com/freshfork/mealkit-backend/pkg/outbox"
	"github.com/freshfork/mealkit-backend/pkg/redis"
	"github.com/freshfork/mealkit-backend/pkg/stripe"
)

const webhookGuardTTL = 24 * time.Hour

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	pipelineMetrics := metrics.NewPipelineMetrics(registry)

	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	enqueuer := notifications.NewEnqueuer(outboxSvc)
	auditSvc := audit.NewService(audit.NewRepository(dbClient.DB()), logg)

	discountSvc := discounts.NewService(discounts.NewRepository(dbClient.DB()), cfg.Checkout, logg)
	pendingRepo := checkout.NewRepository(dbClient.DB())
	checkoutSvc := checkout.NewService(pendingRepo, discountSvc, checkout.NewStripeGateway(stripeClient), cfg.Checkout, logg)

	orderRepo := orders.NewRepository(dbClient.DB())
	orderSvc := orders.NewService(dbClient, orderRepo, auditSvc, enqueuer, logg)

	subRepo := subscriptions.NewRepository(dbClient.DB())
	subGateway := subscriptions.NewStripeClient(stripeClient, cfg.Stripe.ProductID)
	subSvc := subscriptions.NewService(dbClient, subRepo, subGateway, auditSvc, enqueuer, cfg.Checkout, logg)

	fulfillmentSvc := fulfillment.NewService(dbClient, pendingRepo, orderRepo, subRepo, subGateway, auditSvc, enqueuer, cfg.Checkout, logg)

	webhookSvc, err := stripewebhook.NewService(stripewebhook.NewEventRepository(dbClient.DB()), fulfillmentSvc, pipelineMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}
	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, webhookGuardTTL, "stripe-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:               cfg,
			Logger:               logg,
			DB:                   dbClient,
			Redis:                redisClient,
			CheckoutService:      checkoutSvc,
			SubscriptionService:  subSvc,
			OrderService:         orderSvc,
			StripeClient:         stripeClient,
			StripeWebhookService: webhookSvc,
			StripeWebhookGuard:   webhookGuard,
			MetricsRegistry:      registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
