package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/freshfork/mealkit-backend/api/controllers"
	webhookcontrollers "github.com/freshfork/mealkit-backend/api/controllers/webhooks"
	"github.com/freshfork/mealkit-backend/api/middleware"
	checkoutsvc "github.com/freshfork/mealkit-backend/internal/checkout"
	ordersvc "github.com/freshfork/mealkit-backend/internal/orders"
	subscriptionsvc "github.com/freshfork/mealkit-backend/internal/subscriptions"
	stripewebhook "github.com/freshfork/mealkit-backend/internal/webhooks/stripe"
	"github.com/freshfork/mealkit-backend/pkg/config"
	"github.com/freshfork/mealkit-backend/pkg/db"
	"github.com/freshfork/mealkit-backend/pkg/logger"
	"github.com/freshfork/mealkit-backend/pkg/redis"
	"github.com/freshfork/mealkit-backend/pkg/stripe"
)

type RouterParams struct {
	Config               *config.Config
	Logger               *logger.Logger
	DB                   db.Pinger
	Redis                *redis.Client
	CheckoutService      *checkoutsvc.Service
	SubscriptionService  *subscriptionsvc.Service
	OrderService         *ordersvc.Service
	StripeClient         *stripe.Client
	StripeWebhookService *stripewebhook.Service
	StripeWebhookGuard   *stripewebhook.IdempotencyGuard
	MetricsRegistry      *prometheus.Registry
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, p.DB, p.Redis, logg))
	})

	if p.MetricsRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.MetricsRegistry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/payments", webhookcontrollers.StripeWebhook(p.StripeWebhookService, p.StripeClient, p.StripeWebhookGuard, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Post("/checkout/quote", controllers.CheckoutQuote(p.CheckoutService, logg))

		r.Route("/subscriptions", func(r chi.Router) {
			r.Put("/{id}", controllers.SubscriptionAction(p.SubscriptionService, logg))
			r.Delete("/{id}", controllers.SubscriptionCancel(p.SubscriptionService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireOperator(logg))

		r.Put("/orders/{id}/status", controllers.UpdateOrderStatus(p.OrderService, logg))
	})

	return r
}
