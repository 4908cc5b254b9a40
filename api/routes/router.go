package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	admincontrollers "github.com/angelmondragon/storefront-backend/api/controllers/admin"
	analyticscontrollers "github.com/angelmondragon/storefront-backend/api/controllers/analytics"
	ordercontrollers "github.com/angelmondragon/storefront-backend/api/controllers/orders"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

// OrdersService is everything the order routes call on the facade.
type OrdersService interface {
	ordercontrollers.Service
	admincontrollers.OrdersService
}

// Dependencies carries the collaborators the router hands to controllers.
// Nil Gatherer disables /metrics.
type Dependencies struct {
	Readiness   map[string]controllers.Pinger
	Orders      OrdersService
	Analytics   analyticscontrollers.Service
	Events      admincontrollers.EventSource
	Authorizer  admincontrollers.Authorizer
	Idempotency pkgredis.IdempotencyStore
	HTTPMetrics *metrics.HTTPMetrics
	Gatherer    prometheus.Gatherer
	Heartbeat   time.Duration
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Recoverer(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Readiness))
	})
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	loc, err := cfg.Analytics.Location()
	if err != nil {
		loc = time.UTC
	}
	idempotent := middleware.Idempotency(deps.Idempotency, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		// The event feed is long-lived and must not inherit the request timeout.
		r.Get("/admin/orders/events", admincontrollers.Events(deps.Events, deps.Authorizer, deps.Heartbeat, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(cfg.App.RequestTimeout))

			r.With(idempotent).Post("/checkout", ordercontrollers.Checkout(deps.Orders, logg))
			r.Get("/orders", ordercontrollers.List(deps.Orders, logg))
			r.Get("/orders/{orderId}", ordercontrollers.Detail(deps.Orders, logg))
			r.With(idempotent).Post("/orders/{orderId}/return", ordercontrollers.RequestReturn(deps.Orders, logg))

			r.Get("/admin/analytics", analyticscontrollers.OrderReport(deps.Analytics, loc, logg))
			r.With(idempotent).Post("/admin/orders/clear", admincontrollers.ClearAll(deps.Orders, logg))
			r.Patch("/admin/orders/{orderId}/status", admincontrollers.UpdateStatus(deps.Orders, logg))
			r.Patch("/admin/orders/{orderId}/return", admincontrollers.UpdateReturnStatus(deps.Orders, logg))
			r.Patch("/admin/orders/{orderId}/payment", admincontrollers.UpdatePaymentStatus(deps.Orders, logg))
			r.With(idempotent).Delete("/admin/orders/{orderId}", admincontrollers.Delete(deps.Orders, logg))
		})
	})

	return r
}
