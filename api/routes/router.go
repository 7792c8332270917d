package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lavify/lavify-backend/api/controllers"
	webhookcontrollers "github.com/lavify/lavify-backend/api/controllers/webhooks"
	"github.com/lavify/lavify-backend/api/middleware"
	"github.com/lavify/lavify-backend/pkg/config"
	"github.com/lavify/lavify-backend/pkg/db"
	"github.com/lavify/lavify-backend/pkg/logger"
	"github.com/lavify/lavify-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	catalogService controllers.CatalogService,
	subscriptionService controllers.SubscriptionService,
	paymentService controllers.PaymentService,
	entitlementService controllers.EntitlementService,
	reconciler webhookcontrollers.Processor,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/plans", controllers.ListPlans(catalogService, logg))
		r.Get("/plans/{planId}", controllers.GetPlan(catalogService, logg))
		r.Get("/addons", controllers.ListAddons(catalogService, logg))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/mercadopago", webhookcontrollers.MercadoPago(cfg.MercadoPago, reconciler, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/subscriptions", func(r chi.Router) {
			r.Post("/", controllers.SubscriptionCreate(subscriptionService, logg))
			r.Get("/active", controllers.SubscriptionFetchActive(subscriptionService, logg))
			r.Route("/{subscriptionId}", func(r chi.Router) {
				r.Delete("/", controllers.SubscriptionCancel(subscriptionService, logg))
				r.Post("/upgrade", controllers.SubscriptionUpgrade(subscriptionService, logg))
				r.Post("/downgrade", controllers.SubscriptionDowngrade(subscriptionService, logg))
				r.Get("/price", controllers.SubscriptionPrice(subscriptionService, logg))
				r.Post("/addons", controllers.SubscriptionAddAddon(subscriptionService, logg))
				r.Delete("/addons/{addonId}", controllers.SubscriptionRemoveAddon(subscriptionService, logg))
				r.Post("/checkout", controllers.PaymentCheckout(paymentService, logg))
				r.Post("/retry-payment", controllers.PaymentRetry(paymentService, logg))
				r.Get("/payments", controllers.SubscriptionPaymentHistory(paymentService, logg))
			})
		})

		r.Route("/payments", func(r chi.Router) {
			r.Get("/", controllers.PaymentHistory(paymentService, logg))
			r.Get("/{gatewayPaymentId}", controllers.PaymentStatus(paymentService, logg))
		})

		r.Route("/entitlements", func(r chi.Router) {
			r.Get("/feature", controllers.EntitlementFeature(entitlementService, logg))
			r.Get("/companies", controllers.EntitlementCompanyQuota(entitlementService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireAdmin(logg))

		r.Route("/plans", func(r chi.Router) {
			r.Get("/", controllers.AdminListPlans(catalogService, logg))
			r.Post("/", controllers.AdminCreatePlan(catalogService, logg))
			r.Put("/{planId}", controllers.AdminUpdatePlan(catalogService, logg))
			r.Delete("/{planId}", controllers.AdminDeactivatePlan(catalogService, logg))
		})
		r.Post("/subscriptions/{subscriptionId}/suspend", controllers.AdminSubscriptionSuspend(subscriptionService, logg))
		r.Post("/users/{userId}/free-subscription", controllers.AdminGrantFreeSubscription(subscriptionService, logg))
	})

	return r
}
