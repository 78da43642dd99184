package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sadhanapeeth/sadhana-backend/api/controllers"
	"github.com/sadhanapeeth/sadhana-backend/api/middleware"
	"github.com/sadhanapeeth/sadhana-backend/pkg/config"
	"github.com/sadhanapeeth/sadhana-backend/pkg/logger"
	"github.com/sadhanapeeth/sadhana-backend/pkg/redis"
)

// Services bundles every service the HTTP layer consumes. The fields are
// the controller-side interfaces, so tests can swap in stubs.
type Services struct {
	Plans         controllers.PlanService
	Subscriptions controllers.SubscriptionService
	Content       controllers.ContentService
	Access        controllers.AccessService
	Delivery      controllers.DeliveryService
	Schedules     controllers.ScheduleService
}

type pinger = controllers.Pinger

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP pinger,
	redisClient *redis.Client,
	storageP pinger,
	svcs Services,
	registry *prometheus.Registry,
) http.Handler {
	// A typed-nil *redis.Client must not reach the limiter as a non-nil
	// interface, or the middleware cannot tell the store is absent.
	var limiter middleware.RateLimiter
	var redisP pinger
	if redisClient != nil {
		limiter = redisClient
		redisP = redisClient
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP, storageP))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	// Plan browsing is public; everything else requires a token.
	r.Route("/api/public/v1", func(r chi.Router) {
		r.Get("/plans", controllers.PlanList(svcs.Plans, logg))
		r.Get("/plans/{planId}", controllers.PlanGet(svcs.Plans, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/subscriptions", func(r chi.Router) {
			r.Post("/", controllers.SubscriptionCreate(svcs.Subscriptions, logg))
			r.Get("/", controllers.SubscriptionHistory(svcs.Subscriptions, logg))
			r.Get("/current", controllers.SubscriptionCurrent(svcs.Subscriptions, logg))
		})

		r.Route("/content", func(r chi.Router) {
			r.Get("/accessible", controllers.AccessibleContent(svcs.Access, logg))
			r.Get("/{contentId}/access", controllers.AccessCheck(svcs.Access, logg))
			r.With(middleware.DownloadRateLimit(cfg.RateLimit, limiter, logg)).
				Post("/{contentId}/download", controllers.DownloadIssue(svcs.Delivery, logg))
		})

		r.Route("/schedules", func(r chi.Router) {
			r.Get("/overview", controllers.ScheduleOverview(svcs.Schedules, logg))
			r.Get("/plans/{planId}/month", controllers.ScheduleMonthContent(svcs.Schedules, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole("admin", logg))

		r.Route("/plans", func(r chi.Router) {
			r.Get("/", controllers.PlanList(svcs.Plans, logg))
			r.Post("/", controllers.PlanCreate(svcs.Plans, logg))
			r.Get("/{planId}", controllers.PlanGet(svcs.Plans, logg))
			r.Patch("/{planId}", controllers.PlanUpdate(svcs.Plans, logg))
			r.Delete("/{planId}", controllers.PlanDelete(svcs.Plans, logg))
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Get("/", controllers.SubscriptionListByStatus(svcs.Subscriptions, logg))
			r.Get("/{subscriptionId}", controllers.SubscriptionGet(svcs.Subscriptions, logg))
			r.Post("/{subscriptionId}/activate", controllers.SubscriptionActivate(svcs.Subscriptions, logg))
			r.Post("/{subscriptionId}/cancel", controllers.SubscriptionCancel(svcs.Subscriptions, logg))
		})

		r.Route("/content", func(r chi.Router) {
			r.Post("/", controllers.ContentCreate(svcs.Content, logg))
			r.Post("/bulk", controllers.ContentBulkCreate(svcs.Content, logg))
			r.Post("/presign-upload", controllers.ContentPresignUpload(svcs.Content, logg))
			r.Get("/{contentId}", controllers.ContentGet(svcs.Content, logg))
			r.Patch("/{contentId}", controllers.ContentUpdate(svcs.Content, logg))
			r.Post("/{contentId}/file", controllers.ContentReplaceFile(svcs.Content, logg))
			r.Post("/{contentId}/thumbnail", controllers.ContentReplaceThumbnail(svcs.Content, logg))
			r.Delete("/{contentId}", controllers.ContentDelete(svcs.Content, logg))
			r.Get("/plans/{planId}", controllers.ContentListByPlan(svcs.Content, logg))
		})

		r.Route("/schedules", func(r chi.Router) {
			r.Get("/", controllers.ScheduleList(svcs.Schedules, logg))
			r.Post("/", controllers.ScheduleCreate(svcs.Schedules, logg))
			r.Get("/{scheduleId}", controllers.ScheduleGet(svcs.Schedules, logg))
			r.Patch("/{scheduleId}", controllers.ScheduleUpdate(svcs.Schedules, logg))
			r.Delete("/{scheduleId}", controllers.ScheduleDelete(svcs.Schedules, logg))
		})

		r.Post("/storage/cleanup", controllers.StorageCleanup(svcs.Delivery, logg))
	})

	return r
}
