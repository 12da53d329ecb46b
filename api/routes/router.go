package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mealrounds/mealrounds-backend/api/controllers"
	"github.com/mealrounds/mealrounds-backend/api/middleware"
	"github.com/mealrounds/mealrounds-backend/internal/catalog"
	"github.com/mealrounds/mealrounds-backend/internal/schedule"
	"github.com/mealrounds/mealrounds-backend/internal/settings"
	"github.com/mealrounds/mealrounds-backend/pkg/config"
	"github.com/mealrounds/mealrounds-backend/pkg/db"
	"github.com/mealrounds/mealrounds-backend/pkg/logger"
	"github.com/mealrounds/mealrounds-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	reconciler controllers.Reconciler,
	promoter controllers.Promoter,
	allocator controllers.Allocator,
	catalogService catalog.Service,
	settingsService *settings.Service,
	calc *schedule.Calculator,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/clients/{clientID}/orders", func(r chi.Router) {
			r.Post("/reconcile", controllers.ReconcileOrders(reconciler, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/promote", controllers.PromoteDueOrders(promoter, logg))
			r.Post("/numbers", controllers.AllocateOrderNumbers(allocator, logg))
		})

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/effective", controllers.EffectiveCatalog(catalogService, logg))
			r.Put("/day", controllers.ReplaceCatalogDay(catalogService, logg))
		})

		r.Get("/schedule/preview", controllers.PreviewDates(calc, settingsService, logg))

		r.Route("/settings", func(r chi.Router) {
			r.Get("/cutoff", controllers.GetWeeklyCutoff(settingsService, logg))
			r.Put("/cutoff", controllers.SetWeeklyCutoff(settingsService, logg))
		})
	})

	return r
}
