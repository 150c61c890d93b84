package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/docroute/docroute-backend/api/controllers"
	"github.com/docroute/docroute-backend/api/middleware"
	"github.com/docroute/docroute-backend/internal/documents"
	"github.com/docroute/docroute-backend/internal/history"
	"github.com/docroute/docroute-backend/internal/users"
	"github.com/docroute/docroute-backend/pkg/config"
	"github.com/docroute/docroute-backend/pkg/logger"
	"github.com/docroute/docroute-backend/pkg/redis"
)

// Deps carries everything the HTTP surface needs. Redis and the metrics
// registry are optional; the corresponding endpoints degrade gracefully.
type Deps struct {
	Config    *config.Config
	Logger    *logger.Logger
	Redis     *redis.Client
	Health    controllers.HealthDeps
	Documents documents.Service
	History   history.Service
	Users     users.Repository
	Metrics   prometheus.Gatherer
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.Health, logg))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	var idempotencyStore redis.IdempotencyStore
	if deps.Redis != nil {
		idempotencyStore = deps.Redis
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1/documents", func(r chi.Router) {
			r.Post("/presign", controllers.DocumentsPresign(deps.Documents, logg))
			r.Post("/", controllers.DocumentsCreate(deps.Documents, logg))
			r.Get("/", controllers.DocumentsList(deps.Documents, logg))
			r.Get("/archived", controllers.DocumentsArchivedList(deps.Documents, logg))
			r.Get("/counts", controllers.DocumentsStatusCounts(deps.Documents, logg))

			r.Route("/{documentID}", func(r chi.Router) {
				r.Get("/", controllers.DocumentsGet(deps.Documents, logg))
				r.Patch("/", controllers.DocumentsEdit(deps.Documents, logg))
				r.Delete("/", controllers.DocumentsDelete(deps.Documents, logg))
				r.Post("/route", controllers.DocumentsRoute(deps.Documents, logg))
				r.Post("/archive", controllers.DocumentsArchive(deps.Documents, logg))
				r.Get("/routing", controllers.DocumentsTimeline(deps.Documents, logg))
				r.Get("/history", controllers.DocumentsHistory(deps.Documents, deps.History, logg))
				r.Get("/file-url", controllers.DocumentsFileURL(deps.Documents, logg))
			})
		})

		r.Route("/v1/users", func(r chi.Router) {
			r.Get("/", controllers.UsersList(deps.Users, logg))
		})
	})

	return r
}
