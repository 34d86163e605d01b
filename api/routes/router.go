package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/daybreak-labs/daybreak-backend/api/controllers"
	"github.com/daybreak-labs/daybreak-backend/api/middleware"
	"github.com/daybreak-labs/daybreak-backend/internal/activitylog"
	"github.com/daybreak-labs/daybreak-backend/internal/definitions"
	"github.com/daybreak-labs/daybreak-backend/internal/hub"
	"github.com/daybreak-labs/daybreak-backend/internal/recovery"
	"github.com/daybreak-labs/daybreak-backend/pkg/config"
	"github.com/daybreak-labs/daybreak-backend/pkg/db"
	"github.com/daybreak-labs/daybreak-backend/pkg/logger"
)

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          db.Pinger
	Hub         *hub.Hub
	Log         *activitylog.Store
	Definitions definitions.Service
	Refresher   *recovery.Refresher
	Metrics     prometheus.Gatherer
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
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/dashboard", controllers.Dashboard(deps.Hub, logg))
		r.Get("/activity", controllers.ActivityList(deps.Log, logg))
		r.Post("/activity/compact", controllers.ActivityCompact(deps.Log, logg))

		r.Route("/definitions", func(r chi.Router) {
			r.Get("/", controllers.DefinitionList(deps.Definitions, logg))
			r.Post("/", controllers.DefinitionCreate(deps.Definitions, logg))
			r.Get("/{definitionId}", controllers.DefinitionGet(deps.Definitions, logg))
			r.Put("/{definitionId}", controllers.DefinitionUpdate(deps.Definitions, logg))
			r.Delete("/{definitionId}", controllers.DefinitionDelete(deps.Definitions, logg))
		})
		r.Delete("/entities/{entityId}/definitions", controllers.DefinitionDeleteForEntity(deps.Definitions, logg))

		r.Route("/interactions", func(r chi.Router) {
			r.Post("/tapped", controllers.Interaction(deps.Hub, logg, "tapped"))
			r.Post("/action", controllers.Interaction(deps.Hub, logg, "action"))
			r.Post("/dismissed", controllers.Interaction(deps.Hub, logg, "dismissed"))
		})

		r.Post("/recovery/run", controllers.RecoveryRun(deps.Refresher, logg))
	})

	return r
}
