package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/decagraff/lc-service/internal/auth"
	"github.com/decagraff/lc-service/internal/cart"
	"github.com/decagraff/lc-service/internal/catalog/categories"
	"github.com/decagraff/lc-service/internal/catalog/equipment"
	"github.com/decagraff/lc-service/internal/observability"
	"github.com/decagraff/lc-service/internal/quotations"
	"github.com/decagraff/lc-service/internal/reports"
	"github.com/decagraff/lc-service/internal/shared"
	"github.com/decagraff/lc-service/internal/users"
	"github.com/decagraff/lc-service/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	SessionManager    *shared.SessionManager
	AuthHandler       *auth.Handler
	UsersHandler      *users.Handler
	CategoriesHandler *categories.Handler
	EquipmentHandler  *equipment.Handler
	CartHandler       *cart.Handler
	QuotationsHandler *quotations.Handler
	ReportsHandler    *reports.Handler
	JobHandler        *jobs.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		params.AuthHandler.MountRoutes(r)
		if params.UsersHandler != nil {
			params.UsersHandler.MountRoutes(r)
		}
		if params.CategoriesHandler != nil {
			params.CategoriesHandler.MountRoutes(r)
		}
		if params.EquipmentHandler != nil {
			params.EquipmentHandler.MountRoutes(r)
		}
		if params.CartHandler != nil {
			params.CartHandler.MountRoutes(r)
		}
		if params.QuotationsHandler != nil {
			params.QuotationsHandler.MountRoutes(r)
		}
		if params.ReportsHandler != nil {
			params.ReportsHandler.MountRoutes(r)
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
