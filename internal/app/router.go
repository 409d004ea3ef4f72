package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/splitledger/splitledger/internal/auth"
	"github.com/splitledger/splitledger/internal/balance"
	"github.com/splitledger/splitledger/internal/expenses"
	"github.com/splitledger/splitledger/internal/groups"
	"github.com/splitledger/splitledger/internal/observability"
	"github.com/splitledger/splitledger/internal/settlements"
	"github.com/splitledger/splitledger/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	Pool               *pgxpool.Pool
	AuthMiddleware     func(http.Handler) http.Handler
	AuthHandler        *auth.Handler
	GroupsHandler      *groups.Handler
	ExpensesHandler    *expenses.Handler
	SettlementsHandler *settlements.Handler
	BalanceHandler     *balance.Handler
	JobsHandler        *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with the standard stack.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if params.Pool != nil {
			if err := params.Pool.Ping(r.Context()); err != nil {
				params.Logger.Error("health check failed", slog.Any("error", err))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded"}`))
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			params.AuthHandler.MountPublicRoutes(r)
			r.Group(func(r chi.Router) {
				r.Use(params.AuthMiddleware)
				params.AuthHandler.MountProtectedRoutes(r)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(params.AuthMiddleware)

			r.Route("/users", params.AuthHandler.MountUserRoutes)

			r.Route("/groups", func(r chi.Router) {
				params.GroupsHandler.MountRoutes(r)
				params.ExpensesHandler.MountGroupRoutes(r)
				params.SettlementsHandler.MountRoutes(r)
				params.BalanceHandler.MountRoutes(r)
			})
			r.Route("/expenses", params.ExpensesHandler.MountRoutes)
		})
	})

	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}

	return r
}
