package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/auricsoft/jewelstock-backend/api/controllers"
	"github.com/auricsoft/jewelstock-backend/api/middleware"
	"github.com/auricsoft/jewelstock-backend/internal/balances"
	"github.com/auricsoft/jewelstock-backend/internal/catalog"
	"github.com/auricsoft/jewelstock-backend/internal/movements"
	"github.com/auricsoft/jewelstock-backend/internal/stock"
	"github.com/auricsoft/jewelstock-backend/internal/transfers"
	"github.com/auricsoft/jewelstock-backend/pkg/config"
	"github.com/auricsoft/jewelstock-backend/pkg/enums"
	"github.com/auricsoft/jewelstock-backend/pkg/logger"
)

type pinger interface {
	Ping(context.Context) error
}

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

type tenantChecker interface {
	Codes() []string
}

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Config    *config.Config
	Logger    *logger.Logger
	Tenants   tenantChecker
	TenantsDB pinger
	Redis     pinger
	Limiter   rateLimiterStore

	Catalog   catalog.Service
	Movements movements.Service
	Balances  balances.Service
	Stock     stock.Service
	Transfers transfers.Service
}

// NewRouter assembles the API. All inventory routes sit behind auth; transfer
// decisions additionally require the manager role.
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
		r.Get("/ready", controllers.HealthReady(cfg, deps.TenantsDB, deps.Redis, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(
			middleware.Auth(cfg.JWT, deps.Tenants, logg),
			middleware.RateLimit(cfg.RateLimit, deps.Limiter, logg),
		)

		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.CreateProduct(deps.Catalog, logg))
			r.Get("/", controllers.ListProducts(deps.Catalog, logg))
			r.Get("/{productId}", controllers.GetProduct(deps.Catalog, logg))
			r.Patch("/{productId}", controllers.UpdateProduct(deps.Catalog, logg))
			r.Get("/{productId}/stock", controllers.GetProductStock(deps.Stock, logg))
			r.Get("/{productId}/balances", controllers.ListBalances(deps.Balances, logg))
			r.Get("/{productId}/balances/daily", controllers.GetBalance(deps.Balances, logg))
		})

		r.Route("/tags", func(r chi.Router) {
			r.Post("/", controllers.AssignTag(deps.Catalog, logg))
			r.Get("/{tagCode}", controllers.ResolveTag(deps.Catalog, logg))
			r.Delete("/{tagCode}", controllers.ReleaseTag(deps.Catalog, logg))
		})

		r.Route("/movements", func(r chi.Router) {
			r.Post("/", controllers.RecordMovement(deps.Movements, logg))
			r.Post("/batch", controllers.RecordMovementBatch(deps.Movements, logg))
			r.Get("/", controllers.ListMovements(deps.Movements, logg))
		})

		r.Route("/balances", func(r chi.Router) {
			r.With(middleware.RequireRole(enums.StaffRoleManager, logg)).
				Post("/recalculate", controllers.RecalculateBalances(deps.Balances, logg))
		})

		r.Route("/stock", func(r chi.Router) {
			r.Get("/branches/{branchId}", controllers.GetBranchStock(deps.Stock, logg))
			r.Get("/counters/{counterId}", controllers.GetCounterStock(deps.Stock, logg))
			r.Get("/categories/{category}", controllers.GetCategoryStock(deps.Stock, logg))
		})

		r.Route("/transfers", func(r chi.Router) {
			r.Post("/", controllers.CreateTransfer(deps.Transfers, logg))
			r.Get("/", controllers.ListTransfers(deps.Transfers, logg))
			r.Get("/{transferId}", controllers.GetTransfer(deps.Transfers, logg))

			decision := r.With(middleware.RequireRole(enums.StaffRoleManager, logg))
			decision.Post("/{transferId}/approve", controllers.ApproveTransfer(deps.Transfers, logg))
			decision.Post("/{transferId}/reject", controllers.RejectTransfer(deps.Transfers, logg))
			decision.Post("/{transferId}/complete", controllers.CompleteTransfer(deps.Transfers, logg))
			decision.Post("/{transferId}/cancel", controllers.CancelTransfer(deps.Transfers, logg))
		})
	})

	return r
}
