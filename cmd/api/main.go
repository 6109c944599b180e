package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/auricsoft/jewelstock-backend/api/routes"
	"github.com/auricsoft/jewelstock-backend/internal/balances"
	"github.com/auricsoft/jewelstock-backend/internal/catalog"
	"github.com/auricsoft/jewelstock-backend/internal/movements"
	"github.com/auricsoft/jewelstock-backend/internal/stock"
	"github.com/auricsoft/jewelstock-backend/internal/transfers"
	"github.com/auricsoft/jewelstock-backend/pkg/config"
	"github.com/auricsoft/jewelstock-backend/pkg/logger"
	"github.com/auricsoft/jewelstock-backend/pkg/metrics"
	"github.com/auricsoft/jewelstock-backend/pkg/migrate"
	"github.com/auricsoft/jewelstock-backend/pkg/outbox"
	"github.com/auricsoft/jewelstock-backend/pkg/redis"
	"github.com/auricsoft/jewelstock-backend/pkg/tenant"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	tenants, err := tenant.NewRegistry(context.Background(), cfg.DB, cfg.Tenants, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap tenant registry", err)
		os.Exit(1)
	}
	defer func() {
		if err := tenants.Close(); err != nil {
			logg.Error(context.Background(), "error closing tenant databases", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, tenants); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stats := metrics.NewInventoryMetrics(prometheus.DefaultRegisterer)
	// Emitter and repos only write inside tenant transactions, so none of
	// them hold a database handle of their own.
	emitter := outbox.NewService(outbox.NewRepository(nil), logg)

	catalogRepo := catalog.NewRepository(tenants)
	movementRepo := movements.NewRepository(tenants)
	balanceRepo := balances.NewRepository(tenants)
	stockRepo := stock.NewRepository(tenants)
	transferRepo := transfers.NewRepository(tenants)

	catalogService, err := catalog.NewService(catalogRepo, tenants)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}
	movementService, err := movements.NewService(movementRepo, catalogRepo, tenants, emitter, stats)
	if err != nil {
		logg.Error(context.Background(), "failed to create movement service", err)
		os.Exit(1)
	}
	balanceService, err := balances.NewService(balanceRepo, movementRepo, catalogRepo, tenants, emitter, stats)
	if err != nil {
		logg.Error(context.Background(), "failed to create balance service", err)
		os.Exit(1)
	}
	stockService, err := stock.NewService(stockRepo, balanceRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create stock service", err)
		os.Exit(1)
	}
	transferService, err := transfers.NewService(transferRepo, catalogRepo, movementRepo, stockService, tenants, emitter, stats)
	if err != nil {
		logg.Error(context.Background(), "failed to create transfer service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:    cfg,
			Logger:    logg,
			Tenants:   tenants,
			TenantsDB: tenants,
			Redis:     redisClient,
			Limiter:   redisClient,
			Catalog:   catalogService,
			Movements: movementService,
			Balances:  balanceService,
			Stock:     stockService,
			Transfers: transferService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
