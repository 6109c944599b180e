package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/auricsoft/jewelstock-backend/internal/balances"
	"github.com/auricsoft/jewelstock-backend/internal/catalog"
	"github.com/auricsoft/jewelstock-backend/internal/cron"
	"github.com/auricsoft/jewelstock-backend/internal/movements"
	"github.com/auricsoft/jewelstock-backend/pkg/config"
	"github.com/auricsoft/jewelstock-backend/pkg/logger"
	"github.com/auricsoft/jewelstock-backend/pkg/metrics"
	"github.com/auricsoft/jewelstock-backend/pkg/migrate"
	"github.com/auricsoft/jewelstock-backend/pkg/outbox"
	"github.com/auricsoft/jewelstock-backend/pkg/redis"
	"github.com/auricsoft/jewelstock-backend/pkg/tenant"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "balance-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "balance-worker"

	logg = logger.New(logger.Options{
		ServiceName: "balance-worker",
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

	jobMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	stats := metrics.NewInventoryMetrics(prometheus.DefaultRegisterer)
	emitter := outbox.NewService(outbox.NewRepository(nil), logg)

	movementRepo := movements.NewRepository(tenants)
	balanceRepo := balances.NewRepository(tenants)
	catalogRepo := catalog.NewRepository(tenants)
	balanceService, err := balances.NewService(balanceRepo, movementRepo, catalogRepo, tenants, emitter, stats)
	if err != nil {
		logg.Error(context.Background(), "failed to create balance service", err)
		os.Exit(1)
	}

	dailyBalanceJob, err := cron.NewDailyBalanceJob(cron.DailyBalanceJobParams{
		Logger:   logg,
		Tenants:  tenants,
		Balances: balanceService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create daily balance job", err)
		os.Exit(1)
	}
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         tenants,
		Tenants:    tenants,
		Repository: outbox.NewRepository(nil),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, lockKey(redisClient, cfg.App.Env), cfg.Balance.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create worker lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(dailyBalanceJob, retentionJob),
		Lock:     lock,
		Metrics:  jobMetrics,
		Interval: cfg.Balance.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create balance worker", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting balance worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "balance worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "balance worker shutting down gracefully")
}

func lockKey(client *redis.Client, env string) string {
	if env == "" {
		env = "local"
	}
	return client.LockKey(fmt.Sprintf("balance-worker:%s", env))
}
