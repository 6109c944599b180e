package migrate

import (
	"context"
	"fmt"

	"github.com/auricsoft/jewelstock-backend/pkg/config"
	"github.com/auricsoft/jewelstock-backend/pkg/logger"
	"github.com/auricsoft/jewelstock-backend/pkg/tenant"
)

// MaybeRunDev executes migrations automatically against every tenant store when
// the app is running in dev mode and the feature flag is enabled.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, registry *tenant.Registry) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	for _, code := range registry.Codes() {
		tenantCtx := tenant.WithCode(ctx, code)
		handle, err := registry.Handle(tenantCtx)
		if err != nil {
			return fmt.Errorf("resolving tenant %q: %w", code, err)
		}
		sqlDB, err := handle.DB()
		if err != nil {
			return fmt.Errorf("extracting sql.DB for tenant %q: %w", code, err)
		}

		meta := map[string]any{"env": cfg.App.Env, "dir": DefaultDir, "tenant": code}
		logCtx := logg.WithFields(tenantCtx, meta)
		logg.Info(logCtx, "running Goose migrations (dev auto-run)")

		if err := Run(logCtx, sqlDB, DefaultDir, "up"); err != nil {
			return fmt.Errorf("running goose up for tenant %q: %w", code, err)
		}

		logg.Info(logCtx, "Goose migrations completed")
	}
	return nil
}
