package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/auricsoft/jewelstock-backend/pkg/config"
	"github.com/auricsoft/jewelstock-backend/pkg/logger"
	"github.com/auricsoft/jewelstock-backend/pkg/migrate"
	"github.com/auricsoft/jewelstock-backend/pkg/tenant"
)

func main() {
	ctx := context.Background()
	// bootstrap logger early (then re-init after config load)
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	// Flags
	cmd := flag.String("cmd", "up", "migration command: up|down|status|version|create|validate")
	dir := flag.String("dir", migrate.DefaultDir, "goose migrations directory")

	// Command-specific flags
	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	only := flag.String("tenant", "", "restrict to a single tenant code (default: all)")

	flag.Parse()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx = logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmd,
		"dir": *dir,
	})

	// Commands that do NOT require DB
	switch *cmd {
	case "create":
		if *name == "" {
			fmt.Fprintln(os.Stderr, "missing -name for create")
			os.Exit(1)
		}
		logg.Info(ctx, "migrate ready")
		path, err := migrate.CreateSQLMigration(*dir, *name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create migration: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("created migration:", path)
		return

	case "validate":
		logg.Info(ctx, "migrate ready")
		if err := migrate.ValidateDir(*dir); err != nil {
			fmt.Fprintf(os.Stderr, "migration validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("migration validation passed")
		return
	}

	// Everything else runs against every tenant store.
	registry, err := tenant.NewRegistry(context.Background(), cfg.DB, cfg.Tenants, logg)
	requireResource(ctx, logg, "tenant registry", err)
	defer registry.Close()

	codes := registry.Codes()
	if *only != "" {
		if !containsCode(codes, *only) {
			fmt.Fprintf(os.Stderr, "unknown tenant code: %s\n", *only)
			os.Exit(1)
		}
		codes = []string{*only}
	}

	logg.Info(ctx, "migrate ready")

	for _, code := range codes {
		tenantCtx := tenant.WithCode(ctx, code)
		handle, err := registry.Handle(tenantCtx)
		requireResource(ctx, logg, "tenant "+code, err)
		sqlDB, err := handle.DB()
		requireResource(ctx, logg, "sql database for tenant "+code, err)

		logCtx := logg.WithTenant(tenantCtx, code)

		switch *cmd {
		case "up", "down", "status":
			if err := migrate.Run(logCtx, sqlDB, *dir, *cmd); err != nil {
				fmt.Fprintf(os.Stderr, "goose %s failed for tenant %s: %v\n", *cmd, code, err)
				os.Exit(1)
			}

		case "version":
			if *version == "" {
				fmt.Fprintln(os.Stderr, "missing -version for version command")
				os.Exit(1)
			}
			if err := migrate.MigrateToVersion(logCtx, sqlDB, *dir, *version); err != nil {
				fmt.Fprintf(os.Stderr, "goose version migrate failed for tenant %s: %v\n", code, err)
				os.Exit(1)
			}

		default:
			fmt.Fprintln(os.Stderr, "unknown -cmd value:", *cmd)
			os.Exit(1)
		}
	}
}

func containsCode(codes []string, want string) bool {
	for _, code := range codes {
		if strings.EqualFold(code, want) {
			return true
		}
	}
	return false
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
