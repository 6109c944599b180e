package controllers

import (
	"context"
	"net/http"

	"github.com/auricsoft/jewelstock-backend/api/responses"
	"github.com/auricsoft/jewelstock-backend/pkg/config"
	pkgerrors "github.com/auricsoft/jewelstock-backend/pkg/errors"
	"github.com/auricsoft/jewelstock-backend/pkg/logger"
)

type pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-JewelStock-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady verifies the tenant databases and redis before reporting ready.
func HealthReady(cfg *config.Config, tenants pinger, cache pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-JewelStock-Env", cfg.App.Env)

		if tenants != nil {
			if err := tenants.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unavailable"))
				return
			}
		}
		if cache != nil {
			if err := cache.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unavailable"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
