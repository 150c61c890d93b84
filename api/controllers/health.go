package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/docroute/docroute-backend/api/responses"
	"github.com/docroute/docroute-backend/pkg/config"
	pkgerrors "github.com/docroute/docroute-backend/pkg/errors"
	"github.com/docroute/docroute-backend/pkg/logger"
	"go.uber.org/multierr"
)

const readinessTimeout = 3 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthDeps names the dependencies probed by the readiness check. Nil
// entries are skipped so optional backends do not fail readiness.
type HealthDeps struct {
	DB      pinger
	Redis   pinger
	Storage pinger
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-DocRoute-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, deps HealthDeps, logg *logger.Logger) http.HandlerFunc {
	probes := []struct {
		name string
		ping pinger
	}{
		{"db", deps.DB},
		{"redis", deps.Redis},
		{"storage", deps.Storage},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-DocRoute-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{}
		var errs error
		for _, probe := range probes {
			if probe.ping == nil {
				continue
			}
			if err := probe.ping.Ping(ctx); err != nil {
				checks[probe.name] = "unavailable"
				errs = multierr.Append(errs, err)
				continue
			}
			checks[probe.name] = "ok"
		}

		if errs != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeDependency, errs, "dependency unavailable").WithDetails(checks))
			return
		}

		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
