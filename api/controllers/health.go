package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/sadhanapeeth/sadhana-backend/api/responses"
	"github.com/sadhanapeeth/sadhana-backend/pkg/config"
	"github.com/sadhanapeeth/sadhana-backend/pkg/logger"
)

const envHeader = "X-Sadhana-Env"

type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every backing dependency and reports per-dependency
// status. Any failed probe degrades the response to 503.
func HealthReady(cfg *config.Config, logg *logger.Logger, db, redis, storage Pinger) http.HandlerFunc {
	probes := []struct {
		name   string
		target Pinger
	}{
		{"postgres", db},
		{"redis", redis},
		{"object_storage", storage},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := map[string]string{}
		healthy := true
		for _, probe := range probes {
			if probe.target == nil {
				status[probe.name] = "not configured"
				continue
			}
			if err := probe.target.Ping(ctx); err != nil {
				healthy = false
				status[probe.name] = "unavailable"
				if logg != nil {
					logCtx := logg.WithField(ctx, "dependency", probe.name)
					logg.Error(logCtx, "health.probe.failed", err)
				}
				continue
			}
			status[probe.name] = "ok"
		}

		code := http.StatusOK
		state := "ready"
		if !healthy {
			code = http.StatusServiceUnavailable
			state = "degraded"
		}
		responses.WriteSuccessStatus(w, code, map[string]any{
			"status":       state,
			"dependencies": status,
		})
	}
}
