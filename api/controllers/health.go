package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/Omkark04/agency-platform-backend/api/responses"
	"github.com/Omkark04/agency-platform-backend/pkg/config"
	"github.com/Omkark04/agency-platform-backend/pkg/db"
	"github.com/Omkark04/agency-platform-backend/pkg/logger"
	"github.com/Omkark04/agency-platform-backend/pkg/redis"
	"github.com/Omkark04/agency-platform-backend/pkg/types"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Agency-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, database db.Pinger, cache redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Agency-Env", cfg.App.Env)

		checks := map[string]string{}
		healthy := true

		if database != nil {
			checks["database"] = "ok"
			if err := database.Ping(r.Context()); err != nil {
				checks["database"] = "down"
				healthy = false
				if logg != nil {
					logg.Error(r.Context(), "database health check failed", err)
				}
			}
		}
		if cache != nil {
			checks["redis"] = "ok"
			if err := cache.Ping(r.Context()); err != nil {
				checks["redis"] = "down"
				healthy = false
				if logg != nil {
					logg.Error(r.Context(), "redis health check failed", err)
				}
			}
		}

		if !healthy {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(types.SuccessEnvelope{Data: map[string]any{"status": "degraded", "checks": checks}})
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
