package controllers

import (
	"net/http"

	"github.com/daybreak-labs/daybreak-backend/api/responses"
	"github.com/daybreak-labs/daybreak-backend/pkg/config"
	"github.com/daybreak-labs/daybreak-backend/pkg/db"
	pkgerrors "github.com/daybreak-labs/daybreak-backend/pkg/errors"
	"github.com/daybreak-labs/daybreak-backend/pkg/logger"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Daybreak-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady verifies the datastore answers before reporting ready.
func HealthReady(cfg *config.Config, logg *logger.Logger, pinger db.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Daybreak-Env", cfg.App.Env)
		if pinger != nil {
			if err := pinger.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unreachable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
