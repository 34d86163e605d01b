package controllers

import (
	"net/http"

	"github.com/daybreak-labs/daybreak-backend/api/responses"
	"github.com/daybreak-labs/daybreak-backend/api/validators"
	"github.com/daybreak-labs/daybreak-backend/internal/recovery"
	pkgerrors "github.com/daybreak-labs/daybreak-backend/pkg/errors"
	"github.com/daybreak-labs/daybreak-backend/pkg/logger"
)

type recoveryRunRequest struct {
	Trigger string `json:"trigger"`
	Force   bool   `json:"force"`
	// Headless marks a pass requested by a background runtime with no UI
	// attached; the orchestrator defers legacy resyncs for those.
	Headless bool `json:"headless"`
}

// RecoveryRun triggers a reconciliation pass through the debounced refresher.
// The response reports whether a pass actually ran: debounced or redundant
// requests return ran=false with a 200.
func RecoveryRun(refresher *recovery.Refresher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if refresher == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "recovery unavailable"))
			return
		}
		var payload recoveryRunRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		trigger := payload.Trigger
		if trigger == "" {
			trigger = "manual"
		}

		ran, result := refresher.Refresh(r.Context(), recovery.RefreshOptions{
			Trigger:  trigger,
			Force:    payload.Force,
			Headless: payload.Headless,
		})
		if !ran {
			responses.WriteSuccess(w, map[string]any{"ran": false})
			return
		}
		responses.WriteSuccess(w, map[string]any{"ran": true, "result": result})
	}
}
