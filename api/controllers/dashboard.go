package controllers

import (
	"net/http"

	"github.com/daybreak-labs/daybreak-backend/api/responses"
	"github.com/daybreak-labs/daybreak-backend/internal/hub"
	pkgerrors "github.com/daybreak-labs/daybreak-backend/pkg/errors"
	"github.com/daybreak-labs/daybreak-backend/pkg/logger"
)

// Dashboard returns the live scheduling summary. Recomputed per request so
// the numbers always reflect the capability's current state.
func Dashboard(h *hub.Hub, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "hub unavailable"))
			return
		}
		summary, err := h.DashboardSummary(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
