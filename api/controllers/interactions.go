package controllers

import (
	"net/http"

	"github.com/daybreak-labs/daybreak-backend/api/responses"
	"github.com/daybreak-labs/daybreak-backend/api/validators"
	"github.com/daybreak-labs/daybreak-backend/internal/hub"
	pkgerrors "github.com/daybreak-labs/daybreak-backend/pkg/errors"
	"github.com/daybreak-labs/daybreak-backend/pkg/logger"
)

// interactionRequest mirrors what the platform shim reports when the user
// interacts with a delivered notification.
type interactionRequest struct {
	NotificationID int    `json:"notificationId" validate:"required,gt=0"`
	Payload        string `json:"payload"`
	Title          string `json:"title"`
	ActionID       string `json:"actionId"`
}

// Interaction records a notification lifecycle event (tapped, action,
// dismissed) and routes it to the owning module adapter.
func Interaction(h *hub.Hub, logg *logger.Logger, kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "hub unavailable"))
			return
		}
		var payload interactionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		switch kind {
		case "tapped":
			h.OnTapped(ctx, payload.NotificationID, payload.Payload, payload.Title)
		case "action":
			if payload.ActionID == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "actionId is required"))
				return
			}
			h.OnAction(ctx, payload.NotificationID, payload.Payload, payload.Title, payload.ActionID)
		case "dismissed":
			h.OnDeleted(ctx, payload.NotificationID, payload.Payload, payload.Title)
		default:
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown interaction kind"))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "recorded"})
	}
}
