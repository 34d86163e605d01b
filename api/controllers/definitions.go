package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/daybreak-labs/daybreak-backend/api/responses"
	"github.com/daybreak-labs/daybreak-backend/api/validators"
	"github.com/daybreak-labs/daybreak-backend/internal/definitions"
	pkgerrors "github.com/daybreak-labs/daybreak-backend/pkg/errors"
	"github.com/daybreak-labs/daybreak-backend/pkg/logger"
)

// DefinitionList returns every stored notification definition.
func DefinitionList(svc definitions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "definition service unavailable"))
			return
		}
		defs, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"definitions": defs, "count": len(defs)})
	}
}

// DefinitionGet loads one definition by id.
func DefinitionGet(svc definitions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "definition service unavailable"))
			return
		}
		id := strings.TrimSpace(chi.URLParam(r, "definitionId"))
		if id == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "definition id is required"))
			return
		}
		def, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, def)
	}
}

// DefinitionCreate persists a new definition and schedules its alarm.
func DefinitionCreate(svc definitions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "definition service unavailable"))
			return
		}
		var input definitions.DefinitionInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		def, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, def)
	}
}

// DefinitionUpdate replaces a definition's rule fields.
func DefinitionUpdate(svc definitions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "definition service unavailable"))
			return
		}
		id := strings.TrimSpace(chi.URLParam(r, "definitionId"))
		if id == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "definition id is required"))
			return
		}
		var input definitions.DefinitionInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		def, err := svc.Update(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, def)
	}
}

// DefinitionDelete removes a definition and cancels its alarm.
func DefinitionDelete(svc definitions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "definition service unavailable"))
			return
		}
		id := strings.TrimSpace(chi.URLParam(r, "definitionId"))
		if id == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "definition id is required"))
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// DefinitionDeleteForEntity removes every definition attached to an entity.
func DefinitionDeleteForEntity(svc definitions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "definition service unavailable"))
			return
		}
		entityID := strings.TrimSpace(chi.URLParam(r, "entityId"))
		if entityID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "entity id is required"))
			return
		}
		removed, err := svc.DeleteForEntity(r.Context(), entityID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{"removed": removed})
	}
}
