package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/daybreak-labs/daybreak-backend/api/responses"
	"github.com/daybreak-labs/daybreak-backend/api/validators"
	"github.com/daybreak-labs/daybreak-backend/internal/activitylog"
	"github.com/daybreak-labs/daybreak-backend/pkg/enums"
	pkgerrors "github.com/daybreak-labs/daybreak-backend/pkg/errors"
	"github.com/daybreak-labs/daybreak-backend/pkg/logger"
)

const maxActivityLimit = 500

// ActivityList returns audit log entries, newest first, with optional
// module/event/time-range/search filters.
func ActivityList(log *activitylog.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if log == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "activity log unavailable"))
			return
		}

		filter, err := activityFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := log.Query(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query activity log"))
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"entries": entries,
			"count":   len(entries),
		})
	}
}

// ActivityCompact collapses redundant scheduled entries and purges bulk
// cancellation noise. Maintenance endpoint for the local dashboard.
func ActivityCompact(log *activitylog.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if log == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "activity log unavailable"))
			return
		}

		removed, err := log.CompactRedundantScheduledEntries(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "compact activity log"))
			return
		}
		responses.WriteSuccess(w, map[string]any{"removed": removed})
	}
}

func activityFilter(r *http.Request) (activitylog.Filter, error) {
	var filter activitylog.Filter

	if raw := strings.TrimSpace(r.URL.Query().Get("module")); raw != "" {
		module, err := enums.ParseModule(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid module filter")
		}
		filter.Module = module
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("event")); raw != "" {
		event, err := enums.ParseEventType(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid event filter")
		}
		filter.Event = event
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid from timestamp")
		}
		filter.From = from
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("to")); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid to timestamp")
		}
		filter.To = to
	}
	filter.Search = validators.SanitizeString(r.URL.Query().Get("search"), 200)

	limit, err := validators.ParseQueryInt(r, "limit", 100, 1, maxActivityLimit)
	if err != nil {
		return filter, err
	}
	filter.Limit = limit
	return filter, nil
}
