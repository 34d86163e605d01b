package hub

import (
	"context"
	"time"

	pkgerrors "github.com/daybreak-labs/daybreak-backend/pkg/errors"
	"github.com/daybreak-labs/daybreak-backend/pkg/enums"
)

// UpcomingNotification is the soonest pending alarm shown on the dashboard.
type UpcomingNotification struct {
	NotificationID int          `json:"notificationId"`
	Module         enums.Module `json:"module,omitempty"`
	Title          string       `json:"title"`
	FireAt         time.Time    `json:"fireAt"`
}

// DashboardSummary aggregates pending-alarm truth with today's audit counts.
type DashboardSummary struct {
	TotalPending    int                   `json:"totalPending"`
	PendingByModule map[enums.Module]int  `json:"pendingByModule"`
	NextUpcoming    *UpcomingNotification `json:"nextUpcoming,omitempty"`
	TodayByEvent    map[string]int        `json:"todayByEvent"`
}

// DashboardSummary recomputes on every call: pending counts must reflect the
// capability's reported truth at call time, not a cache.
func (h *Hub) DashboardSummary(ctx context.Context) (DashboardSummary, error) {
	pending, err := h.scheduler.ListPending(ctx)
	if err != nil {
		return DashboardSummary{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending alarms")
	}

	summary := DashboardSummary{
		TotalPending:    len(pending),
		PendingByModule: make(map[enums.Module]int),
		TodayByEvent:    make(map[string]int),
	}
	for _, alarm := range pending {
		if module, ok := h.moduleOf(alarm); ok {
			summary.PendingByModule[module]++
		}
		if summary.NextUpcoming == nil || alarm.FireAt.Before(summary.NextUpcoming.FireAt) {
			upcoming := UpcomingNotification{
				NotificationID: alarm.ID,
				Title:          alarm.Title,
				FireAt:         alarm.FireAt,
			}
			if module, ok := h.moduleOf(alarm); ok {
				upcoming.Module = module
			}
			summary.NextUpcoming = &upcoming
		}
	}

	counts, err := h.log.CountTodayByEvent(ctx, time.Now())
	if err != nil {
		return DashboardSummary{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count today's events")
	}
	for event, count := range counts {
		summary.TodayByEvent[string(event)] = count
	}
	return summary, nil
}
