package hub

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/daybreak-labs/daybreak-backend/internal/activitylog"
	"github.com/daybreak-labs/daybreak-backend/internal/alarms"
	"github.com/daybreak-labs/daybreak-backend/internal/identity"
	"github.com/daybreak-labs/daybreak-backend/internal/payload"
	"github.com/daybreak-labs/daybreak-backend/pkg/enums"
	pkgerrors "github.com/daybreak-labs/daybreak-backend/pkg/errors"
	"github.com/daybreak-labs/daybreak-backend/pkg/logger"
	"github.com/daybreak-labs/daybreak-backend/pkg/metrics"
)

// Request describes one desired scheduled notification. Built fresh on every
// scheduling pass; only its effect (an alarm plus a log entry) persists.
type Request struct {
	Module         enums.Module
	EntityID       string
	Title          string
	Body           string
	ScheduledAt    time.Time
	NotificationID int
	ReminderType   enums.ReminderType
	ReminderValue  int
	ReminderUnit   enums.TimeUnit
	Priority       enums.Priority
	Extras         map[string]string
	Exact          bool
}

// ScheduleResult reports the outcome of one schedule call. A false Success is
// a skip for the caller, never a crash.
type ScheduleResult struct {
	Success       bool
	FailureReason string
}

// Adapter is a module's plug-in for display-variable resolution and
// notification interaction callbacks.
type Adapter interface {
	Module() enums.Module
	ResolveVariables(ctx context.Context, entityID string) (map[string]string, error)
	OnTapped(ctx context.Context, entityID string, notificationID int) error
	OnAction(ctx context.Context, entityID string, notificationID int, actionID string) error
	OnDeleted(ctx context.Context, entityID string, notificationID int) error
}

// Params groups hub dependencies.
type Params struct {
	Scheduler alarms.Scheduler
	Log       *activitylog.Store
	Logger    *logger.Logger
	Metrics   *metrics.RecoveryMetrics
}

// Hub is the façade between schedulers and the OS alarm capability. It owns
// payload encoding, audit logging, and adapter dispatch.
type Hub struct {
	scheduler alarms.Scheduler
	log       *activitylog.Store
	logg      *logger.Logger
	metrics   *metrics.RecoveryMetrics

	mu          sync.RWMutex
	adapters    map[enums.Module]Adapter
	initialized bool
}

// New builds a hub with the required dependencies.
func New(params Params) (*Hub, error) {
	if params.Scheduler == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "alarm scheduler is required")
	}
	if params.Log == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "activity log is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &Hub{
		scheduler: params.Scheduler,
		log:       params.Log,
		logg:      params.Logger,
		metrics:   params.Metrics,
		adapters:  make(map[enums.Module]Adapter),
	}, nil
}

// Initialize is idempotent; repeated calls no-op once the hub is ready.
func (h *Hub) Initialize(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.initialized {
		return nil
	}
	h.initialized = true
	h.logg.Info(ctx, "notification hub initialized")
	return nil
}

// IsInitialized reports readiness without side effects.
func (h *Hub) IsInitialized() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.initialized
}

// RegisterAdapter plugs a module adapter in. Later registrations for the same
// module replace earlier ones.
func (h *Hub) RegisterAdapter(adapter Adapter) {
	if adapter == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.adapters[adapter.Module()] = adapter
}

func (h *Hub) adapter(module enums.Module) (Adapter, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	adapter, ok := h.adapters[module]
	return adapter, ok
}

// ResolveVariables asks the module's adapter for display variables. Modules
// without an adapter resolve to an empty map.
func (h *Hub) ResolveVariables(ctx context.Context, module enums.Module, entityID string) (map[string]string, error) {
	adapter, ok := h.adapter(module)
	if !ok {
		return map[string]string{}, nil
	}
	vars, err := adapter.ResolveVariables(ctx, entityID)
	if err != nil {
		return nil, err
	}
	if vars == nil {
		vars = map[string]string{}
	}
	return vars, nil
}

// Schedule places one alarm and records a scheduled event. OS rejections come
// back as a failed result with a readable reason; they never propagate as
// errors past this boundary.
func (h *Hub) Schedule(ctx context.Context, req Request) ScheduleResult {
	if strings.TrimSpace(req.Title) == "" {
		return ScheduleResult{FailureReason: "empty title after variable substitution"}
	}
	if req.ScheduledAt.IsZero() {
		return ScheduleResult{FailureReason: "missing fire time"}
	}

	if ok, warning := identity.Validate(req.Module, req.NotificationID); !ok {
		h.logg.Warn(h.logg.WithModule(ctx, string(req.Module)), warning)
	}

	encoded := payload.Encode(payload.Payload{
		Module:        req.Module,
		EntityID:      req.EntityID,
		ReminderType:  req.ReminderType,
		ReminderValue: req.ReminderValue,
		ReminderUnit:  req.ReminderUnit,
		Extras:        req.Extras,
	})

	err := h.scheduler.Schedule(ctx, alarms.Request{
		ID:       req.NotificationID,
		EntityID: req.EntityID,
		Title:    req.Title,
		Body:     req.Body,
		Payload:  encoded,
		FireAt:   req.ScheduledAt,
		Exact:    req.Exact,
		Channel:  req.Priority.Channel(),
	})
	if err != nil {
		h.metrics.AddOutcome(string(req.Module), "failed", 1)
		return ScheduleResult{FailureReason: fmt.Sprintf("os scheduling rejected: %v", err)}
	}

	metadata := map[string]any{
		activitylog.MetaScheduledAt: req.ScheduledAt.UTC().Format(time.RFC3339),
		activitylog.MetaSource:      "hub",
	}
	if onceKey, ok := req.Extras[activitylog.MetaOnceKey]; ok {
		metadata[activitylog.MetaOnceKey] = onceKey
	}
	if err := h.log.Append(ctx, activitylog.Entry{
		Module:         req.Module,
		EntityID:       req.EntityID,
		Title:          req.Title,
		Body:           req.Body,
		Payload:        encoded,
		Event:          enums.EventScheduled,
		NotificationID: req.NotificationID,
		Metadata:       metadata,
	}); err != nil {
		h.logg.Warn(ctx, fmt.Sprintf("scheduled event not logged for %d: %v", req.NotificationID, err))
	}
	h.metrics.AddOutcome(string(req.Module), "scheduled", 1)
	return ScheduleResult{Success: true}
}

// CancelContext carries optional audit detail for a cancellation, so the
// dashboard can show what was cancelled after the definition is gone.
type CancelContext struct {
	EntityID string
	Payload  string
	Title    string
	Metadata map[string]any
}

// CancelByNotificationID cancels the alarm and records a cancelled event.
// Cancels that found nothing pending stay out of the activity log: the
// reconciliation loop re-cancels disabled rules on every pass, and logging
// each no-op would crowd real audit history out of the capped log.
func (h *Hub) CancelByNotificationID(ctx context.Context, id int, cancelCtx CancelContext) (bool, error) {
	removed, err := h.scheduler.Cancel(ctx, id)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel alarm")
	}
	if !removed {
		return false, nil
	}

	entry := activitylog.Entry{
		EntityID:       cancelCtx.EntityID,
		Title:          cancelCtx.Title,
		Payload:        cancelCtx.Payload,
		Event:          enums.EventCancelled,
		NotificationID: id,
		Metadata:       cancelCtx.Metadata,
	}
	if decoded := payload.Decode(cancelCtx.Payload); decoded != nil {
		entry.Module = decoded.Module
		if entry.EntityID == "" {
			entry.EntityID = decoded.EntityID
		}
	} else if module, ok := identity.ModuleFor(id); ok {
		entry.Module = module
	}
	if err := h.log.Append(ctx, entry); err != nil {
		h.logg.Warn(ctx, fmt.Sprintf("cancelled event not logged for %d: %v", id, err))
	}
	h.metrics.AddOutcome(string(entry.Module), "cancelled", 1)
	return true, nil
}

// CancelForModule cancels every pending alarm owned by a module, resolved via
// payload first and id range second. Cancellation is best-effort: one failed
// cancel does not strand the rest. Returns the number cancelled.
func (h *Hub) CancelForModule(ctx context.Context, module enums.Module) (int, error) {
	pending, err := h.scheduler.ListPending(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending alarms")
	}
	var errs error
	cancelled := 0
	for _, alarm := range pending {
		owner, resolved := h.moduleOf(alarm)
		if !resolved || owner != module {
			continue
		}
		removed, err := h.CancelByNotificationID(ctx, alarm.ID, CancelContext{
			EntityID: alarm.EntityID,
			Payload:  alarm.Payload,
			Title:    alarm.Title,
			Metadata: map[string]any{activitylog.MetaSource: activitylog.SourceBulkCancel},
		})
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if removed {
			cancelled++
		}
	}
	return cancelled, errs
}

// CancelForEntity cancels every pending alarm attached to one entity,
// best-effort like CancelForModule.
func (h *Hub) CancelForEntity(ctx context.Context, entityID string) (int, error) {
	pending, err := h.scheduler.ListPending(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending alarms")
	}
	var errs error
	cancelled := 0
	for _, alarm := range pending {
		if alarm.EntityID != entityID {
			continue
		}
		removed, err := h.CancelByNotificationID(ctx, alarm.ID, CancelContext{
			EntityID: alarm.EntityID,
			Payload:  alarm.Payload,
			Title:    alarm.Title,
			Metadata: map[string]any{activitylog.MetaReason: "entity_deleted"},
		})
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if removed {
			cancelled++
		}
	}
	return cancelled, errs
}

func (h *Hub) moduleOf(alarm alarms.Pending) (enums.Module, bool) {
	if decoded := payload.Decode(alarm.Payload); decoded != nil {
		return decoded.Module, true
	}
	return identity.ModuleFor(alarm.ID)
}

// OnDelivered records a delivered event and is called by the capability's
// delivery callback path.
func (h *Hub) OnDelivered(ctx context.Context, id int, rawPayload, title string) {
	h.appendInteraction(ctx, enums.EventDelivered, id, rawPayload, title, "")
}

// OnTapped records a tapped event and dispatches to the owning adapter.
func (h *Hub) OnTapped(ctx context.Context, id int, rawPayload, title string) {
	entityID, module := h.appendInteraction(ctx, enums.EventTapped, id, rawPayload, title, "")
	if adapter, ok := h.adapter(module); ok {
		if err := adapter.OnTapped(ctx, entityID, id); err != nil {
			h.logg.Warn(ctx, fmt.Sprintf("tap handler failed for %d: %v", id, err))
		}
	}
}

// OnAction records an action event and dispatches to the owning adapter.
func (h *Hub) OnAction(ctx context.Context, id int, rawPayload, title, actionID string) {
	entityID, module := h.appendInteraction(ctx, enums.EventAction, id, rawPayload, title, actionID)
	if adapter, ok := h.adapter(module); ok {
		if err := adapter.OnAction(ctx, entityID, id, actionID); err != nil {
			h.logg.Warn(ctx, fmt.Sprintf("action handler failed for %d: %v", id, err))
		}
	}
}

// OnDeleted records a dismissal and dispatches to the owning adapter.
func (h *Hub) OnDeleted(ctx context.Context, id int, rawPayload, title string) {
	entityID, module := h.appendInteraction(ctx, enums.EventMissed, id, rawPayload, title, "")
	if adapter, ok := h.adapter(module); ok {
		if err := adapter.OnDeleted(ctx, entityID, id); err != nil {
			h.logg.Warn(ctx, fmt.Sprintf("delete handler failed for %d: %v", id, err))
		}
	}
}

func (h *Hub) appendInteraction(ctx context.Context, event enums.EventType, id int, rawPayload, title, actionID string) (string, enums.Module) {
	entry := activitylog.Entry{
		Title:          title,
		Payload:        rawPayload,
		Event:          event,
		ActionID:       actionID,
		NotificationID: id,
	}
	if decoded := payload.Decode(rawPayload); decoded != nil {
		entry.Module = decoded.Module
		entry.EntityID = decoded.EntityID
	} else if module, ok := identity.ModuleFor(id); ok {
		entry.Module = module
	}
	if err := h.log.Append(ctx, entry); err != nil {
		h.logg.Warn(ctx, fmt.Sprintf("%s event not logged for %d: %v", event, id, err))
	}
	return entry.EntityID, entry.Module
}
