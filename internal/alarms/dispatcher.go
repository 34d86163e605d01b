package alarms

import (
	"context"
	"fmt"
	"time"

	"github.com/daybreak-labs/daybreak-backend/internal/activitylog"
	"github.com/daybreak-labs/daybreak-backend/internal/identity"
	"github.com/daybreak-labs/daybreak-backend/internal/payload"
	"github.com/daybreak-labs/daybreak-backend/pkg/enums"
	pkgerrors "github.com/daybreak-labs/daybreak-backend/pkg/errors"
	"github.com/daybreak-labs/daybreak-backend/pkg/logger"
	"github.com/daybreak-labs/daybreak-backend/pkg/metrics"
)

// DispatcherParams groups dependencies for the dispatcher.
type DispatcherParams struct {
	Store    *Store
	Log      *activitylog.Store
	Logger   *logger.Logger
	Metrics  *metrics.RecoveryMetrics
	Interval time.Duration
}

// Dispatcher drains due alarms and records delivered events. It stands in for
// the platform notification tray on the embedded deployment.
type Dispatcher struct {
	store    *Store
	log      *activitylog.Store
	logg     *logger.Logger
	metrics  *metrics.RecoveryMetrics
	interval time.Duration
	now      func() time.Time
}

// NewDispatcher builds a dispatcher with the required dependencies.
func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "alarm store is required")
	}
	if params.Log == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "activity log is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Dispatcher{
		store:    params.Store,
		log:      params.Log,
		logg:     params.Logger,
		metrics:  params.Metrics,
		interval: interval,
		now:      time.Now,
	}, nil
}

// Tick delivers everything due right now and returns the delivered count.
func (d *Dispatcher) Tick(ctx context.Context) (int, error) {
	due, err := d.store.TakeDue(ctx, d.now())
	if err != nil {
		return 0, err
	}

	for _, alarm := range due {
		entry := activitylog.Entry{
			EntityID:       alarm.EntityID,
			Title:          alarm.Title,
			Body:           alarm.Body,
			Payload:        alarm.Payload,
			Event:          enums.EventDelivered,
			NotificationID: alarm.ID,
			Metadata: map[string]any{
				activitylog.MetaScheduledAt: alarm.FireAt.UTC().Format(time.RFC3339),
				activitylog.MetaSource:      "dispatcher",
			},
		}
		if decoded := payload.Decode(alarm.Payload); decoded != nil {
			entry.Module = decoded.Module
		} else if module, ok := identity.ModuleFor(alarm.ID); ok {
			entry.Module = module
		}
		if err := d.log.Append(ctx, entry); err != nil {
			d.logg.Warn(ctx, fmt.Sprintf("delivered event not logged for %d: %v", alarm.ID, err))
		}
		d.metrics.AddOutcome(string(entry.Module), "delivered", 1)
	}

	if pending, err := d.store.ListPending(ctx); err == nil {
		d.metrics.SetPending(len(pending))
	}
	return len(due), nil
}

// Run ticks on the configured interval until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if delivered, err := d.Tick(ctx); err != nil {
				d.logg.Error(ctx, "alarm dispatch tick failed", err)
			} else if delivered > 0 {
				d.logg.Info(ctx, fmt.Sprintf("delivered %d alarms", delivered))
			}
		}
	}
}
