package recovery

import (
	"context"
	"fmt"
	"time"

	"github.com/daybreak-labs/daybreak-backend/internal/activitylog"
	"github.com/daybreak-labs/daybreak-backend/internal/alarms"
	"github.com/daybreak-labs/daybreak-backend/internal/definitions"
	"github.com/daybreak-labs/daybreak-backend/internal/domain"
	"github.com/daybreak-labs/daybreak-backend/internal/hub"
	"github.com/daybreak-labs/daybreak-backend/internal/identity"
	"github.com/daybreak-labs/daybreak-backend/internal/policy"
	"github.com/daybreak-labs/daybreak-backend/internal/scheduler"
	financesched "github.com/daybreak-labs/daybreak-backend/internal/scheduler/finance"
	"github.com/daybreak-labs/daybreak-backend/internal/scheduler/universal"
	"github.com/daybreak-labs/daybreak-backend/pkg/config"
	"github.com/daybreak-labs/daybreak-backend/pkg/db/models"
	"github.com/daybreak-labs/daybreak-backend/pkg/enums"
	pkgerrors "github.com/daybreak-labs/daybreak-backend/pkg/errors"
	"github.com/daybreak-labs/daybreak-backend/pkg/logger"
	"github.com/daybreak-labs/daybreak-backend/pkg/metrics"
)

// Options steers one recovery run.
type Options struct {
	// BootstrapForBackground marks a headless invocation: a background
	// runtime may call in with zero prior process state.
	BootstrapForBackground bool
	// SourceFlow names the trigger for the audit trail (periodic, app_resume,
	// settings_change, health_check, manual).
	SourceFlow string
}

// Pass names for Result.Passes keys.
const (
	PassFinance     = "finance"
	PassUniversal   = "universal"
	PassLegacyTask  = "legacy_task"
	PassLegacyHabit = "legacy_habit"
)

// Result summarizes one reconciliation run, with counts per pass.
type Result struct {
	Success     bool                        `json:"success"`
	Passes      map[string]scheduler.Counts `json:"passes"`
	Duration    time.Duration               `json:"duration"`
	SkipReasons []string                    `json:"skipReasons,omitempty"`
	Error       string                      `json:"error,omitempty"`
}

func (r *Result) recordError(step string, err error) {
	msg := fmt.Sprintf("%s: %v", step, err)
	if r.Error != "" {
		r.Error += "; " + msg
	} else {
		r.Error = msg
	}
}

func (r Result) total() scheduler.Counts {
	var total scheduler.Counts
	for _, counts := range r.Passes {
		total.Add(counts)
	}
	return total
}

// OrchestratorParams groups orchestrator dependencies.
type OrchestratorParams struct {
	Hub       *hub.Hub
	Finance   *financesched.Scheduler
	Universal *universal.Scheduler
	Policy    *policy.Gate
	Alarms    alarms.Scheduler
	Tasks     *domain.TaskRepo
	Habits    *domain.HabitRepo
	Registry  *domain.Registry
	Defs      *definitions.Repo
	FinRepo   *domain.FinanceRepo
	Log       *activitylog.Store
	Logger    *logger.Logger
	Metrics   *metrics.RecoveryMetrics
	Notify    config.NotifyConfig
}

// Orchestrator runs the reconciliation loop as a strict best-effort sequence:
// one module's failure never aborts the rest, and the run itself never
// returns an error to its caller.
type Orchestrator struct {
	hub       *hub.Hub
	finance   *financesched.Scheduler
	universal *universal.Scheduler
	policy    *policy.Gate
	alarms    alarms.Scheduler
	tasks     *domain.TaskRepo
	habits    *domain.HabitRepo
	registry  *domain.Registry
	defs      *definitions.Repo
	finRepo   *domain.FinanceRepo
	log       *activitylog.Store
	logg      *logger.Logger
	metrics   *metrics.RecoveryMetrics
	notify    config.NotifyConfig
	now       func() time.Time
}

// NewOrchestrator builds the recovery orchestrator.
func NewOrchestrator(params OrchestratorParams) (*Orchestrator, error) {
	if params.Hub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "hub is required")
	}
	if params.Finance == nil || params.Universal == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "schedulers are required")
	}
	if params.Policy == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "policy gate is required")
	}
	if params.Alarms == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "alarm scheduler is required")
	}
	if params.Tasks == nil || params.Habits == nil || params.Registry == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "domain repos are required")
	}
	if params.Defs == nil || params.FinRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "definition and finance repos are required")
	}
	if params.Log == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "activity log is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &Orchestrator{
		hub:       params.Hub,
		finance:   params.Finance,
		universal: params.Universal,
		policy:    params.Policy,
		alarms:    params.Alarms,
		tasks:     params.Tasks,
		habits:    params.Habits,
		registry:  params.Registry,
		defs:      params.Defs,
		finRepo:   params.FinRepo,
		log:       params.Log,
		logg:      params.Logger,
		metrics:   params.Metrics,
		notify:    params.Notify,
		now:       time.Now,
	}, nil
}

// RunRecovery executes the full reconciliation sequence. A background-task
// runtime that sees an uncaught panic may blacklist the task, so everything
// is caught here and folded into the result.
func (o *Orchestrator) RunRecovery(ctx context.Context, opts Options) (result Result) {
	start := o.now()
	result = Result{Passes: make(map[string]scheduler.Counts)}
	ctx = o.logg.WithField(ctx, "source_flow", opts.SourceFlow)

	defer func() {
		if r := recover(); r != nil {
			result.Success = false
			result.Error = fmt.Sprintf("recovery panic: %v", r)
			o.logg.Error(ctx, "recovery panicked", fmt.Errorf("%v", r))
		}
		result.Duration = o.now().Sub(start)
		o.metrics.ObserveDuration(result.Duration)
		o.finish(ctx, opts, result)
	}()

	if err := o.hub.Initialize(ctx); err != nil {
		result.Error = fmt.Sprintf("hub initialize: %v", err)
		return result
	}

	// Orphan sweep needs foreground context: the prune walks live alarms
	// against repositories and is capped to bound native-API call volume.
	if !opts.BootstrapForBackground {
		if pruned, err := o.pruneOrphans(ctx); err != nil {
			o.logg.Warn(ctx, fmt.Sprintf("orphan prune failed: %v", err))
		} else if pruned > 0 {
			o.logg.Info(ctx, fmt.Sprintf("pruned %d orphaned alarms", pruned))
		}
	}

	if o.policy.IsSchedulingEnabled(ctx, enums.ModuleFinance) {
		counts, err := o.finance.SyncAll(ctx)
		if err != nil {
			o.logg.Error(ctx, "finance sync failed", err)
			counts.Failed++
			result.recordError("finance sync", err)
		}
		result.Passes[PassFinance] = counts
	} else {
		result.SkipReasons = append(result.SkipReasons, string(enums.SkipFinancePolicyDisabled))
	}

	// The universal pass runs unconditionally; its per-rule policy checks
	// handle individual module gating.
	universalCounts, err := o.universal.SyncAll(ctx)
	if err != nil {
		o.logg.Error(ctx, "universal sync failed", err)
		universalCounts.Failed++
		result.recordError("universal sync", err)
	}
	result.Passes[PassUniversal] = universalCounts

	if opts.BootstrapForBackground {
		// Legacy task/habit resyncs require the foreground platform channel;
		// attempting them headless would fail with a plugin-unavailable
		// error, so they are skipped with a recorded reason.
		result.SkipReasons = append(result.SkipReasons, string(enums.SkipLegacyResyncHeadless))
	} else {
		result.Passes[PassLegacyTask] = o.resyncLegacyTasks(ctx)
		result.Passes[PassLegacyHabit] = o.resyncLegacyHabits(ctx)
	}

	result.Success = result.Error == ""
	return result
}

func (o *Orchestrator) finish(ctx context.Context, opts Options, result Result) {
	total := result.total()
	for pass, counts := range result.Passes {
		o.metrics.AddOutcome(pass, "scheduled", counts.Scheduled)
		o.metrics.AddOutcome(pass, "cancelled", counts.Cancelled)
		o.metrics.AddOutcome(pass, "skipped", counts.Skipped)
		o.metrics.AddOutcome(pass, "failed", counts.Failed)
	}
	if pending, err := o.alarms.ListPending(ctx); err == nil {
		o.metrics.SetPending(len(pending))
	}

	metadata := map[string]any{
		"source":    opts.SourceFlow,
		"headless":  opts.BootstrapForBackground,
		"success":   result.Success,
		"scheduled": total.Scheduled,
		"cancelled": total.Cancelled,
		"skipped":   total.Skipped,
		"failed":    total.Failed,
		"duration":  result.Duration.String(),
	}
	if result.Error != "" {
		metadata["error"] = result.Error
	}
	if len(result.SkipReasons) > 0 {
		metadata["skipReasons"] = result.SkipReasons
	}
	err := o.log.Append(ctx, activitylog.Entry{
		Title:    "Recovery pass",
		Event:    enums.EventRecoverySummary,
		Metadata: metadata,
	})
	if err != nil {
		o.logg.Warn(ctx, fmt.Sprintf("recovery summary not logged: %v", err))
	}
	o.logg.Info(ctx, fmt.Sprintf(
		"recovery finished: success=%v scheduled=%d cancelled=%d skipped=%d failed=%d in %s",
		result.Success, total.Scheduled, total.Cancelled, total.Skipped, total.Failed, result.Duration,
	))
}

// pruneOrphans cancels live alarms whose owning entity no longer exists in
// any repository, capped per run.
func (o *Orchestrator) pruneOrphans(ctx context.Context) (int, error) {
	pending, err := o.alarms.ListPending(ctx)
	if err != nil {
		return 0, err
	}
	pruned := 0
	for _, alarm := range pending {
		if pruned >= o.notify.PruneCap {
			break
		}
		if alarm.EntityID == "" {
			continue
		}
		exists, err := o.registry.AnyEntityExists(ctx, alarm.EntityID)
		if err != nil {
			return pruned, err
		}
		if exists {
			continue
		}
		// Universal definitions can outlive the relational rows they point
		// at; an alarm still backed by a definition is not an orphan.
		if defs, err := o.defs.ListForEntity(ctx, alarm.EntityID); err == nil && len(defs) > 0 {
			continue
		}
		removed, err := o.hub.CancelByNotificationID(ctx, alarm.ID, hub.CancelContext{
			EntityID: alarm.EntityID,
			Payload:  alarm.Payload,
			Title:    alarm.Title,
			Metadata: map[string]any{activitylog.MetaReason: "orphaned_entity"},
		})
		if err != nil {
			return pruned, err
		}
		if removed {
			pruned++
		}
	}
	return pruned, nil
}

// resyncLegacyTasks reschedules reminder-bearing tasks through their embedded
// rules, capped to bound run time.
func (o *Orchestrator) resyncLegacyTasks(ctx context.Context) scheduler.Counts {
	var counts scheduler.Counts
	limit := o.notify.TaskResyncCap
	tasks, err := o.tasks.ListActiveWithReminders(ctx, limit)
	if err != nil {
		o.logg.Warn(ctx, fmt.Sprintf("legacy task resync failed: %v", err))
		counts.Failed++
		return counts
	}
	for _, task := range tasks {
		due := task.DueAt()
		if due == nil {
			counts.Skip(enums.SkipNoDueDate)
			continue
		}
		o.scheduleLegacy(ctx, enums.ModuleTask, task.ID.String(), task.Name, *due, task.Reminder, &counts)
	}
	if total, err := o.tasks.CountActiveWithReminders(ctx); err == nil && int(total) > limit {
		for i := 0; i < int(total)-limit; i++ {
			counts.Skip(enums.SkipResyncCap)
		}
	}
	return counts
}

// resyncLegacyHabits reschedules reminder-bearing habits, capped per run.
func (o *Orchestrator) resyncLegacyHabits(ctx context.Context) scheduler.Counts {
	var counts scheduler.Counts
	limit := o.notify.HabitResyncCap
	habits, err := o.habits.ListActiveWithReminders(ctx, limit)
	if err != nil {
		o.logg.Warn(ctx, fmt.Sprintf("legacy habit resync failed: %v", err))
		counts.Failed++
		return counts
	}
	now := o.now()
	for _, habit := range habits {
		due, ok := scheduler.NextWeekday(now, habit.ActiveWeekdays(), habit.Reminder.Hour, habit.Reminder.Minute, 60)
		if !ok {
			counts.Skip(enums.SkipNoDueDate)
			continue
		}
		o.scheduleLegacy(ctx, enums.ModuleHabit, habit.ID.String(), habit.Name, due, habit.Reminder, &counts)
	}
	if total, err := o.habits.CountActiveWithReminders(ctx); err == nil && int(total) > limit {
		for i := 0; i < int(total)-limit; i++ {
			counts.Skip(enums.SkipResyncCap)
		}
	}
	return counts
}

func (o *Orchestrator) scheduleLegacy(ctx context.Context, module enums.Module, entityID, name string, due time.Time, rule models.ReminderRule, counts *scheduler.Counts) {
	rtype, rvalue, runit := rule.Type, rule.Value, rule.Unit
	window := scheduler.Window{
		Now:        o.now(),
		Horizon:    o.notify.PlanningHorizon,
		Stale:      o.notify.StaleWindow,
		ClampDelay: o.notify.ClampDelay,
	}
	fireAt, outcome := window.Classify(scheduler.FireTime(due, rtype, rvalue, runit))
	switch outcome {
	case scheduler.TimingStale:
		counts.Skip(enums.SkipStale)
		return
	case scheduler.TimingBeyondHorizon:
		counts.Skip(enums.SkipBeyondHorizon)
		return
	}

	priority := scheduler.PriorityFor(due, o.now())
	result := o.hub.Schedule(ctx, hub.Request{
		Module:         module,
		EntityID:       entityID,
		Title:          name,
		Body:           "Reminder",
		ScheduledAt:    fireAt,
		NotificationID: identity.Generate(module, entityID, rtype, rvalue, runit),
		ReminderType:   rtype,
		ReminderValue:  rvalue,
		ReminderUnit:   runit,
		Priority:       priority,
		Exact:          priority == enums.PriorityHigh,
	})
	if result.Success {
		counts.Scheduled++
		return
	}
	counts.Failed++
}

// RunHealthCheckIfNeeded triggers a full recovery when the capability reports
// zero pending alarms while at least one module should clearly have some.
// This catches OS alarm storage being wiped without the app hearing about it.
func (o *Orchestrator) RunHealthCheckIfNeeded(ctx context.Context) (bool, Result) {
	pending, err := o.alarms.ListPending(ctx)
	if err != nil {
		o.logg.Warn(ctx, fmt.Sprintf("health check pending read failed: %v", err))
		return false, Result{}
	}
	if len(pending) > 0 {
		return false, Result{}
	}

	should := false
	if defs, err := o.defs.ListEnabled(ctx); err == nil && len(defs) > 0 {
		should = true
	}
	if !should {
		if count, err := o.finRepo.CountRemindersEnabled(ctx); err == nil && count > 0 {
			should = true
		}
	}
	if !should {
		if count, err := o.tasks.CountActiveWithReminders(ctx); err == nil && count > 0 {
			should = true
		}
	}
	if !should {
		if count, err := o.habits.CountActiveWithReminders(ctx); err == nil && count > 0 {
			should = true
		}
	}
	if !should {
		return false, Result{}
	}

	o.logg.Warn(ctx, "zero pending alarms but reminders exist; running recovery")
	return true, o.RunRecovery(ctx, Options{SourceFlow: "health_check"})
}
