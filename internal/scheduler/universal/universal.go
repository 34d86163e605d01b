package universal

import (
	"context"
	"fmt"
	"time"

	"github.com/daybreak-labs/daybreak-backend/internal/activitylog"
	"github.com/daybreak-labs/daybreak-backend/internal/definitions"
	"github.com/daybreak-labs/daybreak-backend/internal/domain"
	"github.com/daybreak-labs/daybreak-backend/internal/hub"
	"github.com/daybreak-labs/daybreak-backend/internal/identity"
	"github.com/daybreak-labs/daybreak-backend/internal/policy"
	"github.com/daybreak-labs/daybreak-backend/internal/scheduler"
	"github.com/daybreak-labs/daybreak-backend/internal/settings"
	"github.com/daybreak-labs/daybreak-backend/pkg/config"
	"github.com/daybreak-labs/daybreak-backend/pkg/enums"
	pkgerrors "github.com/daybreak-labs/daybreak-backend/pkg/errors"
	"github.com/daybreak-labs/daybreak-backend/pkg/logger"
)

const (
	habitLookaheadDays   = 60
	weekdayLookaheadWeek = 8
)

// Params groups universal scheduler dependencies.
type Params struct {
	Definitions *definitions.Repo
	Tasks       *domain.TaskRepo
	Habits      *domain.HabitRepo
	Finance     *domain.FinanceRepo
	Settings    *settings.Service
	Policy      *policy.Gate
	Hub         *hub.Hub
	Log         OnceChecker
	Logger      *logger.Logger
	Notify      config.NotifyConfig
}

// OnceChecker answers whether a once-condition was already consumed.
type OnceChecker interface {
	HasOnceConsumed(ctx context.Context, onceKey string) (bool, error)
}

// Scheduler reconciles universal notification definitions across every
// module. Running it twice with unchanged data converges: skipped and
// disabled rules cancel their derived alarms instead of leaving them behind.
type Scheduler struct {
	defs     *definitions.Repo
	tasks    *domain.TaskRepo
	habits   *domain.HabitRepo
	finance  *domain.FinanceRepo
	settings *settings.Service
	policy   *policy.Gate
	hub      *hub.Hub
	log      OnceChecker
	logg     *logger.Logger
	notify   config.NotifyConfig
	now      func() time.Time
}

// New builds the universal scheduler.
func New(params Params) (*Scheduler, error) {
	if params.Definitions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "definition repo is required")
	}
	if params.Tasks == nil || params.Habits == nil || params.Finance == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "domain repos are required")
	}
	if params.Settings == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "settings service is required")
	}
	if params.Policy == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "policy gate is required")
	}
	if params.Hub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "hub is required")
	}
	if params.Log == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "activity log is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &Scheduler{
		defs:     params.Definitions,
		tasks:    params.Tasks,
		habits:   params.Habits,
		finance:  params.Finance,
		settings: params.Settings,
		policy:   params.Policy,
		hub:      params.Hub,
		log:      params.Log,
		logg:     params.Logger,
		notify:   params.Notify,
		now:      time.Now,
	}, nil
}

// SyncAll reconciles every stored definition and returns aggregate counts.
// Individual definition failures never abort the pass.
func (s *Scheduler) SyncAll(ctx context.Context) (scheduler.Counts, error) {
	var counts scheduler.Counts
	defs, err := s.defs.List(ctx)
	if err != nil {
		return counts, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list definitions")
	}
	for _, def := range defs {
		s.syncOne(ctx, def, &counts)
	}
	return counts, nil
}

// SyncDefinition reconciles one definition after a save.
func (s *Scheduler) SyncDefinition(ctx context.Context, def definitions.Definition) error {
	var counts scheduler.Counts
	s.syncOne(ctx, def, &counts)
	if counts.Failed > 0 {
		return pkgerrors.New(pkgerrors.CodeSchedule, "definition could not be scheduled")
	}
	return nil
}

// CancelDefinition removes both identity derivations for a deleted rule.
func (s *Scheduler) CancelDefinition(ctx context.Context, def definitions.Definition) error {
	s.cancelDerived(ctx, def, "definition_deleted")
	return nil
}

// SyncForEntity reconciles every definition attached to one entity.
func (s *Scheduler) SyncForEntity(ctx context.Context, entityID string) (scheduler.Counts, error) {
	var counts scheduler.Counts
	defs, err := s.defs.ListForEntity(ctx, entityID)
	if err != nil {
		return counts, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list definitions for entity")
	}
	for _, def := range defs {
		s.syncOne(ctx, def, &counts)
	}
	return counts, nil
}

func (s *Scheduler) syncOne(ctx context.Context, def definitions.Definition, counts *scheduler.Counts) {
	ctx = s.logg.WithModule(s.logg.WithEntity(ctx, def.EntityID), string(def.Module))

	if !def.Enabled {
		s.cancelDerived(ctx, def, "definition_disabled")
		counts.Skipped++
		return
	}

	if !s.policy.IsSchedulingEnabled(ctx, def.Module) {
		s.cancelDerived(ctx, def, "policy_disabled")
		counts.Skip(enums.SkipPolicyDisabled)
		return
	}

	if enabled, reason := s.sectionEnabled(ctx, def); !enabled {
		s.cancelDerived(ctx, def, string(reason))
		counts.Skip(reason)
		return
	}

	due, open, ok, err := s.dueFor(ctx, def)
	if err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("due resolution failed for %s: %v", def.ID, err))
		counts.Failed++
		return
	}
	if !ok {
		s.cancelDerived(ctx, def, string(enums.SkipNoDueDate))
		counts.Skip(enums.SkipNoDueDate)
		return
	}

	if met, reason := s.conditionMet(ctx, def, due, open); !met {
		// A consumed once-condition keeps its pending alarm: the scheduled
		// event that consumed it belongs to the alarm still waiting to fire.
		if reason != enums.SkipOnceConsumed {
			s.cancelDerived(ctx, def, string(reason))
		}
		counts.Skip(reason)
		return
	}

	window := scheduler.Window{
		Now:        s.now(),
		Horizon:    s.notify.PlanningHorizon,
		Stale:      s.notify.StaleWindow,
		ClampDelay: s.notify.ClampDelay,
	}
	fireAt, outcome := window.Classify(scheduler.FireTime(due, def.ReminderType, def.ReminderValue, def.ReminderUnit))
	switch outcome {
	case scheduler.TimingStale:
		s.cancelDerived(ctx, def, string(enums.SkipStale))
		counts.Skip(enums.SkipStale)
		return
	case scheduler.TimingBeyondHorizon:
		s.cancelDerived(ctx, def, string(enums.SkipBeyondHorizon))
		counts.Skip(enums.SkipBeyondHorizon)
		return
	}

	vars, err := s.hub.ResolveVariables(ctx, def.Module, def.EntityID)
	if err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("variable resolution failed for %s: %v", def.ID, err))
		vars = map[string]string{}
	}
	if _, ok := vars["entityName"]; !ok && def.EntityName != "" {
		vars["entityName"] = def.EntityName
	}
	title := scheduler.RenderTemplate(def.Title, vars)
	body := scheduler.RenderTemplate(def.Body, vars)
	if title == "" {
		// Empty title is a template failure, not a silent skip.
		s.cancelDerived(ctx, def, "empty_title")
		counts.Failed++
		return
	}

	priority := scheduler.PriorityFor(due, s.now())
	extras := map[string]string{}
	if def.Condition == enums.ConditionOnce {
		extras[activitylog.MetaOnceKey] = scheduler.OnceKey(def.EntityID, def.ID, due)
	}

	result := s.hub.Schedule(ctx, hub.Request{
		Module:         def.Module,
		EntityID:       def.EntityID,
		Title:          title,
		Body:           body,
		ScheduledAt:    fireAt,
		NotificationID: identity.Generate(def.Module, def.EntityID, def.ReminderType, def.ReminderValue, def.ReminderUnit),
		ReminderType:   def.ReminderType,
		ReminderValue:  def.ReminderValue,
		ReminderUnit:   def.ReminderUnit,
		Priority:       priority,
		Extras:         extras,
		Exact:          priority == enums.PriorityHigh,
	})
	if result.Success {
		counts.Scheduled++
		return
	}
	s.logg.Warn(ctx, fmt.Sprintf("schedule failed for %s: %s", def.ID, result.FailureReason))
	counts.Failed++
}

// cancelDerived cancels both the stable and legacy alarm ids so no derivation
// path leaves an orphan.
func (s *Scheduler) cancelDerived(ctx context.Context, def definitions.Definition, reason string) {
	stable := identity.Generate(def.Module, def.EntityID, def.ReminderType, def.ReminderValue, def.ReminderUnit)
	legacy := identity.Legacy(def.Module, def.ID)
	for _, id := range []int{stable, legacy} {
		_, err := s.hub.CancelByNotificationID(ctx, id, hub.CancelContext{
			EntityID: def.EntityID,
			Title:    def.Title,
			Metadata: map[string]any{activitylog.MetaReason: reason},
		})
		if err != nil {
			s.logg.Warn(ctx, fmt.Sprintf("cancel failed for %d: %v", id, err))
		}
		if stable == legacy {
			break
		}
	}
}

func (s *Scheduler) sectionEnabled(ctx context.Context, def definitions.Definition) (bool, enums.SkipReason) {
	globalOn, err := s.settings.Bool(ctx, settings.KeyGlobalNotificationsEnabled, true)
	if err == nil && !globalOn {
		return false, enums.SkipSectionDisabled
	}

	switch def.Module {
	case enums.ModuleSleep:
		if on, err := s.settings.Bool(ctx, settings.KeySleepRemindersEnabled, true); err == nil && !on {
			return false, enums.SkipSectionDisabled
		}
		if def.Section == enums.SectionWindDown {
			if on, err := s.settings.Bool(ctx, settings.KeyWindDownEnabled, true); err == nil && !on {
				return false, enums.SkipSectionDisabled
			}
		}
	case enums.ModuleHabit:
		if on, err := s.settings.Bool(ctx, settings.KeyHabitRemindersEnabled, true); err == nil && !on {
			return false, enums.SkipSectionDisabled
		}
	}
	return true, ""
}

func (s *Scheduler) conditionMet(ctx context.Context, def definitions.Definition, due time.Time, open bool) (bool, enums.SkipReason) {
	switch def.Condition {
	case enums.ConditionAlways, "":
		return true, ""
	case enums.ConditionOnce:
		consumed, err := s.log.HasOnceConsumed(ctx, scheduler.OnceKey(def.EntityID, def.ID, due))
		if err != nil {
			// Once-check errors lean toward scheduling; a duplicate beats
			// a missed one-shot reminder.
			s.logg.Warn(ctx, fmt.Sprintf("once check failed for %s: %v", def.ID, err))
			return true, ""
		}
		if consumed {
			return false, enums.SkipOnceConsumed
		}
		return true, ""
	case enums.ConditionIfUnpaid:
		if !open {
			return false, enums.SkipConditionUnmet
		}
		return true, ""
	case enums.ConditionIfOverdue:
		if due.After(s.now()) {
			return false, enums.SkipConditionUnmet
		}
		if !open {
			return false, enums.SkipConditionUnmet
		}
		return true, ""
	}
	return false, enums.SkipConditionUnmet
}

// dueFor resolves the module-specific due date for a definition. The open
// flag reflects payable/settled state for finance entities and is true for
// everything else.
func (s *Scheduler) dueFor(ctx context.Context, def definitions.Definition) (time.Time, bool, bool, error) {
	now := s.now()
	switch def.Module {
	case enums.ModuleTask:
		task, found, err := s.tasks.FindByID(ctx, def.EntityID)
		if err != nil || !found {
			return time.Time{}, false, false, err
		}
		if task.Completed {
			return time.Time{}, false, false, nil
		}
		due := task.DueAt()
		if due == nil {
			return time.Time{}, false, false, nil
		}
		return *due, true, true, nil

	case enums.ModuleHabit:
		habit, found, err := s.habits.FindByID(ctx, def.EntityID)
		if err != nil || !found {
			return time.Time{}, false, false, err
		}
		if habit.Archived {
			return time.Time{}, false, false, nil
		}
		due, ok := scheduler.NextWeekday(now, habit.ActiveWeekdays(), def.FireHour, def.FireMinute, habitLookaheadDays)
		return due, true, ok, nil

	case enums.ModuleFinance:
		due, open, found, err := s.finance.FindEntityDue(ctx, def.EntityID)
		if err != nil || !found || due == nil {
			return time.Time{}, false, false, err
		}
		at := time.Date(due.Year(), due.Month(), due.Day(), def.FireHour, def.FireMinute, 0, 0, due.Location())
		return at, open, true, nil

	case enums.ModuleSleep:
		return s.weekdayScheduleDue(ctx, settings.KeySleepSchedule, def, now)

	case enums.ModuleBehavior:
		return s.weekdayScheduleDue(ctx, settings.KeyBehaviorSchedule, def, now)

	case enums.ModuleMood:
		hour, err := s.settings.Int(ctx, settings.KeyMoodCheckinHour, def.FireHour)
		if err != nil {
			hour = def.FireHour
		}
		minute, err := s.settings.Int(ctx, settings.KeyMoodCheckinMinute, def.FireMinute)
		if err != nil {
			minute = def.FireMinute
		}
		due := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
		if !due.After(now) {
			// Today's check-in time passed; roll to tomorrow.
			due = due.AddDate(0, 0, 1)
		}
		return due, true, true, nil
	}
	return time.Time{}, false, false, nil
}

// weekdayScheduleDue resolves sleep/behavior schedules, advancing week by
// week up to the lookahead cap.
func (s *Scheduler) weekdayScheduleDue(ctx context.Context, key string, def definitions.Definition, now time.Time) (time.Time, bool, bool, error) {
	schedule, err := s.settings.Schedule(ctx, key)
	if err != nil {
		return time.Time{}, false, false, err
	}
	hour, minute := def.FireHour, def.FireMinute
	days := map[time.Weekday]bool{}
	if schedule != nil {
		hour, minute = schedule.Hour, schedule.Minute
		for _, day := range schedule.Days {
			if wd, ok := parseWeekday(day); ok {
				days[wd] = true
			}
		}
	}
	if len(days) == 0 {
		return time.Time{}, false, false, nil
	}
	due, ok := scheduler.NextWeekday(now, days, hour, minute, weekdayLookaheadWeek*7)
	return due, true, ok, nil
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday,
	"wed": time.Wednesday, "thu": time.Thursday, "fri": time.Friday,
	"sat": time.Saturday,
}

func parseWeekday(name string) (time.Weekday, bool) {
	wd, ok := weekdayNames[name]
	return wd, ok
}
