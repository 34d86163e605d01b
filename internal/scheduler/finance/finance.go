package finance

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/daybreak-labs/daybreak-backend/internal/activitylog"
	"github.com/daybreak-labs/daybreak-backend/internal/alarms"
	"github.com/daybreak-labs/daybreak-backend/internal/domain"
	"github.com/daybreak-labs/daybreak-backend/internal/hub"
	"github.com/daybreak-labs/daybreak-backend/internal/identity"
	"github.com/daybreak-labs/daybreak-backend/internal/policy"
	"github.com/daybreak-labs/daybreak-backend/internal/scheduler"
	"github.com/daybreak-labs/daybreak-backend/pkg/config"
	"github.com/daybreak-labs/daybreak-backend/pkg/db/models"
	"github.com/daybreak-labs/daybreak-backend/pkg/enums"
	pkgerrors "github.com/daybreak-labs/daybreak-backend/pkg/errors"
	"github.com/daybreak-labs/daybreak-backend/pkg/logger"
)

// OnceChecker answers whether a once-condition was already consumed.
type OnceChecker interface {
	HasOnceConsumed(ctx context.Context, onceKey string) (bool, error)
}

// Params groups finance scheduler dependencies.
type Params struct {
	Finance *domain.FinanceRepo
	Policy  *policy.Gate
	Hub     *hub.Hub
	Pending alarms.Scheduler
	Log     OnceChecker
	Logger  *logger.Logger
	Notify  config.NotifyConfig
}

// Scheduler reconciles reminder rules embedded on finance records. OS alarm
// slots are a finite platform resource, so the pass triages candidates by
// section priority before it ever talks to the capability.
type Scheduler struct {
	finance *domain.FinanceRepo
	policy  *policy.Gate
	hub     *hub.Hub
	pending alarms.Scheduler
	log     OnceChecker
	logg    *logger.Logger
	notify  config.NotifyConfig
	now     func() time.Time
}

// New builds the finance scheduler.
func New(params Params) (*Scheduler, error) {
	if params.Finance == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "finance repo is required")
	}
	if params.Policy == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "policy gate is required")
	}
	if params.Hub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "hub is required")
	}
	if params.Pending == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "alarm scheduler is required")
	}
	if params.Log == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "activity log is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &Scheduler{
		finance: params.Finance,
		policy:  params.Policy,
		hub:     params.Hub,
		pending: params.Pending,
		log:     params.Log,
		logg:    params.Logger,
		notify:  params.Notify,
		now:     time.Now,
	}, nil
}

// candidate is one finance entity that wants an alarm this pass.
type candidate struct {
	section  enums.Section
	entityID string
	title    string
	body     string
	due      time.Time
	open     bool
	rule     models.ReminderRule
}

// SyncAll reconciles every finance reminder rule and returns counts.
func (s *Scheduler) SyncAll(ctx context.Context) (scheduler.Counts, error) {
	var counts scheduler.Counts
	ctx = s.logg.WithModule(ctx, string(enums.ModuleFinance))

	if !s.policy.IsSchedulingEnabled(ctx, enums.ModuleFinance) {
		cancelled, err := s.hub.CancelForModule(ctx, enums.ModuleFinance)
		if err != nil {
			s.logg.Warn(ctx, fmt.Sprintf("module cancel failed: %v", err))
		}
		counts.Cancelled += cancelled
		counts.Skip(enums.SkipFinancePolicyDisabled)
		return counts, nil
	}

	candidates, err := s.collect(ctx)
	if err != nil {
		return counts, err
	}

	eligible := make([]candidate, 0, len(candidates))
	for _, cand := range candidates {
		if s.filterOne(ctx, cand, &counts) {
			eligible = append(eligible, cand)
		}
	}

	eligible = s.triage(ctx, eligible, &counts)

	for _, cand := range eligible {
		s.scheduleOne(ctx, cand, &counts)
	}
	return counts, nil
}

// SyncBill reconciles the reminder for a single bill after a save.
func (s *Scheduler) SyncBill(ctx context.Context, billID string) (scheduler.Counts, error) {
	var counts scheduler.Counts
	bill, found, err := s.finance.FindBill(ctx, billID)
	if err != nil {
		return counts, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bill")
	}
	if !found {
		return counts, pkgerrors.New(pkgerrors.CodeNotFound, "bill not found")
	}
	cand, ok := s.billCandidate(bill)
	if !ok || !s.filterOne(ctx, cand, &counts) {
		return counts, nil
	}
	s.scheduleOne(ctx, cand, &counts)
	return counts, nil
}

// SyncForEntity reconciles whichever finance record owns the id.
func (s *Scheduler) SyncForEntity(ctx context.Context, entityID string) (scheduler.Counts, error) {
	var counts scheduler.Counts
	candidates, err := s.collect(ctx)
	if err != nil {
		return counts, err
	}
	for _, cand := range candidates {
		if cand.entityID != entityID {
			continue
		}
		if s.filterOne(ctx, cand, &counts) {
			s.scheduleOne(ctx, cand, &counts)
		}
	}
	return counts, nil
}

// billCandidate builds the bill's candidacy. A disabled reminder still
// produces a candidate so the pass can cancel its lingering alarm; only an
// enabled rule with no due date has nothing to reconcile.
func (s *Scheduler) billCandidate(bill models.Bill) (candidate, bool) {
	if bill.Reminder.Enabled && bill.NextDueDate == nil {
		return candidate{}, false
	}
	cand := candidate{
		section:  enums.SectionBills,
		entityID: bill.ID.String(),
		title:    fmt.Sprintf("%s is due", bill.Name),
		body:     fmt.Sprintf("%s: %s due", bill.Name, bill.Amount.StringFixed(2)),
		open:     !bill.Paid,
		rule:     bill.Reminder,
	}
	if bill.NextDueDate != nil {
		cand.due = atRuleTime(*bill.NextDueDate, bill.Reminder)
	}
	return cand, true
}

// collect walks every finance section and builds candidates. Disabled
// reminders are included so filterOne can cancel their alarms; rows the
// scheduler can do nothing with (enabled but no due date) are dropped here.
func (s *Scheduler) collect(ctx context.Context) ([]candidate, error) {
	var candidates []candidate

	add := func(cand candidate, due *time.Time) {
		if due != nil {
			cand.due = atRuleTime(*due, cand.rule)
		} else if cand.rule.Enabled {
			return
		}
		candidates = append(candidates, cand)
	}

	bills, err := s.finance.ListBillsForSync(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bills")
	}
	for _, bill := range bills {
		if cand, ok := s.billCandidate(bill); ok {
			candidates = append(candidates, cand)
		}
	}

	debts, err := s.finance.ListDebtsForSync(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list debts")
	}
	for _, debt := range debts {
		add(candidate{
			section:  enums.SectionDebts,
			entityID: debt.ID.String(),
			title:    fmt.Sprintf("Debt due: %s", debt.Name),
			body:     fmt.Sprintf("%s to settle", debt.Amount.StringFixed(2)),
			open:     !debt.Settled,
			rule:     debt.Reminder,
		}, debt.DueDate)
	}

	lendings, err := s.finance.ListLendingForSync(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list lending records")
	}
	for _, lending := range lendings {
		add(candidate{
			section:  enums.SectionLending,
			entityID: lending.ID.String(),
			title:    fmt.Sprintf("Repayment due from %s", lending.Counterparty),
			body:     fmt.Sprintf("%s outstanding", lending.Amount.StringFixed(2)),
			open:     !lending.Repaid,
			rule:     lending.Reminder,
		}, lending.DueDate)
	}

	budgets, err := s.finance.ListBudgetsForSync(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list budgets")
	}
	for _, budget := range budgets {
		add(candidate{
			section:  enums.SectionBudgets,
			entityID: budget.ID.String(),
			title:    fmt.Sprintf("Budget period ending: %s", budget.Name),
			body:     fmt.Sprintf("%s of %s spent", budget.Spent.StringFixed(2), budget.Limit.StringFixed(2)),
			open:     true,
			rule:     budget.Reminder,
		}, budget.PeriodEnd)
	}

	goals, err := s.finance.ListSavingsForSync(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list savings goals")
	}
	for _, goal := range goals {
		add(candidate{
			section:  enums.SectionSavings,
			entityID: goal.ID.String(),
			title:    fmt.Sprintf("Savings check-in: %s", goal.Name),
			body:     fmt.Sprintf("%s of %s saved", goal.Saved.StringFixed(2), goal.Target.StringFixed(2)),
			open:     !goal.Achieved,
			rule:     goal.Reminder,
		}, goal.TargetDate)
	}

	incomes, err := s.finance.ListIncomesForSync(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list incomes")
	}
	for _, income := range incomes {
		add(candidate{
			section:  enums.SectionIncome,
			entityID: income.ID.String(),
			title:    fmt.Sprintf("Income expected: %s", income.SourceName),
			body:     fmt.Sprintf("%s incoming", income.Amount.StringFixed(2)),
			open:     income.Active,
			rule:     income.Reminder,
		}, income.NextOccurrence)
	}

	return candidates, nil
}

// filterOne applies enablement, condition, and timing policy. Filtered
// candidates cancel their derived alarm so the pass converges; the return
// value says whether the candidate survives to triage.
func (s *Scheduler) filterOne(ctx context.Context, cand candidate, counts *scheduler.Counts) bool {
	if !cand.rule.Enabled {
		s.cancelCandidate(ctx, cand, string(enums.SkipReminderDisabled))
		counts.Skip(enums.SkipReminderDisabled)
		return false
	}

	switch cand.rule.Condition {
	case enums.ConditionOnce:
		consumed, err := s.log.HasOnceConsumed(ctx, s.onceKey(cand))
		if err == nil && consumed {
			counts.Skip(enums.SkipOnceConsumed)
			return false
		}
	case enums.ConditionIfUnpaid:
		if !cand.open {
			s.cancelCandidate(ctx, cand, string(enums.SkipConditionUnmet))
			counts.Skip(enums.SkipConditionUnmet)
			return false
		}
	case enums.ConditionIfOverdue:
		if !cand.open || cand.due.After(s.now()) {
			s.cancelCandidate(ctx, cand, string(enums.SkipConditionUnmet))
			counts.Skip(enums.SkipConditionUnmet)
			return false
		}
	}

	window := scheduler.Window{
		Now:        s.now(),
		Horizon:    s.notify.PlanningHorizon,
		Stale:      s.notify.StaleWindow,
		ClampDelay: s.notify.ClampDelay,
	}
	fireAt := scheduler.FireTime(cand.due, cand.rule.Type, cand.rule.Value, cand.rule.Unit)
	if _, outcome := window.Classify(fireAt); outcome != scheduler.TimingSchedule {
		reason := enums.SkipStale
		if outcome == scheduler.TimingBeyondHorizon {
			reason = enums.SkipBeyondHorizon
		}
		s.cancelCandidate(ctx, cand, string(reason))
		counts.Skip(reason)
		return false
	}
	return true
}

// triage drops lowest-priority candidates when they would exceed the alarm
// budget. Dropped candidates are neither scheduled nor cancelled this pass,
// only reported as failed.
func (s *Scheduler) triage(ctx context.Context, eligible []candidate, counts *scheduler.Counts) []candidate {
	pending, err := s.pending.ListPending(ctx)
	if err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("pending count unavailable, skipping triage: %v", err))
		return eligible
	}
	remaining := s.notify.MaxTotalAlarms - len(pending)
	if remaining < 0 {
		remaining = 0
	}
	if len(eligible) <= remaining {
		return eligible
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		ri, rj := eligible[i].section.TriageRank(), eligible[j].section.TriageRank()
		if ri != rj {
			return ri < rj
		}
		return eligible[i].due.Before(eligible[j].due)
	})

	dropped := len(eligible) - remaining
	s.logg.Warn(ctx, fmt.Sprintf("alarm budget exhausted, dropping %d low-priority candidates", dropped))
	for range eligible[remaining:] {
		counts.Failed++
		counts.SkipReasons = append(counts.SkipReasons, string(enums.SkipBudgetExhausted))
	}
	return eligible[:remaining]
}

func (s *Scheduler) scheduleOne(ctx context.Context, cand candidate, counts *scheduler.Counts) {
	now := s.now()
	window := scheduler.Window{
		Now:        now,
		Horizon:    s.notify.PlanningHorizon,
		Stale:      s.notify.StaleWindow,
		ClampDelay: s.notify.ClampDelay,
	}
	fireAt, _ := window.Classify(scheduler.FireTime(cand.due, cand.rule.Type, cand.rule.Value, cand.rule.Unit))
	priority := scheduler.PriorityFor(cand.due, now)

	extras := map[string]string{"section": string(cand.section)}
	if cand.rule.Condition == enums.ConditionOnce {
		extras[activitylog.MetaOnceKey] = s.onceKey(cand)
	}

	result := s.hub.Schedule(ctx, hub.Request{
		Module:         enums.ModuleFinance,
		EntityID:       cand.entityID,
		Title:          cand.title,
		Body:           cand.body,
		ScheduledAt:    fireAt,
		NotificationID: s.derivedID(cand),
		ReminderType:   cand.rule.Type,
		ReminderValue:  cand.rule.Value,
		ReminderUnit:   cand.rule.Unit,
		Priority:       priority,
		Extras:         extras,
		Exact:          priority == enums.PriorityHigh,
	})
	if result.Success {
		counts.Scheduled++
		return
	}
	s.logg.Warn(ctx, fmt.Sprintf("schedule failed for %s: %s", cand.entityID, result.FailureReason))
	counts.Failed++
}

func (s *Scheduler) cancelCandidate(ctx context.Context, cand candidate, reason string) {
	_, err := s.hub.CancelByNotificationID(ctx, s.derivedID(cand), hub.CancelContext{
		EntityID: cand.entityID,
		Title:    cand.title,
		Metadata: map[string]any{activitylog.MetaReason: reason},
	})
	if err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("cancel failed for %s: %v", cand.entityID, err))
	}
}

func (s *Scheduler) derivedID(cand candidate) int {
	return identity.Generate(enums.ModuleFinance, cand.entityID, cand.rule.Type, cand.rule.Value, cand.rule.Unit)
}

func (s *Scheduler) onceKey(cand candidate) string {
	return scheduler.OnceKey(cand.entityID, string(cand.section), cand.due)
}

// atRuleTime pins a date-grade due value to the rule's hour and minute.
func atRuleTime(due time.Time, rule models.ReminderRule) time.Time {
	return time.Date(due.Year(), due.Month(), due.Day(), rule.Hour, rule.Minute, 0, 0, due.Location())
}
