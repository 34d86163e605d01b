package finance

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/daybreak-labs/daybreak-backend/internal/activitylog"
	"github.com/daybreak-labs/daybreak-backend/internal/alarms"
	"github.com/daybreak-labs/daybreak-backend/internal/domain"
	"github.com/daybreak-labs/daybreak-backend/internal/hub"
	"github.com/daybreak-labs/daybreak-backend/internal/policy"
	"github.com/daybreak-labs/daybreak-backend/internal/settings"
	"github.com/daybreak-labs/daybreak-backend/pkg/config"
	"github.com/daybreak-labs/daybreak-backend/pkg/db/models"
	"github.com/daybreak-labs/daybreak-backend/pkg/enums"
	"github.com/daybreak-labs/daybreak-backend/pkg/kv"
	"github.com/daybreak-labs/daybreak-backend/pkg/logger"
)

type fixture struct {
	conn      *gorm.DB
	scheduler *Scheduler
	alarms    *alarms.Store
	settings  *settings.Service
	log       *activitylog.Store
	now       time.Time
}

func newFixture(t *testing.T, maxAlarms int) *fixture {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	err = conn.AutoMigrate(
		&models.KVEntry{}, &models.ScheduledAlarm{},
		&models.Bill{}, &models.Debt{}, &models.LendingRecord{},
		&models.Budget{}, &models.SavingsGoal{}, &models.RecurringIncome{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store := kv.NewStore(conn)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	settingsSvc, err := settings.NewService(store)
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	gate, err := policy.NewGate(settingsSvc, logg)
	if err != nil {
		t.Fatalf("gate: %v", err)
	}
	log, err := activitylog.NewStore(store, 0)
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	alarmStore, err := alarms.NewStore(conn)
	if err != nil {
		t.Fatalf("alarms: %v", err)
	}
	h, err := hub.New(hub.Params{Scheduler: alarmStore, Log: log, Logger: logg})
	if err != nil {
		t.Fatalf("hub: %v", err)
	}

	sched, err := New(Params{
		Finance: domain.NewFinanceRepo(conn),
		Policy:  gate,
		Hub:     h,
		Pending: alarmStore,
		Log:     log,
		Logger:  logg,
		Notify: config.NotifyConfig{
			MaxTotalAlarms:  maxAlarms,
			PlanningHorizon: 60 * 24 * time.Hour,
			StaleWindow:     24 * time.Hour,
			ClampDelay:      2 * time.Minute,
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	now := time.Date(2026, 9, 9, 8, 0, 0, 0, time.UTC)
	sched.now = func() time.Time { return now }

	return &fixture{conn: conn, scheduler: sched, alarms: alarmStore, settings: settingsSvc, log: log, now: now}
}

func reminderOn(condition enums.Condition) models.ReminderRule {
	return models.ReminderRule{
		Enabled:   true,
		Type:      enums.ReminderBefore,
		Value:     1,
		Unit:      enums.UnitDays,
		Condition: condition,
		Hour:      9,
	}
}

func (f *fixture) createBill(t *testing.T, name string, due time.Time, paid bool, condition enums.Condition) models.Bill {
	t.Helper()
	bill := models.Bill{
		ID: uuid.New(), Name: name,
		Amount:      decimal.NewFromInt(100),
		NextDueDate: &due, Paid: paid,
		Reminder: reminderOn(condition),
	}
	if err := f.conn.Create(&bill).Error; err != nil {
		t.Fatalf("create bill: %v", err)
	}
	return bill
}

func TestSyncAllSchedulesUnpaidBill(t *testing.T) {
	f := newFixture(t, 480)
	ctx := context.Background()

	f.createBill(t, "Rent", f.now.AddDate(0, 0, 3), false, enums.ConditionIfUnpaid)

	counts, err := f.scheduler.SyncAll(ctx)
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if counts.Scheduled != 1 {
		t.Fatalf("expected 1 scheduled, got %+v", counts)
	}

	pending, err := f.alarms.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 alarm, got %d", len(pending))
	}
	// Due Sep 12 09:00, before 1 day: Sep 11 09:00.
	want := time.Date(2026, 9, 11, 9, 0, 0, 0, time.UTC)
	if !pending[0].FireAt.Equal(want) {
		t.Fatalf("expected fire at %v, got %v", want, pending[0].FireAt)
	}
}

func TestPaidBillCancelsItsAlarm(t *testing.T) {
	f := newFixture(t, 480)
	ctx := context.Background()

	bill := f.createBill(t, "Rent", f.now.AddDate(0, 0, 3), false, enums.ConditionIfUnpaid)
	if _, err := f.scheduler.SyncAll(ctx); err != nil {
		t.Fatalf("SyncAll: %v", err)
	}

	if err := f.conn.Model(&models.Bill{}).Where("id = ?", bill.ID).Update("paid", true).Error; err != nil {
		t.Fatalf("update: %v", err)
	}
	counts, err := f.scheduler.SyncAll(ctx)
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if counts.Skipped != 1 {
		t.Fatalf("expected condition skip, got %+v", counts)
	}
	pending, _ := f.alarms.ListPending(ctx)
	if len(pending) != 0 {
		t.Fatalf("expected alarm cancelled, got %+v", pending)
	}
}

func TestDisabledReminderCancelsItsAlarm(t *testing.T) {
	f := newFixture(t, 480)
	ctx := context.Background()

	bill := f.createBill(t, "Gym", f.now.AddDate(0, 0, 3), false, enums.ConditionAlways)
	if _, err := f.scheduler.SyncAll(ctx); err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	pending, _ := f.alarms.ListPending(ctx)
	if len(pending) != 1 {
		t.Fatalf("expected 1 alarm before disable, got %d", len(pending))
	}

	err := f.conn.Model(&models.Bill{}).Where("id = ?", bill.ID).
		Update("reminder_enabled", false).Error
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	counts, err := f.scheduler.SyncBill(ctx, bill.ID.String())
	if err != nil {
		t.Fatalf("SyncBill: %v", err)
	}
	if counts.Skipped != 1 || counts.SkipReasons[0] != string(enums.SkipReminderDisabled) {
		t.Fatalf("expected reminder_disabled skip, got %+v", counts)
	}
	pending, _ = f.alarms.ListPending(ctx)
	if len(pending) != 0 {
		t.Fatalf("expected targeted sync to cancel the alarm, got %+v", pending)
	}
}

func TestDisabledReminderCancelledByFullPass(t *testing.T) {
	f := newFixture(t, 480)
	ctx := context.Background()

	bill := f.createBill(t, "Gym", f.now.AddDate(0, 0, 3), false, enums.ConditionAlways)
	if _, err := f.scheduler.SyncAll(ctx); err != nil {
		t.Fatalf("SyncAll: %v", err)
	}

	err := f.conn.Model(&models.Bill{}).Where("id = ?", bill.ID).
		Update("reminder_enabled", false).Error
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	// Repeated full passes converge to zero alarms and a single
	// cancellation entry; no-op cancels stay out of the log.
	for i := 0; i < 5; i++ {
		if _, err := f.scheduler.SyncAll(ctx); err != nil {
			t.Fatalf("SyncAll %d: %v", i, err)
		}
	}
	pending, _ := f.alarms.ListPending(ctx)
	if len(pending) != 0 {
		t.Fatalf("expected full pass to cancel the alarm, got %+v", pending)
	}
	entries, err := f.log.Query(ctx, activitylog.Filter{Event: enums.EventCancelled})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one cancelled entry across passes, got %d", len(entries))
	}
}

func TestFinancePolicyDisabledCancelsModule(t *testing.T) {
	f := newFixture(t, 480)
	ctx := context.Background()

	f.createBill(t, "Rent", f.now.AddDate(0, 0, 3), false, enums.ConditionAlways)
	if _, err := f.scheduler.SyncAll(ctx); err != nil {
		t.Fatalf("SyncAll: %v", err)
	}

	if err := f.settings.SetBool(ctx, settings.ModuleEnabledKey(enums.ModuleFinance), false); err != nil {
		t.Fatalf("SetBool: %v", err)
	}
	counts, err := f.scheduler.SyncAll(ctx)
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if counts.Cancelled != 1 {
		t.Fatalf("expected module alarms cancelled, got %+v", counts)
	}
	if len(counts.SkipReasons) == 0 || counts.SkipReasons[0] != string(enums.SkipFinancePolicyDisabled) {
		t.Fatalf("expected finance policy skip reason, got %+v", counts.SkipReasons)
	}
	pending, _ := f.alarms.ListPending(ctx)
	if len(pending) != 0 {
		t.Fatalf("expected no alarms, got %+v", pending)
	}
}

func TestTriageDropsLowestPrioritySections(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	due := f.now.AddDate(0, 0, 3)
	f.createBill(t, "Rent", due, false, enums.ConditionAlways)

	goal := models.SavingsGoal{
		ID: uuid.New(), Name: "Vacation",
		Target: decimal.NewFromInt(1000), Saved: decimal.NewFromInt(200),
		TargetDate: &due, Reminder: reminderOn(enums.ConditionAlways),
	}
	if err := f.conn.Create(&goal).Error; err != nil {
		t.Fatalf("create goal: %v", err)
	}
	income := models.RecurringIncome{
		ID: uuid.New(), SourceName: "Salary",
		Amount: decimal.NewFromInt(3000), Frequency: models.IncomeMonthly,
		NextOccurrence: &due, Active: true, Reminder: reminderOn(enums.ConditionAlways),
	}
	if err := f.conn.Create(&income).Error; err != nil {
		t.Fatalf("create income: %v", err)
	}

	counts, err := f.scheduler.SyncAll(ctx)
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if counts.Scheduled != 2 {
		t.Fatalf("expected 2 scheduled within budget, got %+v", counts)
	}
	if counts.Failed != 1 {
		t.Fatalf("expected 1 dropped as failed, got %+v", counts)
	}

	// Income ranks below bills and savings; it must be the dropped one.
	pending, _ := f.alarms.ListPending(ctx)
	for _, alarm := range pending {
		if alarm.EntityID == income.ID.String() {
			t.Fatal("income alarm should have been triaged out")
		}
	}
}

func TestSyncBillTargeted(t *testing.T) {
	f := newFixture(t, 480)
	ctx := context.Background()

	bill := f.createBill(t, "Water", f.now.AddDate(0, 0, 5), false, enums.ConditionAlways)
	other := f.createBill(t, "Power", f.now.AddDate(0, 0, 5), false, enums.ConditionAlways)

	counts, err := f.scheduler.SyncBill(ctx, bill.ID.String())
	if err != nil {
		t.Fatalf("SyncBill: %v", err)
	}
	if counts.Scheduled != 1 {
		t.Fatalf("expected 1 scheduled, got %+v", counts)
	}
	pending, _ := f.alarms.ListPending(ctx)
	if len(pending) != 1 || pending[0].EntityID != bill.ID.String() {
		t.Fatalf("expected only targeted bill, got %+v", pending)
	}
	_ = other

	if _, err := f.scheduler.SyncBill(ctx, uuid.NewString()); err == nil {
		t.Fatal("expected not-found error for unknown bill")
	}
}

func TestOnceConditionConsumedSkips(t *testing.T) {
	f := newFixture(t, 480)
	ctx := context.Background()

	f.createBill(t, "Annual fee", f.now.AddDate(0, 0, 2), false, enums.ConditionOnce)

	first, err := f.scheduler.SyncAll(ctx)
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if first.Scheduled != 1 {
		t.Fatalf("expected first schedule, got %+v", first)
	}

	second, err := f.scheduler.SyncAll(ctx)
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if second.Scheduled != 0 || second.Skipped != 1 {
		t.Fatalf("expected once skip, got %+v", second)
	}
	if second.SkipReasons[0] != string(enums.SkipOnceConsumed) {
		t.Fatalf("expected once_consumed reason, got %+v", second.SkipReasons)
	}
}

func TestOverdueBillGetsExactHighPriorityAlarm(t *testing.T) {
	f := newFixture(t, 480)
	ctx := context.Background()

	// Due yesterday but rule fires after-due; inside the grace window.
	bill := models.Bill{
		ID: uuid.New(), Name: "Late",
		Amount:      decimal.NewFromInt(55),
		NextDueDate: timePtr(f.now.Add(-20 * time.Hour)),
		Reminder: models.ReminderRule{
			Enabled:   true,
			Type:      enums.ReminderOnDue,
			Unit:      enums.UnitMinutes,
			Condition: enums.ConditionIfOverdue,
			Hour:      12,
		},
	}
	if err := f.conn.Create(&bill).Error; err != nil {
		t.Fatalf("create: %v", err)
	}

	counts, err := f.scheduler.SyncAll(ctx)
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if counts.Scheduled != 1 {
		t.Fatalf("expected overdue schedule, got %+v", counts)
	}
	pending, _ := f.alarms.ListPending(ctx)
	if len(pending) != 1 {
		t.Fatalf("expected 1 alarm, got %d", len(pending))
	}
	if !pending[0].Exact {
		t.Fatal("overdue reminders must use exact scheduling")
	}
	if pending[0].Channel != "daybreak_urgent" {
		t.Fatalf("expected urgent channel, got %q", pending[0].Channel)
	}
}

func timePtr(t time.Time) *time.Time { return &t }

func TestManyBillsAllScheduledWithinBudget(t *testing.T) {
	f := newFixture(t, 480)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		f.createBill(t, fmt.Sprintf("Bill %d", i), f.now.AddDate(0, 0, i+1), false, enums.ConditionAlways)
	}
	counts, err := f.scheduler.SyncAll(ctx)
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if counts.Scheduled != 10 || counts.Failed != 0 {
		t.Fatalf("expected all scheduled, got %+v", counts)
	}
}
