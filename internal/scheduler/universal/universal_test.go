package universal

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/daybreak-labs/daybreak-backend/internal/activitylog"
	"github.com/daybreak-labs/daybreak-backend/internal/alarms"
	"github.com/daybreak-labs/daybreak-backend/internal/definitions"
	"github.com/daybreak-labs/daybreak-backend/internal/domain"
	"github.com/daybreak-labs/daybreak-backend/internal/hub"
	"github.com/daybreak-labs/daybreak-backend/internal/identity"
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
	defs      *definitions.Repo
	settings  *settings.Service
	log       *activitylog.Store
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	err = conn.AutoMigrate(
		&models.KVEntry{}, &models.ScheduledAlarm{},
		&models.Task{}, &models.Habit{},
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
	defs, err := definitions.NewRepo(store)
	if err != nil {
		t.Fatalf("defs: %v", err)
	}

	sched, err := New(Params{
		Definitions: defs,
		Tasks:       domain.NewTaskRepo(conn),
		Habits:      domain.NewHabitRepo(conn),
		Finance:     domain.NewFinanceRepo(conn),
		Settings:    settingsSvc,
		Policy:      gate,
		Hub:         h,
		Log:         log,
		Logger:      logg,
		Notify: config.NotifyConfig{
			MaxTotalAlarms:  480,
			PlanningHorizon: 60 * 24 * time.Hour,
			StaleWindow:     24 * time.Hour,
			ClampDelay:      2 * time.Minute,
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	now := time.Date(2026, 9, 9, 8, 0, 0, 0, time.UTC) // a Wednesday
	sched.now = func() time.Time { return now }

	return &fixture{
		conn: conn, scheduler: sched, alarms: alarmStore,
		defs: defs, settings: settingsSvc, log: log, now: now,
	}
}

func (f *fixture) createTask(t *testing.T, name string, due time.Time) models.Task {
	t.Helper()
	task := models.Task{
		ID: uuid.New(), Name: name, DueDate: &due,
		DueHour: due.Hour(), DueMinute: due.Minute(),
	}
	if err := f.conn.Create(&task).Error; err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func (f *fixture) taskDefinition(t *testing.T, task models.Task) definitions.Definition {
	t.Helper()
	def := definitions.Definition{
		ID:            definitions.NewID(),
		Module:        enums.ModuleTask,
		EntityID:      task.ID.String(),
		EntityName:    task.Name,
		Title:         "{entityName} is due",
		Body:          "Get it done",
		ReminderType:  enums.ReminderBefore,
		ReminderValue: 1,
		ReminderUnit:  enums.UnitHours,
		FireHour:      9,
		Enabled:       true,
		Condition:     enums.ConditionAlways,
		CreatedAt:     f.now,
	}
	if err := f.defs.Put(context.Background(), def); err != nil {
		t.Fatalf("put definition: %v", err)
	}
	return def
}

func TestSyncAllSchedulesTaskDefinition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.createTask(t, "Water plants", f.now.Add(26*time.Hour))
	def := f.taskDefinition(t, task)

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
	wantID := identity.Generate(def.Module, def.EntityID, def.ReminderType, def.ReminderValue, def.ReminderUnit)
	if pending[0].ID != wantID {
		t.Fatalf("expected derived id %d, got %d", wantID, pending[0].ID)
	}
	if pending[0].Title != "Water plants is due" {
		t.Fatalf("expected substituted title, got %q", pending[0].Title)
	}
	// Fire one hour before a 10:00 due: 09:00 next day.
	wantFire := f.now.Add(25 * time.Hour)
	if !pending[0].FireAt.Equal(wantFire.UTC()) {
		t.Fatalf("expected fire at %v, got %v", wantFire, pending[0].FireAt)
	}
}

func TestSyncAllIsConvergent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.createTask(t, "Water plants", f.now.Add(26*time.Hour))
	f.taskDefinition(t, task)

	for i := 0; i < 3; i++ {
		if _, err := f.scheduler.SyncAll(ctx); err != nil {
			t.Fatalf("SyncAll %d: %v", i, err)
		}
	}
	pending, err := f.alarms.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected exactly 1 alarm after repeated syncs, got %d", len(pending))
	}
}

func TestDisabledDefinitionCancelsExistingAlarm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.createTask(t, "Water plants", f.now.Add(26*time.Hour))
	def := f.taskDefinition(t, task)

	if _, err := f.scheduler.SyncAll(ctx); err != nil {
		t.Fatalf("SyncAll: %v", err)
	}

	def.Enabled = false
	if err := f.defs.Put(ctx, def); err != nil {
		t.Fatalf("Put: %v", err)
	}
	counts, err := f.scheduler.SyncAll(ctx)
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if counts.Skipped != 1 {
		t.Fatalf("expected 1 skipped, got %+v", counts)
	}

	pending, err := f.alarms.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected alarm cancelled, got %+v", pending)
	}
}

func TestDisabledDefinitionLogsCancelOnlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.createTask(t, "Water plants", f.now.Add(26*time.Hour))
	def := f.taskDefinition(t, task)

	if _, err := f.scheduler.SyncAll(ctx); err != nil {
		t.Fatalf("SyncAll: %v", err)
	}

	def.Enabled = false
	if err := f.defs.Put(ctx, def); err != nil {
		t.Fatalf("Put: %v", err)
	}
	// A permanently disabled definition sees a no-op cancel every cron
	// cycle; only the pass that actually removed the alarm may log.
	for i := 0; i < 5; i++ {
		if _, err := f.scheduler.SyncAll(ctx); err != nil {
			t.Fatalf("SyncAll %d: %v", i, err)
		}
	}

	entries, err := f.log.Query(ctx, activitylog.Filter{Event: enums.EventCancelled})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected a single cancelled entry across repeated passes, got %d", len(entries))
	}
}

func TestPolicyDisabledModuleSkipsAndCancels(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.createTask(t, "Water plants", f.now.Add(26*time.Hour))
	f.taskDefinition(t, task)

	if _, err := f.scheduler.SyncAll(ctx); err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if err := f.settings.SetBool(ctx, settings.ModuleEnabledKey(enums.ModuleTask), false); err != nil {
		t.Fatalf("SetBool: %v", err)
	}

	counts, err := f.scheduler.SyncAll(ctx)
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if counts.Scheduled != 0 || counts.Skipped != 1 {
		t.Fatalf("expected policy skip, got %+v", counts)
	}
	pending, _ := f.alarms.ListPending(ctx)
	if len(pending) != 0 {
		t.Fatalf("expected alarm cancelled under disabled policy, got %+v", pending)
	}
}

func TestOnceConditionSkipsSecondPassButKeepsAlarm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.createTask(t, "One-shot", f.now.Add(26*time.Hour))
	def := f.taskDefinition(t, task)
	def.Condition = enums.ConditionOnce
	if err := f.defs.Put(ctx, def); err != nil {
		t.Fatalf("Put: %v", err)
	}

	first, err := f.scheduler.SyncAll(ctx)
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if first.Scheduled != 1 {
		t.Fatalf("expected first pass to schedule, got %+v", first)
	}

	second, err := f.scheduler.SyncAll(ctx)
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if second.Scheduled != 0 || second.Skipped != 1 {
		t.Fatalf("expected once-consumed skip, got %+v", second)
	}

	pending, _ := f.alarms.ListPending(ctx)
	if len(pending) != 1 {
		t.Fatalf("once skip must keep the pending alarm, got %d", len(pending))
	}
}

func TestStaleFireTimeClampsWithinGraceWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Due two hours ago: lapsed but inside the 24h grace window.
	task := f.createTask(t, "Lapsed", f.now.Add(-time.Hour))
	f.taskDefinition(t, task)

	counts, err := f.scheduler.SyncAll(ctx)
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if counts.Scheduled != 1 {
		t.Fatalf("expected clamped schedule, got %+v", counts)
	}
	pending, _ := f.alarms.ListPending(ctx)
	if len(pending) != 1 {
		t.Fatalf("expected 1 alarm, got %d", len(pending))
	}
	if !pending[0].FireAt.Equal(f.now.Add(2 * time.Minute).UTC()) {
		t.Fatalf("expected clamp to now+2m, got %v", pending[0].FireAt)
	}
}

func TestMoodCheckinRollsToTomorrow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	def := definitions.Definition{
		ID:           definitions.NewID(),
		Module:       enums.ModuleMood,
		EntityID:     "daily",
		EntityName:   "Mood",
		Title:        "How are you feeling?",
		ReminderType: enums.ReminderOnDue,
		ReminderUnit: enums.UnitMinutes,
		FireHour:     7, // already past the fixture's 08:00 now
		Enabled:      true,
		Condition:    enums.ConditionAlways,
		CreatedAt:    f.now,
	}
	if err := f.defs.Put(ctx, def); err != nil {
		t.Fatalf("Put: %v", err)
	}

	counts, err := f.scheduler.SyncAll(ctx)
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if counts.Scheduled != 1 {
		t.Fatalf("expected schedule, got %+v", counts)
	}
	pending, _ := f.alarms.ListPending(ctx)
	want := time.Date(2026, 9, 10, 7, 0, 0, 0, time.UTC)
	if len(pending) != 1 || !pending[0].FireAt.Equal(want) {
		t.Fatalf("expected tomorrow 07:00, got %+v", pending)
	}
}

func TestSleepScheduleUsesSettingsWeekdays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Fixture now is Wednesday 08:00; next active day is Friday.
	err := f.settings.SetSchedule(ctx, settings.KeySleepSchedule, settings.WeekdaySchedule{
		Days: []string{"fri"}, Hour: 21, Minute: 30,
	})
	if err != nil {
		t.Fatalf("SetSchedule: %v", err)
	}

	def := definitions.Definition{
		ID:           definitions.NewID(),
		Module:       enums.ModuleSleep,
		EntityID:     "winddown",
		Title:        "Wind down",
		ReminderType: enums.ReminderOnDue,
		ReminderUnit: enums.UnitMinutes,
		Enabled:      true,
		Condition:    enums.ConditionAlways,
		CreatedAt:    f.now,
	}
	if err := f.defs.Put(ctx, def); err != nil {
		t.Fatalf("Put: %v", err)
	}

	counts, err := f.scheduler.SyncAll(ctx)
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if counts.Scheduled != 1 {
		t.Fatalf("expected schedule, got %+v", counts)
	}
	pending, _ := f.alarms.ListPending(ctx)
	want := time.Date(2026, 9, 11, 21, 30, 0, 0, time.UTC)
	if len(pending) != 1 || !pending[0].FireAt.Equal(want) {
		t.Fatalf("expected Friday 21:30, got %+v", pending)
	}
}

func TestWindDownSectionToggleCancels(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.settings.SetSchedule(ctx, settings.KeySleepSchedule, settings.WeekdaySchedule{
		Days: []string{"fri"}, Hour: 21,
	})
	if err != nil {
		t.Fatalf("SetSchedule: %v", err)
	}
	def := definitions.Definition{
		ID:           definitions.NewID(),
		Module:       enums.ModuleSleep,
		Section:      enums.SectionWindDown,
		EntityID:     "winddown",
		Title:        "Wind down",
		ReminderType: enums.ReminderOnDue,
		ReminderUnit: enums.UnitMinutes,
		Enabled:      true,
		Condition:    enums.ConditionAlways,
		CreatedAt:    f.now,
	}
	if err := f.defs.Put(ctx, def); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := f.scheduler.SyncAll(ctx); err != nil {
		t.Fatalf("SyncAll: %v", err)
	}

	if err := f.settings.SetBool(ctx, settings.KeyWindDownEnabled, false); err != nil {
		t.Fatalf("SetBool: %v", err)
	}
	counts, err := f.scheduler.SyncAll(ctx)
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if counts.Skipped != 1 {
		t.Fatalf("expected section skip, got %+v", counts)
	}
	pending, _ := f.alarms.ListPending(ctx)
	if len(pending) != 0 {
		t.Fatalf("expected wind-down alarm cancelled, got %+v", pending)
	}
}

func TestIfUnpaidConditionAgainstBill(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	due := f.now.Add(72 * time.Hour)
	bill := models.Bill{ID: uuid.New(), Name: "Rent", NextDueDate: &due}
	if err := f.conn.Create(&bill).Error; err != nil {
		t.Fatalf("create bill: %v", err)
	}
	def := definitions.Definition{
		ID:            definitions.NewID(),
		Module:        enums.ModuleFinance,
		Section:       enums.SectionBills,
		EntityID:      bill.ID.String(),
		EntityName:    "Rent",
		Title:         "{entityName} due",
		ReminderType:  enums.ReminderBefore,
		ReminderValue: 1,
		ReminderUnit:  enums.UnitDays,
		FireHour:      9,
		Enabled:       true,
		Condition:     enums.ConditionIfUnpaid,
		CreatedAt:     f.now,
	}
	if err := f.defs.Put(ctx, def); err != nil {
		t.Fatalf("Put: %v", err)
	}

	counts, err := f.scheduler.SyncAll(ctx)
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if counts.Scheduled != 1 {
		t.Fatalf("unpaid bill must schedule, got %+v", counts)
	}

	if err := f.conn.Model(&models.Bill{}).Where("id = ?", bill.ID).Update("paid", true).Error; err != nil {
		t.Fatalf("update: %v", err)
	}
	counts, err = f.scheduler.SyncAll(ctx)
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if counts.Scheduled != 0 || counts.Skipped != 1 {
		t.Fatalf("paid bill must skip, got %+v", counts)
	}
	pending, _ := f.alarms.ListPending(ctx)
	if len(pending) != 0 {
		t.Fatalf("paid bill alarm must be cancelled, got %+v", pending)
	}
}

func TestDeletedEntityCancelsViaNoDueDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task := f.createTask(t, "Doomed", f.now.Add(26*time.Hour))
	f.taskDefinition(t, task)
	if _, err := f.scheduler.SyncAll(ctx); err != nil {
		t.Fatalf("SyncAll: %v", err)
	}

	if err := f.conn.Delete(&models.Task{}, "id = ?", task.ID).Error; err != nil {
		t.Fatalf("delete: %v", err)
	}
	counts, err := f.scheduler.SyncAll(ctx)
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if counts.Skipped != 1 {
		t.Fatalf("expected skip for missing entity, got %+v", counts)
	}
	pending, _ := f.alarms.ListPending(ctx)
	if len(pending) != 0 {
		t.Fatalf("expected alarm cancelled for deleted entity, got %+v", pending)
	}
}
