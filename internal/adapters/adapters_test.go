package adapters

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/daybreak-labs/daybreak-backend/internal/domain"
	"github.com/daybreak-labs/daybreak-backend/pkg/db/models"
	"github.com/daybreak-labs/daybreak-backend/pkg/logger"
)

func newDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	err = conn.AutoMigrate(&models.Task{}, &models.Habit{}, &models.Bill{})
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestTaskAdapterResolvesVariables(t *testing.T) {
	conn := newDB(t)
	ctx := context.Background()

	due := time.Date(2026, 9, 12, 14, 30, 0, 0, time.UTC)
	task := models.Task{ID: uuid.New(), Name: "Water plants", DueDate: &due, DueHour: 14, DueMinute: 30}
	if err := conn.Create(&task).Error; err != nil {
		t.Fatalf("create: %v", err)
	}

	adapter, err := NewTaskAdapter(domain.NewTaskRepo(conn), testLogger())
	if err != nil {
		t.Fatalf("NewTaskAdapter: %v", err)
	}
	vars, err := adapter.ResolveVariables(ctx, task.ID.String())
	if err != nil {
		t.Fatalf("ResolveVariables: %v", err)
	}
	if vars["entityName"] != "Water plants" {
		t.Fatalf("expected entity name, got %v", vars)
	}
	if vars["dueTime"] != "14:30" {
		t.Fatalf("expected due time, got %v", vars)
	}
}

func TestTaskAdapterCompleteAction(t *testing.T) {
	conn := newDB(t)
	ctx := context.Background()

	task := models.Task{ID: uuid.New(), Name: "Water plants"}
	if err := conn.Create(&task).Error; err != nil {
		t.Fatalf("create: %v", err)
	}

	adapter, _ := NewTaskAdapter(domain.NewTaskRepo(conn), testLogger())
	if err := adapter.OnAction(ctx, task.ID.String(), 100001, ActionComplete); err != nil {
		t.Fatalf("OnAction: %v", err)
	}

	var reloaded models.Task
	if err := conn.First(&reloaded, "id = ?", task.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reloaded.Completed {
		t.Fatal("complete action must mark the task completed")
	}
}

func TestTaskAdapterIgnoresUnknownAction(t *testing.T) {
	conn := newDB(t)
	ctx := context.Background()

	task := models.Task{ID: uuid.New(), Name: "Water plants"}
	if err := conn.Create(&task).Error; err != nil {
		t.Fatalf("create: %v", err)
	}

	adapter, _ := NewTaskAdapter(domain.NewTaskRepo(conn), testLogger())
	if err := adapter.OnAction(ctx, task.ID.String(), 100001, "explode"); err != nil {
		t.Fatalf("unknown actions must be ignored: %v", err)
	}
	var reloaded models.Task
	conn.First(&reloaded, "id = ?", task.ID)
	if reloaded.Completed {
		t.Fatal("unknown action must not mutate the task")
	}
}

func TestHabitAdapterCompleteStampsCompletion(t *testing.T) {
	conn := newDB(t)
	ctx := context.Background()

	habit := models.Habit{ID: uuid.New(), Name: "Stretch", Weekdays: "mon,wed"}
	if err := conn.Create(&habit).Error; err != nil {
		t.Fatalf("create: %v", err)
	}

	adapter, err := NewHabitAdapter(domain.NewHabitRepo(conn), testLogger())
	if err != nil {
		t.Fatalf("NewHabitAdapter: %v", err)
	}
	now := time.Date(2026, 9, 9, 8, 0, 0, 0, time.UTC)
	adapter.now = func() time.Time { return now }

	if err := adapter.OnAction(ctx, habit.ID.String(), 110001, ActionComplete); err != nil {
		t.Fatalf("OnAction: %v", err)
	}
	var reloaded models.Habit
	if err := conn.First(&reloaded, "id = ?", habit.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.LastCompletedAt == nil || !reloaded.LastCompletedAt.Equal(now) {
		t.Fatalf("expected completion stamp %v, got %v", now, reloaded.LastCompletedAt)
	}
}

func TestFinanceAdapterResolvesBillAmount(t *testing.T) {
	conn := newDB(t)
	ctx := context.Background()

	due := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	bill := models.Bill{
		ID: uuid.New(), Name: "Rent",
		Amount:      decimal.NewFromFloat(1450.50),
		NextDueDate: &due,
	}
	if err := conn.Create(&bill).Error; err != nil {
		t.Fatalf("create: %v", err)
	}

	adapter, err := NewFinanceAdapter(domain.NewFinanceRepo(conn), testLogger())
	if err != nil {
		t.Fatalf("NewFinanceAdapter: %v", err)
	}
	vars, err := adapter.ResolveVariables(ctx, bill.ID.String())
	if err != nil {
		t.Fatalf("ResolveVariables: %v", err)
	}
	if vars["amount"] != "1450.50" {
		t.Fatalf("expected formatted amount, got %v", vars)
	}
	if vars["dueDate"] != "Oct 1" {
		t.Fatalf("expected due date, got %v", vars)
	}
}

func TestFinanceAdapterMarkPaidAction(t *testing.T) {
	conn := newDB(t)
	ctx := context.Background()

	bill := models.Bill{ID: uuid.New(), Name: "Rent", Amount: decimal.NewFromInt(1450)}
	if err := conn.Create(&bill).Error; err != nil {
		t.Fatalf("create: %v", err)
	}

	adapter, _ := NewFinanceAdapter(domain.NewFinanceRepo(conn), testLogger())
	if err := adapter.OnAction(ctx, bill.ID.String(), 120001, ActionMarkPaid); err != nil {
		t.Fatalf("OnAction: %v", err)
	}
	var reloaded models.Bill
	if err := conn.First(&reloaded, "id = ?", bill.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reloaded.Paid {
		t.Fatal("mark_paid action must settle the bill")
	}
}

func TestResolveVariablesForMissingEntityIsNil(t *testing.T) {
	conn := newDB(t)
	adapter, _ := NewTaskAdapter(domain.NewTaskRepo(conn), testLogger())

	vars, err := adapter.ResolveVariables(context.Background(), uuid.NewString())
	if err != nil {
		t.Fatalf("missing entity must not error: %v", err)
	}
	if vars != nil {
		t.Fatalf("expected nil vars, got %v", vars)
	}
}
