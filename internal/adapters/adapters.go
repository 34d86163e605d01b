package adapters

import (
	"context"
	"time"

	"github.com/daybreak-labs/daybreak-backend/internal/domain"
	"github.com/daybreak-labs/daybreak-backend/pkg/enums"
	pkgerrors "github.com/daybreak-labs/daybreak-backend/pkg/errors"
	"github.com/daybreak-labs/daybreak-backend/pkg/logger"
)

// ActionComplete is the shared "done" button id across task and habit
// notifications. ActionMarkPaid settles a bill straight from the banner.
const (
	ActionComplete = "complete"
	ActionSnooze   = "snooze"
	ActionMarkPaid = "mark_paid"
)

// TaskAdapter resolves task display variables and handles interactions.
type TaskAdapter struct {
	tasks *domain.TaskRepo
	logg  *logger.Logger
}

// NewTaskAdapter builds the task module adapter.
func NewTaskAdapter(tasks *domain.TaskRepo, logg *logger.Logger) (*TaskAdapter, error) {
	if tasks == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "task repo is required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &TaskAdapter{tasks: tasks, logg: logg}, nil
}

func (a *TaskAdapter) Module() enums.Module { return enums.ModuleTask }

func (a *TaskAdapter) ResolveVariables(ctx context.Context, entityID string) (map[string]string, error) {
	task, found, err := a.tasks.FindByID(ctx, entityID)
	if err != nil || !found {
		return nil, err
	}
	vars := map[string]string{"entityName": task.Name}
	if due := task.DueAt(); due != nil {
		vars["dueDate"] = due.Format("Jan 2")
		vars["dueTime"] = due.Format("15:04")
	}
	return vars, nil
}

func (a *TaskAdapter) OnTapped(ctx context.Context, entityID string, notificationID int) error {
	// Tapping opens the task detail in the app shell; nothing to mutate here.
	return nil
}

func (a *TaskAdapter) OnAction(ctx context.Context, entityID string, notificationID int, actionID string) error {
	if actionID != ActionComplete {
		return nil
	}
	found, err := a.tasks.MarkCompleted(ctx, entityID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete task")
	}
	if !found {
		a.logg.Warn(a.logg.WithEntity(ctx, entityID), "complete action for missing task")
	}
	return nil
}

func (a *TaskAdapter) OnDeleted(ctx context.Context, entityID string, notificationID int) error {
	return nil
}

// HabitAdapter resolves habit display variables and handles interactions.
type HabitAdapter struct {
	habits *domain.HabitRepo
	logg   *logger.Logger
	now    func() time.Time
}

// NewHabitAdapter builds the habit module adapter.
func NewHabitAdapter(habits *domain.HabitRepo, logg *logger.Logger) (*HabitAdapter, error) {
	if habits == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "habit repo is required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &HabitAdapter{habits: habits, logg: logg, now: time.Now}, nil
}

func (a *HabitAdapter) Module() enums.Module { return enums.ModuleHabit }

func (a *HabitAdapter) ResolveVariables(ctx context.Context, entityID string) (map[string]string, error) {
	habit, found, err := a.habits.FindByID(ctx, entityID)
	if err != nil || !found {
		return nil, err
	}
	return map[string]string{"entityName": habit.Name}, nil
}

func (a *HabitAdapter) OnTapped(ctx context.Context, entityID string, notificationID int) error {
	return nil
}

func (a *HabitAdapter) OnAction(ctx context.Context, entityID string, notificationID int, actionID string) error {
	if actionID != ActionComplete {
		return nil
	}
	found, err := a.habits.MarkCompleted(ctx, entityID, a.now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete habit")
	}
	if !found {
		a.logg.Warn(a.logg.WithEntity(ctx, entityID), "complete action for missing habit")
	}
	return nil
}

func (a *HabitAdapter) OnDeleted(ctx context.Context, entityID string, notificationID int) error {
	return nil
}

// FinanceAdapter resolves amounts and due dates for finance notifications.
type FinanceAdapter struct {
	finance *domain.FinanceRepo
	logg    *logger.Logger
}

// NewFinanceAdapter builds the finance module adapter.
func NewFinanceAdapter(finance *domain.FinanceRepo, logg *logger.Logger) (*FinanceAdapter, error) {
	if finance == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "finance repo is required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &FinanceAdapter{finance: finance, logg: logg}, nil
}

func (a *FinanceAdapter) Module() enums.Module { return enums.ModuleFinance }

func (a *FinanceAdapter) ResolveVariables(ctx context.Context, entityID string) (map[string]string, error) {
	if bill, found, err := a.finance.FindBill(ctx, entityID); err != nil {
		return nil, err
	} else if found {
		vars := map[string]string{
			"entityName": bill.Name,
			"amount":     bill.Amount.StringFixed(2),
		}
		if bill.NextDueDate != nil {
			vars["dueDate"] = bill.NextDueDate.Format("Jan 2")
		}
		return vars, nil
	}

	due, _, found, err := a.finance.FindEntityDue(ctx, entityID)
	if err != nil || !found {
		return nil, err
	}
	vars := map[string]string{}
	if due != nil {
		vars["dueDate"] = due.Format("Jan 2")
	}
	return vars, nil
}

func (a *FinanceAdapter) OnTapped(ctx context.Context, entityID string, notificationID int) error {
	return nil
}

func (a *FinanceAdapter) OnAction(ctx context.Context, entityID string, notificationID int, actionID string) error {
	if actionID != ActionMarkPaid {
		return nil
	}
	found, err := a.finance.MarkBillPaid(ctx, entityID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark bill paid")
	}
	if !found {
		a.logg.Warn(a.logg.WithEntity(ctx, entityID), "mark_paid action for missing bill")
	}
	return nil
}

func (a *FinanceAdapter) OnDeleted(ctx context.Context, entityID string, notificationID int) error {
	return nil
}
