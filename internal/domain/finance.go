package domain

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/daybreak-labs/daybreak-backend/internal/repo"
	"github.com/daybreak-labs/daybreak-backend/pkg/db/models"
)

// FinanceRepo reads finance entities that carry reminder configuration. The
// schedulers never write through this repository; ownership of the records
// stays with the finance feature.
type FinanceRepo struct {
	repo.Base
}

// NewFinanceRepo constructs the finance read repository.
func NewFinanceRepo(db *gorm.DB) *FinanceRepo {
	return &FinanceRepo{Base: repo.NewBase(db)}
}

// ListBillsForSync returns every bill, disabled reminders included. Enabled
// and paid state matter to the scheduler, not the query: a reminder switched
// off must still reach the pass so its stale alarm gets cancelled.
func (r *FinanceRepo) ListBillsForSync(ctx context.Context) ([]models.Bill, error) {
	var bills []models.Bill
	err := r.DB(ctx).
		Order("next_due_date ASC").
		Find(&bills).Error
	return bills, err
}

// FindBill loads one bill by id string; found=false when absent.
func (r *FinanceRepo) FindBill(ctx context.Context, id string) (models.Bill, bool, error) {
	var bill models.Bill
	err := r.DB(ctx).Where("id = ?", id).First(&bill).Error
	if err == gorm.ErrRecordNotFound {
		return models.Bill{}, false, nil
	}
	return bill, err == nil, err
}

// ListDebtsForSync returns every debt for the reconciliation pass.
func (r *FinanceRepo) ListDebtsForSync(ctx context.Context) ([]models.Debt, error) {
	var debts []models.Debt
	err := r.DB(ctx).
		Order("due_date ASC").
		Find(&debts).Error
	return debts, err
}

// ListLendingForSync returns every lending record for the reconciliation pass.
func (r *FinanceRepo) ListLendingForSync(ctx context.Context) ([]models.LendingRecord, error) {
	var records []models.LendingRecord
	err := r.DB(ctx).
		Order("due_date ASC").
		Find(&records).Error
	return records, err
}

// ListBudgetsForSync returns every budget for the reconciliation pass.
func (r *FinanceRepo) ListBudgetsForSync(ctx context.Context) ([]models.Budget, error) {
	var budgets []models.Budget
	err := r.DB(ctx).
		Order("period_end ASC").
		Find(&budgets).Error
	return budgets, err
}

// ListSavingsForSync returns unachieved savings goals for the reconciliation
// pass.
func (r *FinanceRepo) ListSavingsForSync(ctx context.Context) ([]models.SavingsGoal, error) {
	var goals []models.SavingsGoal
	err := r.DB(ctx).
		Where("achieved = ?", false).
		Order("target_date ASC").
		Find(&goals).Error
	return goals, err
}

// ListIncomesForSync returns active income streams for the reconciliation
// pass.
func (r *FinanceRepo) ListIncomesForSync(ctx context.Context) ([]models.RecurringIncome, error) {
	var incomes []models.RecurringIncome
	err := r.DB(ctx).
		Where("active = ?", true).
		Order("next_occurrence ASC").
		Find(&incomes).Error
	return incomes, err
}

// CountRemindersEnabled tallies finance entities with reminders switched on,
// used by the recovery health check.
func (r *FinanceRepo) CountRemindersEnabled(ctx context.Context) (int64, error) {
	var total int64
	for _, model := range []any{
		&models.Bill{}, &models.Debt{}, &models.LendingRecord{},
		&models.Budget{}, &models.SavingsGoal{}, &models.RecurringIncome{},
	} {
		var count int64
		if err := r.DB(ctx).Model(model).Where("reminder_enabled = ?", true).Count(&count).Error; err != nil {
			return 0, err
		}
		total += count
	}
	return total, nil
}

// FindEntityDue resolves the due date and open/closed state for any finance
// entity id. Open means the record can still remind (unpaid bill, unsettled
// debt, unrepaid lending, unachieved goal); budgets and incomes are always
// open while present.
func (r *FinanceRepo) FindEntityDue(ctx context.Context, id string) (due *time.Time, open bool, found bool, err error) {
	if bill, ok, err := r.FindBill(ctx, id); err != nil {
		return nil, false, false, err
	} else if ok {
		return bill.NextDueDate, !bill.Paid, true, nil
	}

	var debt models.Debt
	if err := r.DB(ctx).Where("id = ?", id).First(&debt).Error; err == nil {
		return debt.DueDate, !debt.Settled, true, nil
	} else if err != gorm.ErrRecordNotFound {
		return nil, false, false, err
	}

	var lending models.LendingRecord
	if err := r.DB(ctx).Where("id = ?", id).First(&lending).Error; err == nil {
		return lending.DueDate, !lending.Repaid, true, nil
	} else if err != gorm.ErrRecordNotFound {
		return nil, false, false, err
	}

	var budget models.Budget
	if err := r.DB(ctx).Where("id = ?", id).First(&budget).Error; err == nil {
		return budget.PeriodEnd, true, true, nil
	} else if err != gorm.ErrRecordNotFound {
		return nil, false, false, err
	}

	var goal models.SavingsGoal
	if err := r.DB(ctx).Where("id = ?", id).First(&goal).Error; err == nil {
		return goal.TargetDate, !goal.Achieved, true, nil
	} else if err != gorm.ErrRecordNotFound {
		return nil, false, false, err
	}

	var income models.RecurringIncome
	if err := r.DB(ctx).Where("id = ?", id).First(&income).Error; err == nil {
		return income.NextOccurrence, income.Active, true, nil
	} else if err != gorm.ErrRecordNotFound {
		return nil, false, false, err
	}

	return nil, false, false, nil
}

// EntityExists reports whether any finance table still holds the id. Used by
// the orphan alarm sweep.
func (r *FinanceRepo) EntityExists(ctx context.Context, id string) (bool, error) {
	for _, model := range []any{
		&models.Bill{}, &models.Debt{}, &models.LendingRecord{},
		&models.Budget{}, &models.SavingsGoal{}, &models.RecurringIncome{},
	} {
		var count int64
		if err := r.DB(ctx).Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
			return false, err
		}
		if count > 0 {
			return true, nil
		}
	}
	return false, nil
}

// MarkBillPaid flips a bill to paid; returns found=false when absent.
func (r *FinanceRepo) MarkBillPaid(ctx context.Context, id string) (bool, error) {
	result := r.DB(ctx).Model(&models.Bill{}).Where("id = ?", id).Update("paid", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
