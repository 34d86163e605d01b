package domain

import (
	"context"

	"gorm.io/gorm"

	"github.com/daybreak-labs/daybreak-backend/internal/repo"
	"github.com/daybreak-labs/daybreak-backend/pkg/db/models"
)

// TaskRepo reads tasks that carry reminder configuration.
type TaskRepo struct {
	repo.Base
}

// NewTaskRepo constructs the task read repository.
func NewTaskRepo(db *gorm.DB) *TaskRepo {
	return &TaskRepo{Base: repo.NewBase(db)}
}

// ListActiveWithReminders returns incomplete, dated tasks with reminders on,
// soonest-due first. A positive limit caps the result for bounded resyncs.
func (r *TaskRepo) ListActiveWithReminders(ctx context.Context, limit int) ([]models.Task, error) {
	query := r.DB(ctx).
		Where("completed = ? AND reminder_enabled = ? AND due_date IS NOT NULL", false, true).
		Order("due_date ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var tasks []models.Task
	err := query.Find(&tasks).Error
	return tasks, err
}

// CountActiveWithReminders tallies reminder-bearing tasks for the health
// check and cap bookkeeping.
func (r *TaskRepo) CountActiveWithReminders(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Task{}).
		Where("completed = ? AND reminder_enabled = ? AND due_date IS NOT NULL", false, true).
		Count(&count).Error
	return count, err
}

// FindByID loads one task; found=false when absent.
func (r *TaskRepo) FindByID(ctx context.Context, id string) (models.Task, bool, error) {
	var task models.Task
	err := r.DB(ctx).Where("id = ?", id).First(&task).Error
	if err == gorm.ErrRecordNotFound {
		return models.Task{}, false, nil
	}
	return task, err == nil, err
}

// EntityExists reports whether the task id is still present.
func (r *TaskRepo) EntityExists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Task{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// MarkCompleted flips a task to completed; returns found=false when absent.
func (r *TaskRepo) MarkCompleted(ctx context.Context, id string) (bool, error) {
	result := r.DB(ctx).Model(&models.Task{}).Where("id = ?", id).Update("completed", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
