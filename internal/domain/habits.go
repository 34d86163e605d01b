package domain

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/daybreak-labs/daybreak-backend/internal/repo"
	"github.com/daybreak-labs/daybreak-backend/pkg/db/models"
)

// HabitRepo reads habits that carry reminder configuration.
type HabitRepo struct {
	repo.Base
}

// NewHabitRepo constructs the habit read repository.
func NewHabitRepo(db *gorm.DB) *HabitRepo {
	return &HabitRepo{Base: repo.NewBase(db)}
}

// ListActiveWithReminders returns unarchived habits with reminders on. A
// positive limit caps the result for bounded resyncs.
func (r *HabitRepo) ListActiveWithReminders(ctx context.Context, limit int) ([]models.Habit, error) {
	query := r.DB(ctx).
		Where("archived = ? AND reminder_enabled = ?", false, true).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var habits []models.Habit
	err := query.Find(&habits).Error
	return habits, err
}

// CountActiveWithReminders tallies reminder-bearing habits.
func (r *HabitRepo) CountActiveWithReminders(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Habit{}).
		Where("archived = ? AND reminder_enabled = ?", false, true).
		Count(&count).Error
	return count, err
}

// FindByID loads one habit; found=false when absent.
func (r *HabitRepo) FindByID(ctx context.Context, id string) (models.Habit, bool, error) {
	var habit models.Habit
	err := r.DB(ctx).Where("id = ?", id).First(&habit).Error
	if err == gorm.ErrRecordNotFound {
		return models.Habit{}, false, nil
	}
	return habit, err == nil, err
}

// EntityExists reports whether the habit id is still present.
func (r *HabitRepo) EntityExists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Habit{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// MarkCompleted stamps a habit's last completion; returns found=false when absent.
func (r *HabitRepo) MarkCompleted(ctx context.Context, id string, at time.Time) (bool, error) {
	result := r.DB(ctx).Model(&models.Habit{}).Where("id = ?", id).Update("last_completed_at", at)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
