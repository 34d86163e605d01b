package models

import (
	"time"

	"github.com/google/uuid"
)

// Task is a to-do item with an optional due date and time-of-day.
type Task struct {
	ID        uuid.UUID    `gorm:"type:text;primaryKey"`
	Name      string       `gorm:"type:text;not null"`
	Notes     string       `gorm:"type:text"`
	DueDate   *time.Time   `gorm:"index"`
	DueHour   int          `gorm:"not null;default:9"`
	DueMinute int          `gorm:"not null;default:0"`
	Completed bool         `gorm:"not null;default:false"`
	Reminder  ReminderRule `gorm:"embedded;embeddedPrefix:reminder_"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Task) TableName() string { return "tasks" }

// DueAt combines the due date with the task's time-of-day.
func (t Task) DueAt() *time.Time {
	if t.DueDate == nil {
		return nil
	}
	d := *t.DueDate
	due := time.Date(d.Year(), d.Month(), d.Day(), t.DueHour, t.DueMinute, 0, 0, d.Location())
	return &due
}
