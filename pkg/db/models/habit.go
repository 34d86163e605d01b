package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Habit is a recurring practice scheduled on specific weekdays.
type Habit struct {
	ID              uuid.UUID    `gorm:"type:text;primaryKey"`
	Name            string       `gorm:"type:text;not null"`
	Weekdays        string       `gorm:"type:text;not null"` // csv: mon,tue,...
	Archived        bool         `gorm:"not null;default:false"`
	Reminder        ReminderRule `gorm:"embedded;embeddedPrefix:reminder_"`
	LastCompletedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (Habit) TableName() string { return "habits" }

var weekdayAbbrev = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// ActiveWeekdays parses the csv weekday list. Unknown tokens are ignored.
func (h Habit) ActiveWeekdays() map[time.Weekday]bool {
	out := make(map[time.Weekday]bool)
	for _, token := range strings.Split(h.Weekdays, ",") {
		if wd, ok := weekdayAbbrev[strings.TrimSpace(strings.ToLower(token))]; ok {
			out[wd] = true
		}
	}
	return out
}
