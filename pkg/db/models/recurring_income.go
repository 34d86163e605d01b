package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IncomeFrequency is the recurrence cadence for income records.
type IncomeFrequency string

const (
	IncomeWeekly   IncomeFrequency = "weekly"
	IncomeBiweekly IncomeFrequency = "biweekly"
	IncomeMonthly  IncomeFrequency = "monthly"
)

// RecurringIncome is an expected income stream; reminders fire around each
// occurrence.
type RecurringIncome struct {
	ID             uuid.UUID       `gorm:"type:text;primaryKey"`
	SourceName     string          `gorm:"type:text;not null"`
	Amount         decimal.Decimal `gorm:"type:numeric;not null"`
	Frequency      IncomeFrequency `gorm:"type:text;not null"`
	NextOccurrence *time.Time      `gorm:"index"`
	Active         bool            `gorm:"not null;default:true"`
	Reminder       ReminderRule    `gorm:"embedded;embeddedPrefix:reminder_"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (RecurringIncome) TableName() string { return "recurring_incomes" }

// Advance returns the occurrence after the given one for this frequency.
func (r RecurringIncome) Advance(from time.Time) time.Time {
	switch r.Frequency {
	case IncomeWeekly:
		return from.AddDate(0, 0, 7)
	case IncomeBiweekly:
		return from.AddDate(0, 0, 14)
	case IncomeMonthly:
		return from.AddDate(0, 1, 0)
	}
	return from.AddDate(0, 1, 0)
}
