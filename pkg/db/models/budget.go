package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Budget is a spending envelope with a period end that can remind before
// rollover.
type Budget struct {
	ID        uuid.UUID       `gorm:"type:text;primaryKey"`
	Name      string          `gorm:"type:text;not null"`
	Limit     decimal.Decimal `gorm:"type:numeric;not null;column:limit_amount"`
	Spent     decimal.Decimal `gorm:"type:numeric;not null"`
	PeriodEnd *time.Time      `gorm:"index"`
	Reminder  ReminderRule    `gorm:"embedded;embeddedPrefix:reminder_"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Budget) TableName() string { return "budgets" }
