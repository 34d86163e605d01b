package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SavingsGoal is a target amount with an optional target date.
type SavingsGoal struct {
	ID         uuid.UUID       `gorm:"type:text;primaryKey"`
	Name       string          `gorm:"type:text;not null"`
	Target     decimal.Decimal `gorm:"type:numeric;not null"`
	Saved      decimal.Decimal `gorm:"type:numeric;not null"`
	TargetDate *time.Time      `gorm:"index"`
	Achieved   bool            `gorm:"not null;default:false"`
	Reminder   ReminderRule    `gorm:"embedded;embeddedPrefix:reminder_"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (SavingsGoal) TableName() string { return "savings_goals" }
