package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Debt is money owed by the user, with an optional settle-by date.
type Debt struct {
	ID        uuid.UUID       `gorm:"type:text;primaryKey"`
	Name      string          `gorm:"type:text;not null"`
	Amount    decimal.Decimal `gorm:"type:numeric;not null"`
	DueDate   *time.Time      `gorm:"index"`
	Settled   bool            `gorm:"not null;default:false"`
	Reminder  ReminderRule    `gorm:"embedded;embeddedPrefix:reminder_"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Debt) TableName() string { return "debts" }
