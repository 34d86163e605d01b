package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LendingRecord is money the user lent out and expects back.
type LendingRecord struct {
	ID           uuid.UUID       `gorm:"type:text;primaryKey"`
	Counterparty string          `gorm:"type:text;not null"`
	Amount       decimal.Decimal `gorm:"type:numeric;not null"`
	DueDate      *time.Time      `gorm:"index"`
	Repaid       bool            `gorm:"not null;default:false"`
	Reminder     ReminderRule    `gorm:"embedded;embeddedPrefix:reminder_"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (LendingRecord) TableName() string { return "lending_records" }
