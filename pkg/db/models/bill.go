package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bill is a recurring payable tracked by the finance module.
type Bill struct {
	ID          uuid.UUID       `gorm:"type:text;primaryKey"`
	Name        string          `gorm:"type:text;not null"`
	Amount      decimal.Decimal `gorm:"type:numeric;not null"`
	NextDueDate *time.Time      `gorm:"index"`
	Paid        bool            `gorm:"not null;default:false"`
	Reminder    ReminderRule    `gorm:"embedded;embeddedPrefix:reminder_"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Bill) TableName() string { return "bills" }
