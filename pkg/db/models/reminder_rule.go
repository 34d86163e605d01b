package models

import "github.com/daybreak-labs/daybreak-backend/pkg/enums"

// ReminderRule is the per-entity reminder configuration embedded on finance
// and task records.
type ReminderRule struct {
	Enabled   bool               `gorm:"not null;default:false"`
	Type      enums.ReminderType `gorm:"type:text"`
	Value     int                `gorm:"not null;default:0"`
	Unit      enums.TimeUnit     `gorm:"type:text"`
	Condition enums.Condition    `gorm:"type:text"`
	Hour      int                `gorm:"not null;default:9"`
	Minute    int                `gorm:"not null;default:0"`
}
