package models

import "time"

// ScheduledAlarm is one live OS-level alarm. The id is the deterministically
// derived notification id; scheduling the same id twice replaces the row.
type ScheduledAlarm struct {
	ID        int       `gorm:"primaryKey;autoIncrement:false"`
	EntityID  string    `gorm:"type:text;index"`
	Title     string    `gorm:"type:text;not null"`
	Body      string    `gorm:"type:text"`
	Payload   string    `gorm:"type:text"`
	FireAt    time.Time `gorm:"not null;index"`
	Exact     bool      `gorm:"not null;default:false"`
	Channel   string    `gorm:"type:text"`
	CreatedAt time.Time
}

func (ScheduledAlarm) TableName() string { return "scheduled_alarms" }
