package models

import "time"

// WorkerLease coordinates exclusive recovery runs between the foreground
// process and a headless background worker sharing the same datastore.
type WorkerLease struct {
	Name      string    `gorm:"type:text;primaryKey"`
	Owner     string    `gorm:"type:text;not null"`
	ExpiresAt time.Time `gorm:"not null"`
}

func (WorkerLease) TableName() string { return "worker_leases" }
