package models

import "time"

// KVEntry backs the typed collection store: one row per (collection, key),
// value serialized as JSON.
type KVEntry struct {
	Collection string    `gorm:"type:text;primaryKey"`
	Key        string    `gorm:"type:text;primaryKey"`
	Value      []byte    `gorm:"type:blob;not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// TableName keeps the table name stable regardless of gorm pluralization.
func (KVEntry) TableName() string { return "kv_entries" }
