package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/daybreak-labs/daybreak-backend/pkg/db/models"
)

// Store is the typed collection capability over the embedded datastore:
// get/put/delete/scan by collection name, values serialized as JSON.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStore binds a Store to the provided GORM connection.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Get unmarshals the value under (collection, key) into out. The boolean
// reports presence; absent keys are not an error.
func (s *Store) Get(ctx context.Context, collection, key string, out any) (bool, error) {
	var entry models.KVEntry
	err := s.db.WithContext(ctx).
		Where("collection = ? AND key = ?", collection, key).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("kv get %s/%s: %w", collection, key, err)
	}
	if out == nil {
		return true, nil
	}
	if err := json.Unmarshal(entry.Value, out); err != nil {
		return false, fmt.Errorf("kv decode %s/%s: %w", collection, key, err)
	}
	return true, nil
}

// Put upserts the value under (collection, key).
func (s *Store) Put(ctx context.Context, collection, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kv encode %s/%s: %w", collection, key, err)
	}
	entry := models.KVEntry{
		Collection: collection,
		Key:        key,
		Value:      raw,
		UpdatedAt:  s.now().UTC(),
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&entry).Error
	if err != nil {
		return fmt.Errorf("kv put %s/%s: %w", collection, key, err)
	}
	return nil
}

// Delete removes (collection, key); deleting a missing key is a no-op.
func (s *Store) Delete(ctx context.Context, collection, key string) error {
	err := s.db.WithContext(ctx).
		Where("collection = ? AND key = ?", collection, key).
		Delete(&models.KVEntry{}).Error
	if err != nil {
		return fmt.Errorf("kv delete %s/%s: %w", collection, key, err)
	}
	return nil
}

// Keys lists the keys in a collection matching the prefix, sorted.
func (s *Store) Keys(ctx context.Context, collection, prefix string) ([]string, error) {
	var keys []string
	query := s.db.WithContext(ctx).
		Model(&models.KVEntry{}).
		Where("collection = ?", collection)
	if prefix != "" {
		query = query.Where("key LIKE ?", prefix+"%")
	}
	if err := query.Order("key ASC").Pluck("key", &keys).Error; err != nil {
		return nil, fmt.Errorf("kv keys %s: %w", collection, err)
	}
	return keys, nil
}

// Scan returns every raw value in a collection keyed by its key, sorted by key.
func (s *Store) Scan(ctx context.Context, collection string) (map[string]json.RawMessage, error) {
	var entries []models.KVEntry
	err := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("key ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("kv scan %s: %w", collection, err)
	}
	out := make(map[string]json.RawMessage, len(entries))
	for _, entry := range entries {
		out[entry.Key] = json.RawMessage(entry.Value)
	}
	return out, nil
}
