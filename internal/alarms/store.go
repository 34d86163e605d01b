package alarms

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/daybreak-labs/daybreak-backend/internal/repo"
	"github.com/daybreak-labs/daybreak-backend/pkg/db/models"
)

// Store is the embedded Scheduler implementation: alarms live in a sqlite
// table and a dispatcher loop fires the due ones. Single-device deployments
// have no platform alarm manager to defer to, so the table is the source of
// truth for "pending".
type Store struct {
	repo.Base
}

// NewStore constructs the sqlite-backed alarm scheduler.
func NewStore(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	return &Store{Base: repo.NewBase(db)}, nil
}

// Schedule upserts the alarm row keyed by its derived id.
func (s *Store) Schedule(ctx context.Context, req Request) error {
	if req.ID <= 0 {
		return fmt.Errorf("alarm id must be positive, got %d", req.ID)
	}
	if req.FireAt.IsZero() {
		return fmt.Errorf("alarm fire time required")
	}
	row := models.ScheduledAlarm{
		ID:       req.ID,
		EntityID: req.EntityID,
		Title:    req.Title,
		Body:     req.Body,
		Payload:  req.Payload,
		FireAt:   req.FireAt.UTC(),
		Exact:    req.Exact,
		Channel:  req.Channel,
	}
	return s.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&row).Error
}

// Cancel removes the alarm row and reports whether one existed; cancelling
// an unknown id is a no-op.
func (s *Store) Cancel(ctx context.Context, id int) (bool, error) {
	result := s.DB(ctx).Delete(&models.ScheduledAlarm{}, "id = ?", id)
	return result.RowsAffected > 0, result.Error
}

// ListPending returns every scheduled alarm, soonest first.
func (s *Store) ListPending(ctx context.Context) ([]Pending, error) {
	var rows []models.ScheduledAlarm
	if err := s.DB(ctx).Order("fire_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	pending := make([]Pending, 0, len(rows))
	for _, row := range rows {
		pending = append(pending, Pending{
			ID:       row.ID,
			EntityID: row.EntityID,
			Title:    row.Title,
			Body:     row.Body,
			Payload:  row.Payload,
			FireAt:   row.FireAt,
			Exact:    row.Exact,
			Channel:  row.Channel,
		})
	}
	return pending, nil
}

// TakeDue atomically removes and returns alarms due at or before the cutoff.
// The dispatcher owns delivery bookkeeping for whatever comes back.
func (s *Store) TakeDue(ctx context.Context, cutoff time.Time) ([]Pending, error) {
	var due []Pending
	err := s.DB(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []models.ScheduledAlarm
		if err := tx.Where("fire_at <= ?", cutoff.UTC()).Order("fire_at ASC").Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		ids := make([]int, 0, len(rows))
		for _, row := range rows {
			ids = append(ids, row.ID)
			due = append(due, Pending{
				ID:       row.ID,
				EntityID: row.EntityID,
				Title:    row.Title,
				Body:     row.Body,
				Payload:  row.Payload,
				FireAt:   row.FireAt,
				Exact:    row.Exact,
				Channel:  row.Channel,
			})
		}
		return tx.Delete(&models.ScheduledAlarm{}, "id IN ?", ids).Error
	})
	return due, err
}
