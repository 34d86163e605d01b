package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/daybreak-labs/daybreak-backend/pkg/db/models"
	"github.com/daybreak-labs/daybreak-backend/pkg/instance"
)

const defaultLockTTL = 10 * time.Minute

// Lock coordinates exclusive recovery runs between processes sharing the
// datastore (foreground app and headless background worker).
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// LeaseLock implements Lock with a single-row lease in sqlite. A lease held
// past its TTL is considered abandoned and can be taken over, so a crashed
// worker never wedges recovery permanently.
type LeaseLock struct {
	db    *gorm.DB
	name  string
	ttl   time.Duration
	owner string
	now   func() time.Time
}

// NewLeaseLock constructs a lease lock for the named resource.
func NewLeaseLock(db *gorm.DB, name string, ttl time.Duration) (*LeaseLock, error) {
	if db == nil {
		return nil, errors.New("db required for lock")
	}
	if name == "" {
		return nil, errors.New("lock name is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &LeaseLock{
		db:    db,
		name:  name,
		ttl:   ttl,
		owner: instance.GetID(),
		now:   time.Now,
	}, nil
}

// Acquire takes the lease if it is free, expired, or already ours.
func (l *LeaseLock) Acquire(ctx context.Context) (bool, error) {
	now := l.now().UTC()
	acquired := false
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lease models.WorkerLease
		err := tx.Where("name = ?", l.name).First(&lease).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			lease = models.WorkerLease{Name: l.name, Owner: l.owner, ExpiresAt: now.Add(l.ttl)}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				UpdateAll: true,
			}).Create(&lease).Error; err != nil {
				return err
			}
			acquired = true
			return nil
		case err != nil:
			return err
		}

		if lease.Owner != l.owner && lease.ExpiresAt.After(now) {
			return nil
		}
		lease.Owner = l.owner
		lease.ExpiresAt = now.Add(l.ttl)
		if err := tx.Save(&lease).Error; err != nil {
			return err
		}
		acquired = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("acquire lease: %w", err)
	}
	return acquired, nil
}

// Release frees the lease only if we still own it.
func (l *LeaseLock) Release(ctx context.Context) error {
	err := l.db.WithContext(ctx).
		Where("name = ? AND owner = ?", l.name, l.owner).
		Delete(&models.WorkerLease{}).Error
	if err != nil {
		return fmt.Errorf("release lease: %w", err)
	}
	return nil
}
