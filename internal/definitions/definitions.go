package definitions

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/daybreak-labs/daybreak-backend/pkg/enums"
	"github.com/daybreak-labs/daybreak-backend/pkg/kv"
)

// Collection is the kv collection holding user-authored reminder rules.
const Collection = "universal_notifications"

// Action is one tappable button on a delivered notification.
type Action struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Definition is a user-authored reminder rule attached to one entity. The
// scheduler only reads these; create/edit/delete happens through the Service.
type Definition struct {
	ID            string             `json:"id"`
	Module        enums.Module       `json:"module"`
	Section       enums.Section      `json:"section,omitempty"`
	EntityID      string             `json:"entityId"`
	EntityName    string             `json:"entityName"`
	Title         string             `json:"title"` // may contain {placeholder} variables
	Body          string             `json:"body"`
	ReminderType  enums.ReminderType `json:"reminderType"`
	ReminderValue int                `json:"reminderValue"`
	ReminderUnit  enums.TimeUnit     `json:"reminderUnit"`
	FireHour      int                `json:"fireHour"`
	FireMinute    int                `json:"fireMinute"`
	Enabled       bool               `json:"enabled"`
	Condition     enums.Condition    `json:"condition"`
	Actions       []Action           `json:"actions,omitempty"`
	Icon          string             `json:"icon,omitempty"`
	Color         string             `json:"color,omitempty"`
	CreatedAt     time.Time          `json:"createdAt"`
}

// Repo persists definitions in kv, one key per definition id.
type Repo struct {
	kv *kv.Store
}

// NewRepo wires the definition repository.
func NewRepo(store *kv.Store) (*Repo, error) {
	if store == nil {
		return nil, fmt.Errorf("kv store required")
	}
	return &Repo{kv: store}, nil
}

// Get loads one definition; found=false when absent.
func (r *Repo) Get(ctx context.Context, id string) (Definition, bool, error) {
	var def Definition
	found, err := r.kv.Get(ctx, Collection, id, &def)
	return def, found, err
}

// Put upserts a definition keyed by its id.
func (r *Repo) Put(ctx context.Context, def Definition) error {
	if def.ID == "" {
		return fmt.Errorf("definition id required")
	}
	return r.kv.Put(ctx, Collection, def.ID, def)
}

// Delete removes a definition; deleting an absent id is a no-op.
func (r *Repo) Delete(ctx context.Context, id string) error {
	return r.kv.Delete(ctx, Collection, id)
}

// List returns every definition, oldest-created first for stable iteration.
// Scan already carries the stored values, so decoding happens in place
// instead of one Get per key.
func (r *Repo) List(ctx context.Context) ([]Definition, error) {
	raw, err := r.kv.Scan(ctx, Collection)
	if err != nil {
		return nil, err
	}
	defs := make([]Definition, 0, len(raw))
	for id, value := range raw {
		var def Definition
		if err := json.Unmarshal(value, &def); err != nil {
			return nil, fmt.Errorf("decode definition %s: %w", id, err)
		}
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool {
		if defs[i].CreatedAt.Equal(defs[j].CreatedAt) {
			return defs[i].ID < defs[j].ID
		}
		return defs[i].CreatedAt.Before(defs[j].CreatedAt)
	})
	return defs, nil
}

// ListEnabled returns enabled definitions only.
func (r *Repo) ListEnabled(ctx context.Context) ([]Definition, error) {
	defs, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	enabled := defs[:0]
	for _, def := range defs {
		if def.Enabled {
			enabled = append(enabled, def)
		}
	}
	return enabled, nil
}

// ListForEntity returns every definition attached to one entity.
func (r *Repo) ListForEntity(ctx context.Context, entityID string) ([]Definition, error) {
	defs, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	matched := defs[:0]
	for _, def := range defs {
		if def.EntityID == entityID {
			matched = append(matched, def)
		}
	}
	return matched, nil
}

// NewID returns a fresh definition id.
func NewID() string {
	return uuid.NewString()
}
