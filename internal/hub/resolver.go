package hub

import (
	"context"

	"github.com/daybreak-labs/daybreak-backend/internal/definitions"
	"github.com/daybreak-labs/daybreak-backend/internal/identity"
	pkgerrors "github.com/daybreak-labs/daybreak-backend/pkg/errors"
	"github.com/daybreak-labs/daybreak-backend/pkg/enums"
)

// Source identifies where a bare notification id came from.
type Source struct {
	Module   enums.Module  `json:"module"`
	Section  enums.Section `json:"section,omitempty"`
	EntityID string        `json:"entityId,omitempty"`
}

// SourceResolver recovers (module, section, entity) from a notification id
// delivered without a payload.
type SourceResolver struct {
	repo *definitions.Repo
}

// NewSourceResolver wires the resolver.
func NewSourceResolver(repo *definitions.Repo) (*SourceResolver, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "definition repo is required")
	}
	return &SourceResolver{repo: repo}, nil
}

// Resolve tests both identity derivations against every live definition, then
// falls back to range-based module inference. A nil result means
// "uncategorized", never an error condition for the caller.
func (r *SourceResolver) Resolve(ctx context.Context, notificationID int) (*Source, error) {
	defs, err := r.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, def := range defs {
		stable := identity.Generate(def.Module, def.EntityID, def.ReminderType, def.ReminderValue, def.ReminderUnit)
		legacy := identity.Legacy(def.Module, def.ID)
		if notificationID == stable || notificationID == legacy {
			return &Source{Module: def.Module, Section: def.Section, EntityID: def.EntityID}, nil
		}
	}
	if module, ok := identity.ModuleFor(notificationID); ok {
		return &Source{Module: module}, nil
	}
	return nil, nil
}
