package definitions

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/daybreak-labs/daybreak-backend/pkg/enums"
	pkgerrors "github.com/daybreak-labs/daybreak-backend/pkg/errors"
	"github.com/daybreak-labs/daybreak-backend/pkg/logger"
)

// Resyncer receives change notifications so the owning scheduler can converge
// the OS alarm set for a single definition without a full sync.
type Resyncer interface {
	SyncDefinition(ctx context.Context, def Definition) error
	CancelDefinition(ctx context.Context, def Definition) error
}

// DefinitionInput is the user-supplied shape for create/update.
type DefinitionInput struct {
	Module        string   `json:"module" validate:"required"`
	Section       string   `json:"section"`
	EntityID      string   `json:"entityId" validate:"required"`
	EntityName    string   `json:"entityName"`
	Title         string   `json:"title" validate:"required"`
	Body          string   `json:"body"`
	ReminderType  string   `json:"reminderType" validate:"required"`
	ReminderValue int      `json:"reminderValue" validate:"gte=0"`
	ReminderUnit  string   `json:"reminderUnit" validate:"required"`
	FireHour      int      `json:"fireHour" validate:"gte=0,lte=23"`
	FireMinute    int      `json:"fireMinute" validate:"gte=0,lte=59"`
	Enabled       bool     `json:"enabled"`
	Condition     string   `json:"condition"`
	Actions       []Action `json:"actions"`
	Icon          string   `json:"icon"`
	Color         string   `json:"color"`
}

// ServiceParams groups dependencies for the definition service.
type ServiceParams struct {
	Repo     *Repo
	Resyncer Resyncer
	Logger   *logger.Logger
}

// Service exposes definition lifecycle operations. Every mutation triggers a
// targeted resync so the OS alarm set tracks the stored rules.
type Service interface {
	Create(ctx context.Context, input DefinitionInput) (Definition, error)
	Update(ctx context.Context, id string, input DefinitionInput) (Definition, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (Definition, error)
	List(ctx context.Context) ([]Definition, error)
	DeleteForEntity(ctx context.Context, entityID string) (int, error)
}

type service struct {
	repo     *Repo
	resyncer Resyncer
	logg     *logger.Logger
	validate *validator.Validate
	now      func() time.Time
}

// NewService builds a definition service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "definition repo is required")
	}
	if params.Resyncer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "resyncer is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &service{
		repo:     params.Repo,
		resyncer: params.Resyncer,
		logg:     params.Logger,
		validate: validator.New(),
		now:      time.Now,
	}, nil
}

func (s *service) fromInput(input DefinitionInput) (Definition, error) {
	if err := s.validate.Struct(input); err != nil {
		return Definition{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid definition").WithDetails(err.Error())
	}

	module, err := enums.ParseModule(input.Module)
	if err != nil {
		return Definition{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid module")
	}
	rtype, err := enums.ParseReminderType(input.ReminderType)
	if err != nil {
		return Definition{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid reminder type")
	}
	runit, err := enums.ParseTimeUnit(input.ReminderUnit)
	if err != nil {
		return Definition{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid reminder unit")
	}

	condition := enums.ConditionAlways
	if input.Condition != "" {
		condition, err = enums.ParseCondition(input.Condition)
		if err != nil {
			return Definition{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid condition")
		}
	}

	var section enums.Section
	if input.Section != "" {
		section, err = enums.ParseSection(input.Section)
		if err != nil {
			return Definition{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid section")
		}
	}

	return Definition{
		Module:        module,
		Section:       section,
		EntityID:      input.EntityID,
		EntityName:    input.EntityName,
		Title:         input.Title,
		Body:          input.Body,
		ReminderType:  rtype,
		ReminderValue: input.ReminderValue,
		ReminderUnit:  runit,
		FireHour:      input.FireHour,
		FireMinute:    input.FireMinute,
		Enabled:       input.Enabled,
		Condition:     condition,
		Actions:       input.Actions,
		Icon:          input.Icon,
		Color:         input.Color,
	}, nil
}

// Create validates, persists, and resyncs a new definition.
func (s *service) Create(ctx context.Context, input DefinitionInput) (Definition, error) {
	def, err := s.fromInput(input)
	if err != nil {
		return Definition{}, err
	}
	def.ID = NewID()
	def.CreatedAt = s.now().UTC()

	if err := s.repo.Put(ctx, def); err != nil {
		return Definition{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist definition")
	}
	s.resync(ctx, def)
	return def, nil
}

// Update replaces a definition's rule fields, keeping id and createdAt.
func (s *service) Update(ctx context.Context, id string, input DefinitionInput) (Definition, error) {
	existing, found, err := s.repo.Get(ctx, id)
	if err != nil {
		return Definition{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load definition")
	}
	if !found {
		return Definition{}, pkgerrors.New(pkgerrors.CodeNotFound, "definition not found")
	}

	def, err := s.fromInput(input)
	if err != nil {
		return Definition{}, err
	}
	def.ID = existing.ID
	def.CreatedAt = existing.CreatedAt

	if err := s.repo.Put(ctx, def); err != nil {
		return Definition{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist definition")
	}

	// The reminder config may have changed the derived alarm id; cancel the
	// old derivation before converging on the new one.
	if existing.ReminderType != def.ReminderType ||
		existing.ReminderValue != def.ReminderValue ||
		existing.ReminderUnit != def.ReminderUnit {
		s.cancel(ctx, existing)
	}
	s.resync(ctx, def)
	return def, nil
}

// Delete removes a definition and cancels its alarm.
func (s *service) Delete(ctx context.Context, id string) error {
	existing, found, err := s.repo.Get(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load definition")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "definition not found")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete definition")
	}
	s.cancel(ctx, existing)
	return nil
}

// DeleteForEntity removes every definition attached to a deleted entity and
// cancels their alarms. Returns the number removed.
func (s *service) DeleteForEntity(ctx context.Context, entityID string) (int, error) {
	defs, err := s.repo.ListForEntity(ctx, entityID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list definitions for entity")
	}
	for _, def := range defs {
		if err := s.repo.Delete(ctx, def.ID); err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete definition")
		}
		s.cancel(ctx, def)
	}
	return len(defs), nil
}

// Get loads one definition.
func (s *service) Get(ctx context.Context, id string) (Definition, error) {
	def, found, err := s.repo.Get(ctx, id)
	if err != nil {
		return Definition{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load definition")
	}
	if !found {
		return Definition{}, pkgerrors.New(pkgerrors.CodeNotFound, "definition not found")
	}
	return def, nil
}

// List returns every stored definition.
func (s *service) List(ctx context.Context) ([]Definition, error) {
	defs, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list definitions")
	}
	return defs, nil
}

// resync and cancel are best-effort: a scheduling hiccup must not fail the
// storage mutation that already happened.
func (s *service) resync(ctx context.Context, def Definition) {
	if err := s.resyncer.SyncDefinition(ctx, def); err != nil {
		s.logg.Warn(s.logg.WithEntity(ctx, def.EntityID), "definition resync failed: "+err.Error())
	}
}

func (s *service) cancel(ctx context.Context, def Definition) {
	if err := s.resyncer.CancelDefinition(ctx, def); err != nil {
		s.logg.Warn(s.logg.WithEntity(ctx, def.EntityID), "definition cancel failed: "+err.Error())
	}
}
