package policy

import (
	"context"
	"fmt"

	"github.com/daybreak-labs/daybreak-backend/internal/settings"
	"github.com/daybreak-labs/daybreak-backend/pkg/enums"
	"github.com/daybreak-labs/daybreak-backend/pkg/logger"
)

// Decision is the outcome of a gate evaluation. Reason explains a disabled
// decision to the activity log and dashboard.
type Decision struct {
	Module  enums.Module       `json:"module"`
	Enabled bool               `json:"enabled"`
	Reason  enums.PolicyReason `json:"reason"`
}

// Gate decides whether a module may schedule notifications. It reads the
// module's enable flags and FAILS OPEN: any read error yields enabled=true
// with reason policy_error, because a missed reminder costs the user more
// than a redundant one.
type Gate struct {
	settings *settings.Service
	logg     *logger.Logger
}

// NewGate wires gate dependencies.
func NewGate(svc *settings.Service, logg *logger.Logger) (*Gate, error) {
	if svc == nil {
		return nil, fmt.Errorf("settings service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Gate{settings: svc, logg: logg}, nil
}

// Evaluate returns the scheduling decision for a module.
func (g *Gate) Evaluate(ctx context.Context, module enums.Module) Decision {
	moduleOn, err := g.settings.ModuleEnabled(ctx, module)
	if err != nil {
		g.logg.Warn(ctx, fmt.Sprintf("policy read failed for %s, failing open: %v", module, err))
		return Decision{Module: module, Enabled: true, Reason: enums.PolicyError}
	}
	if !moduleOn {
		return Decision{Module: module, Enabled: false, Reason: enums.PolicyModuleDisabled}
	}

	notifyOn, err := g.settings.ModuleNotificationsEnabled(ctx, module)
	if err != nil {
		g.logg.Warn(ctx, fmt.Sprintf("policy read failed for %s, failing open: %v", module, err))
		return Decision{Module: module, Enabled: true, Reason: enums.PolicyError}
	}
	if !notifyOn {
		return Decision{Module: module, Enabled: false, Reason: enums.PolicyNotificationsDisabled}
	}

	return Decision{Module: module, Enabled: true, Reason: enums.PolicyEnabled}
}

// IsSchedulingEnabled is the boolean shorthand used by schedulers.
func (g *Gate) IsSchedulingEnabled(ctx context.Context, module enums.Module) bool {
	return g.Evaluate(ctx, module).Enabled
}
