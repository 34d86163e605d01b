package enums

import "fmt"

// Module identifies one Daybreak feature area. Each module owns a disjoint
// notification-id range and its own policy flags.
type Module string

const (
	ModuleTask     Module = "task"
	ModuleHabit    Module = "habit"
	ModuleFinance  Module = "finance"
	ModuleSleep    Module = "sleep"
	ModuleMood     Module = "mood"
	ModuleBehavior Module = "behavior"
)

var validModules = []Module{
	ModuleTask,
	ModuleHabit,
	ModuleFinance,
	ModuleSleep,
	ModuleMood,
	ModuleBehavior,
}

// Modules returns every known module in range order.
func Modules() []Module {
	out := make([]Module, len(validModules))
	copy(out, validModules)
	return out
}

// IsValid checks whether the given module matches the canonical enum.
func (m Module) IsValid() bool {
	for _, candidate := range validModules {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseModule converts raw strings into Module.
func ParseModule(value string) (Module, error) {
	for _, candidate := range validModules {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid module %q", value)
}
