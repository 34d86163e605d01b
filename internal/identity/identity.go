package identity

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/daybreak-labs/daybreak-backend/pkg/enums"
)

// Each module owns a disjoint, contiguous block of notification ids. The
// ranges must never overlap: source resolution falls back to range inference
// when a delivered notification carries no payload.
const rangeSize = 10000

var rangeStart = map[enums.Module]int{
	enums.ModuleTask:     100000,
	enums.ModuleHabit:    110000,
	enums.ModuleFinance:  120000,
	enums.ModuleSleep:    130000,
	enums.ModuleMood:     140000,
	enums.ModuleBehavior: 150000,
}

// Range returns the inclusive [start, end] id block reserved for a module.
func Range(module enums.Module) (int, int) {
	start, ok := rangeStart[module]
	if !ok {
		// Unknown modules share a quarantine block above all known ranges.
		return 900000, 900000 + rangeSize - 1
	}
	return start, start + rangeSize - 1
}

// Generate derives the stable notification id for a reminder rule. It is a
// pure function: the same five inputs always produce the same id, and the id
// always lies inside the module's reserved range.
func Generate(module enums.Module, entityID string, rtype enums.ReminderType, rvalue int, runit enums.TimeUnit) int {
	signature := strings.Join([]string{
		string(module),
		entityID,
		string(rtype),
		strconv.Itoa(rvalue),
		string(runit),
	}, "|")
	return idInRange(module, signature)
}

// Legacy derives the backward-compatible id from a definition's own string id.
// Older releases keyed OS alarms this way; resolution checks both paths.
func Legacy(module enums.Module, definitionID string) int {
	return idInRange(module, definitionID)
}

// ModuleFor infers the owning module from a bare notification id, for
// notifications delivered without a parseable payload. The boolean is false
// when the id lies outside every reserved range.
func ModuleFor(id int) (enums.Module, bool) {
	for _, module := range enums.Modules() {
		start, end := Range(module)
		if id >= start && id <= end {
			return module, true
		}
	}
	return "", false
}

// Validate reports whether the id falls inside its module's expected range.
// Callers log the returned message as a warning and keep the id: ranges may be
// resized between releases, and a diagnostic should never block scheduling.
func Validate(module enums.Module, id int) (bool, string) {
	start, end := Range(module)
	if id >= start && id <= end {
		return true, ""
	}
	return false, fmt.Sprintf("notification id %d outside %s range [%d, %d]", id, module, start, end)
}

func idInRange(module enums.Module, signature string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(signature))
	hashed := int(h.Sum32() & 0x7fffffff)
	start, _ := Range(module)
	return start + hashed%rangeSize
}
