package payload

import (
	"sort"
	"strconv"
	"strings"

	"github.com/daybreak-labs/daybreak-backend/pkg/enums"
)

// Payload is the context attached to every scheduled notification, carried as
// an opaque pipe-delimited string so delivery/tap callbacks can reconstruct
// what fired. Wire format:
//
//	moduleId|entityId|reminderType|reminderValue|reminderUnit[|key:value...]
//
// Evolution is additive-only: unknown trailing extras survive a decode/encode
// round trip.
type Payload struct {
	Module        enums.Module
	EntityID      string
	ReminderType  enums.ReminderType
	ReminderValue int
	ReminderUnit  enums.TimeUnit
	Extras        map[string]string
}

const fieldSep = "|"

// Encode renders the payload wire string. Extras are sorted for stable output.
func Encode(p Payload) string {
	parts := []string{
		string(p.Module),
		p.EntityID,
		string(p.ReminderType),
		strconv.Itoa(p.ReminderValue),
		string(p.ReminderUnit),
	}
	if len(p.Extras) > 0 {
		keys := make([]string, 0, len(p.Extras))
		for k := range p.Extras {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts = append(parts, k+":"+p.Extras[k])
		}
	}
	return strings.Join(parts, fieldSep)
}

// Decode parses a payload wire string. It never fails loudly: malformed or
// truncated input returns nil, and callers treat nil as "unknown source" and
// fall back to range-based module inference.
func Decode(raw string) *Payload {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, fieldSep)
	if len(parts) < 5 {
		return nil
	}

	module, err := enums.ParseModule(parts[0])
	if err != nil {
		return nil
	}
	rtype, err := enums.ParseReminderType(parts[2])
	if err != nil {
		return nil
	}
	rvalue, err := strconv.Atoi(parts[3])
	if err != nil {
		return nil
	}
	runit, err := enums.ParseTimeUnit(parts[4])
	if err != nil {
		return nil
	}

	p := &Payload{
		Module:        module,
		EntityID:      parts[1],
		ReminderType:  rtype,
		ReminderValue: rvalue,
		ReminderUnit:  runit,
	}

	for _, extra := range parts[5:] {
		key, value, ok := strings.Cut(extra, ":")
		if !ok || key == "" {
			// Tolerate junk segments rather than rejecting the whole
			// payload; older encoders may have trailed separators.
			continue
		}
		if p.Extras == nil {
			p.Extras = make(map[string]string)
		}
		p.Extras[key] = value
	}
	return p
}
