package settings

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/daybreak-labs/daybreak-backend/pkg/enums"
	"github.com/daybreak-labs/daybreak-backend/pkg/kv"
)

// Collection is the kv collection holding every user-facing setting.
const Collection = "settings"

// Key layout. The refresher's change signature enumerates everything under
// these prefixes, so any setting that can affect scheduling must live here.
const (
	PrefixGlobal = "global."
	PrefixModule = "module."
	PrefixHabit  = "habit."

	KeyGlobalNotificationsEnabled = "global.notifications_enabled"
	KeyGlobalTimezone             = "global.timezone"

	KeySleepRemindersEnabled = "module.sleep.reminders_enabled"
	KeyWindDownEnabled       = "module.sleep.wind_down_enabled"
	KeySleepSchedule         = "module.sleep.schedule"
	KeyBehaviorSchedule      = "module.behavior.schedule"
	KeyMoodCheckinHour       = "module.mood.checkin_hour"
	KeyMoodCheckinMinute     = "module.mood.checkin_minute"
	KeyHabitRemindersEnabled = "habit.reminders_enabled"
)

// ModuleEnabledKey returns the enable flag key for a module.
func ModuleEnabledKey(module enums.Module) string {
	return PrefixModule + string(module) + ".enabled"
}

// ModuleNotificationsKey returns the notification flag key for a module.
func ModuleNotificationsKey(module enums.Module) string {
	return PrefixModule + string(module) + ".notifications_enabled"
}

// WeekdaySchedule is a recurring weekday/time-of-day plan used by the sleep
// and behavior modules.
type WeekdaySchedule struct {
	Days   []string `json:"days"` // mon,tue,...
	Hour   int      `json:"hour"`
	Minute int      `json:"minute"`
}

// Service reads and writes module settings on the kv capability. Reads return
// explicit errors; fail-open decisions belong to the policy gate, not here.
type Service struct {
	store *kv.Store
}

// NewService wires settings dependencies.
func NewService(store *kv.Store) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("kv store required")
	}
	return &Service{store: store}, nil
}

// Bool reads a boolean setting, returning def when the key is absent.
func (s *Service) Bool(ctx context.Context, key string, def bool) (bool, error) {
	var value bool
	found, err := s.store.Get(ctx, Collection, key, &value)
	if err != nil {
		return def, err
	}
	if !found {
		return def, nil
	}
	return value, nil
}

// Int reads an integer setting, returning def when the key is absent.
func (s *Service) Int(ctx context.Context, key string, def int) (int, error) {
	var value int
	found, err := s.store.Get(ctx, Collection, key, &value)
	if err != nil {
		return def, err
	}
	if !found {
		return def, nil
	}
	return value, nil
}

// SetBool writes a boolean setting.
func (s *Service) SetBool(ctx context.Context, key string, value bool) error {
	return s.store.Put(ctx, Collection, key, value)
}

// SetInt writes an integer setting.
func (s *Service) SetInt(ctx context.Context, key string, value int) error {
	return s.store.Put(ctx, Collection, key, value)
}

// ModuleEnabled reports whether the module itself is switched on. Absent
// settings default to enabled.
func (s *Service) ModuleEnabled(ctx context.Context, module enums.Module) (bool, error) {
	return s.Bool(ctx, ModuleEnabledKey(module), true)
}

// ModuleNotificationsEnabled reports whether the module may notify. Absent
// settings default to enabled.
func (s *Service) ModuleNotificationsEnabled(ctx context.Context, module enums.Module) (bool, error) {
	return s.Bool(ctx, ModuleNotificationsKey(module), true)
}

// Schedule reads a weekday schedule setting; nil when unset.
func (s *Service) Schedule(ctx context.Context, key string) (*WeekdaySchedule, error) {
	var schedule WeekdaySchedule
	found, err := s.store.Get(ctx, Collection, key, &schedule)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &schedule, nil
}

// SetSchedule writes a weekday schedule setting.
func (s *Service) SetSchedule(ctx context.Context, key string, schedule WeekdaySchedule) error {
	return s.store.Put(ctx, Collection, key, schedule)
}

// Snapshot serializes every notification-relevant setting into one canonical
// string: sorted "key=rawJSON" lines. The refresher hashes this to decide
// whether a recovery pass can be skipped.
func (s *Service) Snapshot(ctx context.Context) (string, error) {
	entries, err := s.store.Scan(ctx, Collection)
	if err != nil {
		return "", err
	}

	keys := make([]string, 0, len(entries))
	for key := range entries {
		if strings.HasPrefix(key, PrefixGlobal) ||
			strings.HasPrefix(key, PrefixModule) ||
			strings.HasPrefix(key, PrefixHabit) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		b.WriteString(key)
		b.WriteByte('=')
		b.Write(entries[key])
		b.WriteByte('\n')
	}
	return b.String(), nil
}
