package enums

import (
	"fmt"
	"time"
)

// ReminderType positions a reminder relative to an entity's due date.
type ReminderType string

const (
	ReminderBefore   ReminderType = "before"
	ReminderOnDue    ReminderType = "on_due"
	ReminderAfterDue ReminderType = "after_due"
)

var validReminderTypes = []ReminderType{
	ReminderBefore,
	ReminderOnDue,
	ReminderAfterDue,
}

// IsValid checks whether the given reminder type matches the canonical enum.
func (r ReminderType) IsValid() bool {
	for _, candidate := range validReminderTypes {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReminderType converts raw strings into ReminderType.
func ParseReminderType(value string) (ReminderType, error) {
	for _, candidate := range validReminderTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reminder type %q", value)
}

// TimeUnit scales a reminder offset value.
type TimeUnit string

const (
	UnitMinutes TimeUnit = "minutes"
	UnitHours   TimeUnit = "hours"
	UnitDays    TimeUnit = "days"
	UnitWeeks   TimeUnit = "weeks"
)

var validTimeUnits = []TimeUnit{
	UnitMinutes,
	UnitHours,
	UnitDays,
	UnitWeeks,
}

// Duration converts value units into a time.Duration.
func (u TimeUnit) Duration(value int) time.Duration {
	switch u {
	case UnitMinutes:
		return time.Duration(value) * time.Minute
	case UnitHours:
		return time.Duration(value) * time.Hour
	case UnitDays:
		return time.Duration(value) * 24 * time.Hour
	case UnitWeeks:
		return time.Duration(value) * 7 * 24 * time.Hour
	}
	return 0
}

// IsValid checks whether the given unit matches the canonical enum.
func (u TimeUnit) IsValid() bool {
	for _, candidate := range validTimeUnits {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseTimeUnit converts raw strings into TimeUnit.
func ParseTimeUnit(value string) (TimeUnit, error) {
	for _, candidate := range validTimeUnits {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid time unit %q", value)
}
