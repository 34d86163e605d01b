package enums

import "fmt"

// EventType classifies activity-log entries.
type EventType string

const (
	EventScheduled EventType = "scheduled"
	EventDelivered EventType = "delivered"
	EventTapped    EventType = "tapped"
	EventAction    EventType = "action"
	EventSnoozed   EventType = "snoozed"
	EventCancelled EventType = "cancelled"
	EventFailed    EventType = "failed"
	EventMissed    EventType = "missed"

	// EventRecoverySummary records the outcome of one full recovery pass.
	EventRecoverySummary EventType = "recovery_summary"
)

var validEventTypes = []EventType{
	EventScheduled,
	EventDelivered,
	EventTapped,
	EventAction,
	EventSnoozed,
	EventCancelled,
	EventFailed,
	EventMissed,
	EventRecoverySummary,
}

// ConsumesOnce reports whether this event is terminal for a once-condition
// reminder. Scheduled counts as consumed: delivery is not reliably observable
// on every platform, and treating it as non-terminal would make once-reminders
// re-fire on every reconciliation pass.
func (e EventType) ConsumesOnce() bool {
	switch e {
	case EventScheduled, EventDelivered, EventTapped, EventAction, EventMissed:
		return true
	case EventSnoozed, EventCancelled, EventFailed, EventRecoverySummary:
		return false
	}
	return false
}

// IsValid checks whether the given event matches the canonical enum.
func (e EventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEventType converts raw strings into EventType.
func ParseEventType(value string) (EventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
