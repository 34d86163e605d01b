package enums

// Priority drives OS channel choice and budget triage order.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Channel maps a priority tier onto its delivery channel name.
func (p Priority) Channel() string {
	switch p {
	case PriorityHigh:
		return "daybreak_urgent"
	case PriorityMedium:
		return "daybreak_reminders"
	case PriorityLow:
		return "daybreak_digest"
	}
	return "daybreak_reminders"
}
