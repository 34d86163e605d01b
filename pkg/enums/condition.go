package enums

import "fmt"

// Condition gates whether a reminder rule is eligible on a given pass.
type Condition string

const (
	ConditionAlways    Condition = "always"
	ConditionOnce      Condition = "once"
	ConditionIfUnpaid  Condition = "if_unpaid"
	ConditionIfOverdue Condition = "if_overdue"
)

var validConditions = []Condition{
	ConditionAlways,
	ConditionOnce,
	ConditionIfUnpaid,
	ConditionIfOverdue,
}

// IsValid checks whether the given condition matches the canonical enum.
func (c Condition) IsValid() bool {
	for _, candidate := range validConditions {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCondition converts raw strings into Condition.
func ParseCondition(value string) (Condition, error) {
	for _, candidate := range validConditions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid condition %q", value)
}
