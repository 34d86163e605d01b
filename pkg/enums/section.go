package enums

import "fmt"

// Section subdivides the finance module for budget triage. Order here is the
// triage priority order: earlier sections win when the alarm budget runs out.
type Section string

const (
	SectionBills    Section = "bills"
	SectionDebts    Section = "debts"
	SectionLending  Section = "lending"
	SectionBudgets  Section = "budgets"
	SectionSavings  Section = "savings"
	SectionIncome   Section = "income"
	SectionGeneral  Section = "general"
	SectionWindDown Section = "wind_down"
)

var financeSectionPriority = []Section{
	SectionBills,
	SectionDebts,
	SectionLending,
	SectionBudgets,
	SectionSavings,
	SectionIncome,
}

// FinanceSectionPriority returns finance sections from highest to lowest
// triage priority.
func FinanceSectionPriority() []Section {
	out := make([]Section, len(financeSectionPriority))
	copy(out, financeSectionPriority)
	return out
}

// TriageRank returns the section's position in the finance priority order.
// Unknown sections rank last.
func (s Section) TriageRank() int {
	for i, candidate := range financeSectionPriority {
		if candidate == s {
			return i
		}
	}
	return len(financeSectionPriority)
}

var validSections = []Section{
	SectionBills,
	SectionDebts,
	SectionLending,
	SectionBudgets,
	SectionSavings,
	SectionIncome,
	SectionGeneral,
	SectionWindDown,
}

// IsValid checks whether the given section matches the canonical enum.
func (s Section) IsValid() bool {
	for _, candidate := range validSections {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSection converts raw strings into Section.
func ParseSection(value string) (Section, error) {
	for _, candidate := range validSections {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid section %q", value)
}
