package enums

// SkipReason records why a rule, entity, or whole stage was not scheduled
// during a sync or recovery pass.
type SkipReason string

const (
	SkipPolicyDisabled        SkipReason = "policy_disabled"
	SkipReminderDisabled      SkipReason = "reminder_disabled"
	SkipConditionUnmet        SkipReason = "condition_unmet"
	SkipOnceConsumed          SkipReason = "once_consumed"
	SkipBeyondHorizon         SkipReason = "beyond_horizon"
	SkipStale                 SkipReason = "stale"
	SkipSectionDisabled       SkipReason = "section_disabled"
	SkipNoDueDate             SkipReason = "no_due_date"
	SkipBudgetExhausted       SkipReason = "budget_exhausted"
	SkipResyncCap             SkipReason = "resync_cap"
	SkipLegacyResyncHeadless  SkipReason = "legacy_resync_skipped_headless"
	SkipFinancePolicyDisabled SkipReason = "finance_policy_disabled"
	SkipRecoveryFailed        SkipReason = "recovery_failed"
)
