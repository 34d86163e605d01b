package enums

// PolicyReason explains a module policy decision.
type PolicyReason string

const (
	PolicyEnabled               PolicyReason = "enabled"
	PolicyModuleDisabled        PolicyReason = "module_disabled"
	PolicyNotificationsDisabled PolicyReason = "module_notifications_disabled"

	// PolicyError means the settings read failed and the gate failed open.
	PolicyError PolicyReason = "policy_error"
)
