package models

import "time"

// Alert rule types evaluated by the alert service.
const (
	AlertRuleAtRiskRise     = "at_risk_rise"
	AlertRuleRunwayCritical = "runway_critical"
	AlertRuleVoteClosing    = "vote_closing"
)

// Alert is one fired alert instance delivered to notification channels.
type Alert struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	RuleType    string                 `json:"rule_type"`
	Severity    string                 `json:"severity"`
	Context     map[string]interface{} `json:"context,omitempty"`
	FiredAt     time.Time              `json:"fired_at"`
}
