package models

import (
	"encoding/json"
	"math"
	"time"
)

// Health / warning levels shared by runway and financial health.
const (
	HealthHealthy  = "healthy"
	HealthWarning  = "warning"
	HealthCritical = "critical"
)

// Change attribution categories.
const (
	ChangeVolumeSpike     = "volume_spike"
	ChangeNewParty        = "new_party"
	ChangeIntegrationRamp = "integration_ramp"
	ChangeOther           = "other"
)

// Days is a day count that may be unbounded (zero burn rate). Unbounded
// marshals as JSON null since JSON has no representation for infinity.
type Days float64

func (d Days) MarshalJSON() ([]byte, error) {
	if math.IsInf(float64(d), 1) {
		return []byte("null"), nil
	}
	return json.Marshal(float64(d))
}

func (d Days) IsUnlimited() bool {
	return math.IsInf(float64(d), 1)
}

// TrafficData is a validator's traffic-credit snapshot, CC-denominated.
type TrafficData struct {
	CurrentCredits   float64 `json:"current_credits"`
	DailyBurnRate    float64 `json:"daily_burn_rate"`
	AverageBurnPerMB float64 `json:"average_burn_per_mb"`
	TotalMBUsed      float64 `json:"total_mb_used"`
	TotalCCBurned    float64 `json:"total_cc_burned"`
}

type RewardsData struct {
	LivenessRewards float64 `json:"liveness_rewards"`
	ActivityRewards float64 `json:"activity_rewards"`
	TotalRewards    float64 `json:"total_rewards"`
	RewardsPerDay   float64 `json:"rewards_per_day"`
	RewardsPerRound float64 `json:"rewards_per_round"`
}

type InfrastructureCosts struct {
	Compute    float64 `json:"compute"`
	Storage    float64 `json:"storage"`
	Network    float64 `json:"network"`
	Monitoring float64 `json:"monitoring"`
	Total      float64 `json:"total"`
}

// ChangeAttribution is a dated, categorized explanation for a shift in
// financial metrics. Impact is signed, CC-denominated.
type ChangeAttribution struct {
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Impact      float64   `json:"impact"`
	Date        time.Time `json:"date"`
	Parties     []string  `json:"parties,omitempty"`
}

type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ValidatorFinOpsData is the sole input to the FinOps calculator; it is not
// mutated during a calculation pass.
type ValidatorFinOpsData struct {
	Traffic        TrafficData         `json:"traffic"`
	Rewards        RewardsData         `json:"rewards"`
	Infrastructure InfrastructureCosts `json:"infrastructure"`
	Period         Period              `json:"period"`
	Changes        []ChangeAttribution `json:"changes"`
}

type RunwayForecast struct {
	DaysRemaining     Days      `json:"days_remaining"`
	DateExhausted     time.Time `json:"date_exhausted"`
	CurrentBurnRate   float64   `json:"current_burn_rate"`
	ProjectedBurnRate float64   `json:"projected_burn_rate"`
	WarningLevel      string    `json:"warning_level"`
}

type NetMargin struct {
	TotalRevenue     float64 `json:"total_revenue"`
	TotalCosts       float64 `json:"total_costs"`
	NetMargin        float64 `json:"net_margin"`
	MarginPercentage float64 `json:"margin_percentage"`
	BreakEvenPoint   float64 `json:"break_even_point"` // daily rewards needed to cover costs
}

type Scenario struct {
	Name             string  `json:"name"` // "idle", "moderate", "heavy"
	Description      string  `json:"description"`
	DailyBurnRate    float64 `json:"daily_burn_rate"`
	DailyRewards     float64 `json:"daily_rewards"`
	MonthlyNetMargin float64 `json:"monthly_net_margin"`
	RunwayDays       Days    `json:"runway_days"`
}

type ChangeAnalysis struct {
	Summary        string              `json:"summary"`
	TopChanges     []ChangeAttribution `json:"top_changes"`
	ImpactAnalysis ImpactAnalysis      `json:"impact_analysis"`
}

type ImpactAnalysis struct {
	TotalImpact float64            `json:"total_impact"`
	ByType      map[string]float64 `json:"by_type"`
}

type FinancialHealth struct {
	Status          string   `json:"status"`
	Message         string   `json:"message"`
	Recommendations []string `json:"recommendations"`
}

// ValidatorRewards is the per-validator reward rollup for a period.
type ValidatorRewards struct {
	ValidatorID     string  `json:"validator_id"`
	LivenessRewards float64 `json:"liveness_rewards"`
	ActivityRewards float64 `json:"activity_rewards"`
	TotalRewards    float64 `json:"total_rewards"`
	PeriodStart     string  `json:"period_start"`
	PeriodEnd       string  `json:"period_end"`
	Rounds          int     `json:"rounds"`
}

// ValidatorTraffic is the per-validator traffic-credit state.
type ValidatorTraffic struct {
	ValidatorID      string  `json:"validator_id"`
	CurrentCredits   float64 `json:"current_credits"`
	DailyBurnRate    float64 `json:"daily_burn_rate"`
	TotalBurned      float64 `json:"total_burned"`
	TotalPurchased   float64 `json:"total_purchased"`
	AverageBurnPerMB float64 `json:"average_burn_per_mb"`
	LastUpdated      string  `json:"last_updated"`
}
