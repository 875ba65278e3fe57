package services

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"cantonscan/models"
)

// Burn-rate multipliers applied when projecting near-term burn from recent
// change attributions.
var changeImpactMultipliers = map[string]float64{
	models.ChangeVolumeSpike:     1.5,
	models.ChangeNewParty:        1.2,
	models.ChangeIntegrationRamp: 1.3,
	models.ChangeOther:           1.1,
}

// FinOpsCalculator derives runway, margin, scenarios and health signals from
// one validator's financial snapshot. It never mutates its input; the now
// field exists so tests can pin time-relative calculations.
type FinOpsCalculator struct {
	data models.ValidatorFinOpsData
	now  func() time.Time
}

func NewFinOpsCalculator(data models.ValidatorFinOpsData) *FinOpsCalculator {
	return &FinOpsCalculator{data: data, now: time.Now}
}

// CalculateRunway forecasts when traffic credits run out at the current burn
// rate. A non-positive burn rate means unlimited runway; its exhaustion date
// is pinned a year out as a sentinel.
func (c *FinOpsCalculator) CalculateRunway() models.RunwayForecast {
	credits := c.data.Traffic.CurrentCredits
	burn := c.data.Traffic.DailyBurnRate

	if burn <= 0 {
		return models.RunwayForecast{
			DaysRemaining: models.Days(math.Inf(1)),
			DateExhausted: c.now().AddDate(0, 0, 365),
			WarningLevel:  models.HealthHealthy,
		}
	}

	daysRemaining := math.Floor(credits / burn)
	warningLevel := models.HealthHealthy
	switch {
	case daysRemaining < 7:
		warningLevel = models.HealthCritical
	case daysRemaining < 30:
		warningLevel = models.HealthWarning
	}

	return models.RunwayForecast{
		DaysRemaining:     models.Days(daysRemaining),
		DateExhausted:     c.now().AddDate(0, 0, int(daysRemaining)),
		CurrentBurnRate:   burn,
		ProjectedBurnRate: c.projectedBurnRate(),
		WarningLevel:      warningLevel,
	}
}

// projectedBurnRate adjusts the current burn rate by the average impact of
// changes recorded within the trailing seven days.
func (c *FinOpsCalculator) projectedBurnRate() float64 {
	burn := c.data.Traffic.DailyBurnRate
	now := c.now()

	var recent []models.ChangeAttribution
	for _, change := range c.data.Changes {
		if now.Sub(change.Date) <= 7*24*time.Hour {
			recent = append(recent, change)
		}
	}
	if len(recent) == 0 {
		return burn
	}

	var totalImpact float64
	for _, change := range recent {
		mult, ok := changeImpactMultipliers[change.Type]
		if !ok {
			mult = changeImpactMultipliers[models.ChangeOther]
		}
		totalImpact += burn * (mult - 1)
	}
	return burn + totalImpact/float64(len(recent))
}

// CalculateNetMargin compares reward revenue against traffic burn plus
// infrastructure spend. With zero revenue the margin percentage reports 0
// rather than dividing by zero.
func (c *FinOpsCalculator) CalculateNetMargin() models.NetMargin {
	revenue := c.data.Rewards.TotalRewards
	costs := c.data.Traffic.TotalCCBurned + c.data.Infrastructure.Total
	margin := revenue - costs

	var marginPct float64
	if revenue > 0 {
		marginPct = margin / revenue * 100
	}

	daysInPeriod := int(c.data.Period.End.Sub(c.data.Period.Start).Hours() / 24)
	if daysInPeriod < 1 {
		daysInPeriod = 1
	}

	return models.NetMargin{
		TotalRevenue:     revenue,
		TotalCosts:       costs,
		NetMargin:        margin,
		MarginPercentage: marginPct,
		BreakEvenPoint:   costs / float64(daysInPeriod),
	}
}

// AnalyzeChanges ranks change attributions by absolute impact and sums
// impact per category.
func (c *FinOpsCalculator) AnalyzeChanges() models.ChangeAnalysis {
	sorted := make([]models.ChangeAttribution, len(c.data.Changes))
	copy(sorted, c.data.Changes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return math.Abs(sorted[i].Impact) > math.Abs(sorted[j].Impact)
	})
	if len(sorted) > 5 {
		sorted = sorted[:5]
	}

	byType := make(map[string]float64)
	var totalImpact float64
	for _, change := range c.data.Changes {
		byType[change.Type] += math.Abs(change.Impact)
		totalImpact += math.Abs(change.Impact)
	}

	summary := "No significant changes detected."
	if len(sorted) > 0 {
		primary := sorted[0]
		summary = fmt.Sprintf("Primary driver: %s (%s)",
			primary.Description, strings.ReplaceAll(primary.Type, "_", " "))
	}

	return models.ChangeAnalysis{
		Summary:    summary,
		TopChanges: sorted,
		ImpactAnalysis: models.ImpactAnalysis{
			TotalImpact: totalImpact,
			ByType:      byType,
		},
	}
}

// GenerateScenarios projects economics under idle, moderate and heavy
// activity assumptions.
func (c *FinOpsCalculator) GenerateScenarios() []models.Scenario {
	burn := c.data.Traffic.DailyBurnRate
	rewards := c.data.Rewards.RewardsPerDay
	credits := c.data.Traffic.CurrentCredits
	infraDaily := c.data.Infrastructure.Total / 30

	build := func(name, description string, burnMult, rewardMult float64) models.Scenario {
		scenarioBurn := burn * burnMult
		scenarioRewards := rewards * rewardMult
		runway := models.Days(math.Inf(1))
		if scenarioBurn > 0 {
			runway = models.Days(math.Floor(credits / scenarioBurn))
		}
		return models.Scenario{
			Name:             name,
			Description:      description,
			DailyBurnRate:    scenarioBurn,
			DailyRewards:     scenarioRewards,
			MonthlyNetMargin: (scenarioRewards - scenarioBurn - infraDaily) * 30,
			RunwayDays:       runway,
		}
	}

	return []models.Scenario{
		build("idle", "Low activity, minimal traffic burn", 0.3, 0.5),
		build("moderate", "Current activity levels continue", 1, 1),
		build("heavy", "High activity, increased traffic burn", 2.5, 1.8),
	}
}

func healthRank(status string) int {
	switch status {
	case models.HealthCritical:
		return 2
	case models.HealthWarning:
		return 1
	default:
		return 0
	}
}

// FinancialHealth composes margin and runway into one overall signal. A
// short runway can escalate the status but never soften a worse margin
// verdict.
func (c *FinOpsCalculator) FinancialHealth() models.FinancialHealth {
	margin := c.CalculateNetMargin()
	runway := c.CalculateRunway()

	status := models.HealthHealthy
	message := "Validator economics are healthy."
	var recommendations []string

	if margin.NetMargin < 0 {
		status = models.HealthCritical
		message = "Validator is operating at a loss."
		recommendations = append(recommendations,
			"Review infrastructure costs and optimize",
			"Consider increasing activity to boost rewards",
			"Evaluate traffic burn optimization strategies",
		)
	} else if margin.MarginPercentage < 10 {
		status = models.HealthWarning
		message = "Low profit margin - monitor closely."
		recommendations = append(recommendations,
			"Optimize traffic burn efficiency",
			"Review infrastructure spending",
		)
	}

	if !runway.DaysRemaining.IsUnlimited() && runway.DaysRemaining < 30 {
		candidate := models.HealthWarning
		if runway.DaysRemaining < 7 {
			candidate = models.HealthCritical
		}
		if healthRank(candidate) > healthRank(status) {
			status = candidate
		}
		message += fmt.Sprintf(" Traffic credits running low (%d days remaining).",
			int(runway.DaysRemaining))
		recommendations = append(recommendations,
			"Purchase additional traffic credits immediately",
			"Review traffic burn patterns for optimization",
		)
	}

	if len(recommendations) == 0 {
		recommendations = append(recommendations,
			"Continue monitoring key metrics",
			"Plan for traffic credit purchases in advance",
		)
	}

	return models.FinancialHealth{
		Status:          status,
		Message:         message,
		Recommendations: recommendations,
	}
}
