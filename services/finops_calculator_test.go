package services

import (
	"math"
	"strings"
	"testing"
	"time"

	"cantonscan/models"
)

func baseFinOpsData() models.ValidatorFinOpsData {
	now := time.Now()
	return models.ValidatorFinOpsData{
		Traffic: models.TrafficData{
			CurrentCredits: 1000,
			DailyBurnRate:  10,
			TotalCCBurned:  300,
		},
		Rewards: models.RewardsData{
			TotalRewards:  900,
			RewardsPerDay: 30,
		},
		Infrastructure: models.InfrastructureCosts{Total: 150},
		Period:         models.Period{Start: now.AddDate(0, 0, -30), End: now},
	}
}

func TestCalculateRunwayZeroBurn(t *testing.T) {
	data := baseFinOpsData()
	data.Traffic.DailyBurnRate = 0

	runway := NewFinOpsCalculator(data).CalculateRunway()
	if !runway.DaysRemaining.IsUnlimited() {
		t.Error("expected unlimited runway with zero burn rate")
	}
	if runway.WarningLevel != models.HealthHealthy {
		t.Errorf("expected healthy, got %s", runway.WarningLevel)
	}
}

func TestCalculateRunwayWarningLevels(t *testing.T) {
	cases := []struct {
		credits float64
		burn    float64
		days    float64
		level   string
	}{
		{1000, 10, 100, models.HealthHealthy},
		{100, 10, 10, models.HealthWarning},
		{50, 10, 5, models.HealthCritical},
	}
	for _, tc := range cases {
		data := baseFinOpsData()
		data.Traffic.CurrentCredits = tc.credits
		data.Traffic.DailyBurnRate = tc.burn

		runway := NewFinOpsCalculator(data).CalculateRunway()
		if float64(runway.DaysRemaining) != tc.days {
			t.Errorf("credits=%v burn=%v: expected %v days, got %v",
				tc.credits, tc.burn, tc.days, float64(runway.DaysRemaining))
		}
		if runway.WarningLevel != tc.level {
			t.Errorf("credits=%v burn=%v: expected %s, got %s",
				tc.credits, tc.burn, tc.level, runway.WarningLevel)
		}
	}
}

func TestProjectedBurnRate(t *testing.T) {
	data := baseFinOpsData()
	data.Changes = []models.ChangeAttribution{
		{Type: models.ChangeVolumeSpike, Date: time.Now().AddDate(0, 0, -2)},
	}

	runway := NewFinOpsCalculator(data).CalculateRunway()
	// One recent volume_spike: burn + burn*(1.5-1)/1 = 15.
	if math.Abs(runway.ProjectedBurnRate-15) > 1e-9 {
		t.Errorf("expected projected burn 15, got %v", runway.ProjectedBurnRate)
	}
}

func TestProjectedBurnIgnoresOldChanges(t *testing.T) {
	data := baseFinOpsData()
	data.Changes = []models.ChangeAttribution{
		{Type: models.ChangeVolumeSpike, Date: time.Now().AddDate(0, 0, -20)},
	}

	runway := NewFinOpsCalculator(data).CalculateRunway()
	if runway.ProjectedBurnRate != data.Traffic.DailyBurnRate {
		t.Errorf("changes older than 7 days should not affect projection, got %v",
			runway.ProjectedBurnRate)
	}
}

func TestCalculateNetMargin(t *testing.T) {
	margin := NewFinOpsCalculator(baseFinOpsData()).CalculateNetMargin()

	if margin.TotalRevenue != 900 {
		t.Errorf("expected revenue 900, got %v", margin.TotalRevenue)
	}
	if margin.TotalCosts != 450 {
		t.Errorf("expected costs 450 (300 burned + 150 infra), got %v", margin.TotalCosts)
	}
	if margin.NetMargin != 450 {
		t.Errorf("expected margin 450, got %v", margin.NetMargin)
	}
	if margin.MarginPercentage != 50 {
		t.Errorf("expected 50%%, got %v", margin.MarginPercentage)
	}
	if margin.BreakEvenPoint != 15 {
		t.Errorf("expected break-even 15/day over 30 days, got %v", margin.BreakEvenPoint)
	}
}

func TestNetMarginZeroRevenue(t *testing.T) {
	data := baseFinOpsData()
	data.Rewards.TotalRewards = 0

	margin := NewFinOpsCalculator(data).CalculateNetMargin()
	if margin.MarginPercentage != 0 {
		t.Errorf("expected 0%% with zero revenue, got %v", margin.MarginPercentage)
	}
}

func TestAnalyzeChangesTopFive(t *testing.T) {
	data := baseFinOpsData()
	impacts := []float64{5, -50, 12, 3, 80, -1, 40}
	for _, impact := range impacts {
		data.Changes = append(data.Changes, models.ChangeAttribution{
			Type:        models.ChangeOther,
			Description: "change",
			Impact:      impact,
		})
	}

	analysis := NewFinOpsCalculator(data).AnalyzeChanges()
	if len(analysis.TopChanges) != 5 {
		t.Fatalf("expected top 5, got %d", len(analysis.TopChanges))
	}
	if analysis.TopChanges[0].Impact != 80 {
		t.Errorf("expected largest absolute impact first, got %v", analysis.TopChanges[0].Impact)
	}
	var wantTotal float64
	for _, impact := range impacts {
		wantTotal += math.Abs(impact)
	}
	if analysis.ImpactAnalysis.TotalImpact != wantTotal {
		t.Errorf("expected total %v, got %v", wantTotal, analysis.ImpactAnalysis.TotalImpact)
	}
	if !strings.HasPrefix(analysis.Summary, "Primary driver:") {
		t.Errorf("unexpected summary: %s", analysis.Summary)
	}
}

func TestAnalyzeChangesEmpty(t *testing.T) {
	analysis := NewFinOpsCalculator(baseFinOpsData()).AnalyzeChanges()
	if analysis.Summary != "No significant changes detected." {
		t.Errorf("unexpected summary: %s", analysis.Summary)
	}
}

func TestGenerateScenarios(t *testing.T) {
	scenarios := NewFinOpsCalculator(baseFinOpsData()).GenerateScenarios()
	if len(scenarios) != 3 {
		t.Fatalf("expected 3 scenarios, got %d", len(scenarios))
	}

	idle, moderate, heavy := scenarios[0], scenarios[1], scenarios[2]
	if idle.Name != "idle" || moderate.Name != "moderate" || heavy.Name != "heavy" {
		t.Fatalf("unexpected scenario order: %s, %s, %s", idle.Name, moderate.Name, heavy.Name)
	}
	if !(idle.DailyBurnRate < moderate.DailyBurnRate && moderate.DailyBurnRate < heavy.DailyBurnRate) {
		t.Error("burn rates should increase from idle to heavy")
	}
	if !(float64(idle.RunwayDays) > float64(moderate.RunwayDays) &&
		float64(moderate.RunwayDays) > float64(heavy.RunwayDays)) {
		t.Error("runway should shrink as burn increases")
	}
	// moderate: (30 - 10 - 150/30) * 30 = 450
	if moderate.MonthlyNetMargin != 450 {
		t.Errorf("expected moderate monthly margin 450, got %v", moderate.MonthlyNetMargin)
	}
}

func TestGenerateScenariosZeroBurn(t *testing.T) {
	data := baseFinOpsData()
	data.Traffic.DailyBurnRate = 0

	for _, s := range NewFinOpsCalculator(data).GenerateScenarios() {
		if !s.RunwayDays.IsUnlimited() {
			t.Errorf("scenario %s: expected unlimited runway with zero burn", s.Name)
		}
	}
}

func TestFinancialHealthHealthy(t *testing.T) {
	health := NewFinOpsCalculator(baseFinOpsData()).FinancialHealth()
	if health.Status != models.HealthHealthy {
		t.Errorf("expected healthy, got %s", health.Status)
	}
	if len(health.Recommendations) == 0 {
		t.Error("recommendations should never be empty")
	}
}

func TestFinancialHealthOperatingAtLoss(t *testing.T) {
	data := baseFinOpsData()
	data.Rewards.TotalRewards = 100 // costs are 450

	health := NewFinOpsCalculator(data).FinancialHealth()
	if health.Status != models.HealthCritical {
		t.Errorf("expected critical when operating at a loss, got %s", health.Status)
	}
	if !strings.Contains(health.Message, "operating at a loss") {
		t.Errorf("unexpected message: %s", health.Message)
	}
}

func TestFinancialHealthRunwayEscalatesOnly(t *testing.T) {
	// Loss (critical) plus a 10-day runway (warning): the runway check must
	// not soften critical to warning.
	data := baseFinOpsData()
	data.Rewards.TotalRewards = 100
	data.Traffic.CurrentCredits = 100
	data.Traffic.DailyBurnRate = 10

	health := NewFinOpsCalculator(data).FinancialHealth()
	if health.Status != models.HealthCritical {
		t.Errorf("runway warning must not downgrade critical, got %s", health.Status)
	}
	if !strings.Contains(health.Message, "running low") {
		t.Errorf("expected runway message appended, got %s", health.Message)
	}
}

func TestFinancialHealthShortRunwayWarns(t *testing.T) {
	data := baseFinOpsData()
	data.Traffic.CurrentCredits = 100
	data.Traffic.DailyBurnRate = 10

	health := NewFinOpsCalculator(data).FinancialHealth()
	if health.Status != models.HealthWarning {
		t.Errorf("expected warning at 10 days runway, got %s", health.Status)
	}
}
