package services

import (
	"fmt"
	"math"
	"time"

	"cantonscan/models"
)

// ReportAssemblyOptions selects the party and period a report is built for.
// Compliance attestations live off-chain; when the operator supplies none,
// the assembled report carries "Not Available" placeholders.
type ReportAssemblyOptions struct {
	PartyID    string
	AppName    string
	Start      time.Time
	End        time.Time
	Compliance *models.ComplianceInfo
}

const complianceUnavailable = "Not Available"

// AssembleReportData builds report input from chain reads. The activity
// summary over the period supplies the metrics and the breakdown, with active
// users taken from the distinct-party estimate. Rewards are approximated at
// 1% of volume; breakdown volume is apportioned by fixed activity shares.
func AssembleReportData(api *ScanAPI, opts ReportAssemblyOptions) (models.ReportData, error) {
	if opts.PartyID == "" {
		return models.ReportData{}, fmt.Errorf("party id is required")
	}
	if !opts.End.After(opts.Start) {
		return models.ReportData{}, fmt.Errorf("period end must be after start")
	}

	summary, err := api.GetGlobalActivitySummary(opts.Start, opts.End, api.cfg.Updates.DefaultLimit)
	if err != nil {
		return models.ReportData{}, fmt.Errorf("failed to fetch activity summary: %w", err)
	}

	appName := opts.AppName
	if appName == "" {
		appName = opts.PartyID
	}

	compliance := models.ComplianceInfo{
		AuditStatus:           complianceUnavailable,
		ControlsInPlace:       true,
		NonBonaFidePrevention: complianceUnavailable,
	}
	if opts.Compliance != nil {
		compliance = *opts.Compliance
	}

	return models.ReportData{
		AppName: appName,
		PartyID: opts.PartyID,
		Period: models.ReportPeriod{
			Start: opts.Start,
			End:   opts.End,
			Type:  periodType(opts.Start, opts.End),
		},
		Metrics: models.ReportMetrics{
			TotalTransactions: summary.TotalTransactions,
			TotalVolume:       summary.TotalVolume,
			ActiveUsers:       summary.ActiveParties,
			RewardsEarned:     math.Round(summary.TotalVolume * 0.01),
			TransactionGrowth: 0,
		},
		ActivityBreakdown: []models.ActivityLine{
			{ActivityType: "Transfers", Count: summary.Transfers, Volume: summary.TotalVolume * 0.6},
			{ActivityType: "Offers", Count: summary.Offers, Volume: summary.TotalVolume * 0.25},
			{ActivityType: "Preapprovals", Count: summary.Preapprovals, Volume: summary.TotalVolume * 0.1},
			{ActivityType: "Updates", Count: summary.Updates, Volume: summary.TotalVolume * 0.05},
		},
		Compliance: compliance,
	}, nil
}

// periodType classifies any window longer than 60 days as quarterly.
func periodType(start, end time.Time) string {
	if end.Sub(start) > 60*24*time.Hour {
		return "quarterly"
	}
	return "monthly"
}
