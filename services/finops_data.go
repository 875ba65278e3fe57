package services

import (
	"fmt"
	"math"
	"time"

	"cantonscan/models"
)

// FinOpsOptions selects the validator and period for a FinOps snapshot.
// Infrastructure costs are operator-supplied since they live off-chain.
type FinOpsOptions struct {
	ValidatorID    string
	Start          time.Time
	End            time.Time
	Infrastructure *models.InfrastructureCosts
}

const defaultBurnPerMB = 10

// FetchValidatorFinOpsData assembles a calculator input from on-chain reads
// plus the supplied infrastructure costs.
func FetchValidatorFinOpsData(api *ScanAPI, opts FinOpsOptions) (*models.ValidatorFinOpsData, error) {
	if _, err := api.GetValidatorInfo(opts.ValidatorID); err != nil {
		return nil, fmt.Errorf("failed to resolve validator %s: %w", opts.ValidatorID, err)
	}
	rewards, err := api.GetValidatorRewards(opts.ValidatorID, opts.Start, opts.End)
	if err != nil {
		return nil, err
	}
	traffic, err := api.GetValidatorTraffic(opts.ValidatorID)
	if err != nil {
		return nil, err
	}

	daysInPeriod := math.Ceil(opts.End.Sub(opts.Start).Hours() / 24)

	burnPerMB := traffic.AverageBurnPerMB
	if burnPerMB == 0 {
		burnPerMB = defaultBurnPerMB
	}

	var rewardsPerDay, rewardsPerRound float64
	if daysInPeriod > 0 {
		rewardsPerDay = rewards.TotalRewards / daysInPeriod
		rewardsPerRound = rewards.TotalRewards / (daysInPeriod * roundsPerDay(api))
	}

	infra := models.InfrastructureCosts{}
	if opts.Infrastructure != nil {
		infra = *opts.Infrastructure
	}
	infra.Total = infra.Compute + infra.Storage + infra.Network + infra.Monitoring

	return &models.ValidatorFinOpsData{
		Traffic: models.TrafficData{
			CurrentCredits:   traffic.CurrentCredits,
			DailyBurnRate:    traffic.DailyBurnRate,
			AverageBurnPerMB: burnPerMB,
			TotalCCBurned:    traffic.TotalBurned,
		},
		Rewards: models.RewardsData{
			LivenessRewards: rewards.LivenessRewards,
			ActivityRewards: rewards.ActivityRewards,
			TotalRewards:    rewards.TotalRewards,
			RewardsPerDay:   rewardsPerDay,
			RewardsPerRound: rewardsPerRound,
		},
		Infrastructure: infra,
		Period:         models.Period{Start: opts.Start, End: opts.End},
		Changes:        detectChanges(api, opts.ValidatorID, opts.Start, opts.End),
	}, nil
}

func roundsPerDay(api *ScanAPI) float64 {
	if api.cfg.Updates.RoundsPerDay > 0 {
		return float64(api.cfg.Updates.RoundsPerDay)
	}
	return 144
}

// detectChanges compares rewards against the immediately preceding period of
// equal length and attributes any swing beyond 20%. Comparison failures are
// swallowed; change detection is best effort.
func detectChanges(api *ScanAPI, validatorID string, start, end time.Time) []models.ChangeAttribution {
	prevStart := start.Add(-end.Sub(start))

	current, err := api.GetValidatorRewards(validatorID, start, end)
	if err != nil {
		return nil
	}
	previous, err := api.GetValidatorRewards(validatorID, prevStart, start)
	if err != nil {
		return nil
	}

	var changePct float64
	if previous.TotalRewards > 0 {
		changePct = (current.TotalRewards - previous.TotalRewards) / previous.TotalRewards * 100
	}
	if math.Abs(changePct) <= 20 {
		return nil
	}

	changeType := models.ChangeOther
	direction := "decrease"
	if changePct > 0 {
		changeType = models.ChangeVolumeSpike
		direction = "increase"
	}
	return []models.ChangeAttribution{{
		Type:        changeType,
		Description: fmt.Sprintf("Reward %s of %.1f%%", direction, math.Abs(changePct)),
		Impact:      current.TotalRewards - previous.TotalRewards,
		Date:        start,
	}}
}
