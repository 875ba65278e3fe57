package services

import (
	"fmt"
	"log"
	"sync"
	"time"

	"cantonscan/config"
	"cantonscan/models"
)

// AlertService evaluates built-in network health rules on a schedule and
// pushes firings to Discord. Each rule keeps its own cooldown so a sustained
// condition does not spam the channel.
type AlertService struct {
	cfg     *config.Config
	api     *ScanAPI
	cache   *CacheService
	discord *DiscordBotService

	mu            sync.Mutex
	lastFired     map[string]time.Time
	prevAtRisk    int
	hasPrevAtRisk bool
	history       []*models.Alert

	stopChan chan struct{}
	stopOnce sync.Once
}

func NewAlertService(cfg *config.Config, api *ScanAPI, cache *CacheService, discord *DiscordBotService) *AlertService {
	return &AlertService{
		cfg:       cfg,
		api:       api,
		cache:     cache,
		discord:   discord,
		lastFired: make(map[string]time.Time),
		stopChan:  make(chan struct{}),
	}
}

func (as *AlertService) Start() {
	log.Println("Starting alert service...")
	go as.runLoop()
}

func (as *AlertService) Stop() {
	as.stopOnce.Do(func() { close(as.stopChan) })
}

func (as *AlertService) runLoop() {
	ticker := time.NewTicker(as.cfg.StatsIntervalDuration())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			as.Evaluate()
		case <-as.stopChan:
			return
		}
	}
}

// History returns recent firings, newest last.
func (as *AlertService) History(limit int) []*models.Alert {
	as.mu.Lock()
	defer as.mu.Unlock()

	if limit <= 0 || limit > len(as.history) {
		limit = len(as.history)
	}
	out := make([]*models.Alert, limit)
	copy(out, as.history[len(as.history)-limit:])
	return out
}

// Evaluate runs every rule once. Rules read from the warm cache where
// possible so evaluation does not multiply upstream load.
func (as *AlertService) Evaluate() {
	as.evaluateAtRiskRise()
	as.evaluateTrackedRunway()
	as.evaluateClosingVotes()
}

func (as *AlertService) evaluateAtRiskRise() {
	stats, ok := as.cache.GetNetworkStats()
	if !ok {
		return
	}

	as.mu.Lock()
	prev, hasPrev := as.prevAtRisk, as.hasPrevAtRisk
	as.prevAtRisk = stats.AtRiskValidators
	as.hasPrevAtRisk = true
	as.mu.Unlock()

	if !hasPrev || stats.AtRiskValidators <= prev {
		return
	}

	as.fire(&models.Alert{
		ID:          fmt.Sprintf("at-risk-%d", time.Now().Unix()),
		Name:        "At-risk validators increased",
		Description: fmt.Sprintf("At-risk validator count rose from %d to %d.", prev, stats.AtRiskValidators),
		RuleType:    models.AlertRuleAtRiskRise,
		Severity:    models.HealthWarning,
		Context: map[string]interface{}{
			"previous": prev,
			"current":  stats.AtRiskValidators,
		},
	})
}

func (as *AlertService) evaluateTrackedRunway() {
	validatorID := as.cfg.Alerts.TrackedValidator
	if validatorID == "" {
		return
	}

	end := time.Now()
	start := end.AddDate(0, 0, -30)
	data, err := FetchValidatorFinOpsData(as.api, FinOpsOptions{
		ValidatorID: validatorID,
		Start:       start,
		End:         end,
	})
	if err != nil {
		log.Printf("Alert evaluation: finops fetch for %s failed: %v", validatorID, err)
		return
	}

	runway := NewFinOpsCalculator(*data).CalculateRunway()
	if runway.WarningLevel != models.HealthCritical {
		return
	}

	as.fire(&models.Alert{
		ID:          fmt.Sprintf("runway-%d", time.Now().Unix()),
		Name:        "Traffic credit runway critical",
		Description: fmt.Sprintf("Validator %s has %d days of traffic credits remaining.", validatorID, int(runway.DaysRemaining)),
		RuleType:    models.AlertRuleRunwayCritical,
		Severity:    models.HealthCritical,
		Context: map[string]interface{}{
			"validator_id":   validatorID,
			"days_remaining": int(runway.DaysRemaining),
			"burn_rate":      runway.CurrentBurnRate,
		},
	})
}

func (as *AlertService) evaluateClosingVotes() {
	votes, err := as.api.GetOpenVotes()
	if err != nil {
		return
	}

	now := time.Now()
	for _, vote := range votes {
		if vote.Payload.VoteBefore == "" {
			continue
		}
		deadline, err := time.Parse(time.RFC3339, vote.Payload.VoteBefore)
		if err != nil {
			continue
		}
		if deadline.Before(now) || deadline.Sub(now) > 24*time.Hour {
			continue
		}

		id := vote.ContractID
		if id == "" {
			id = vote.TrackingCID
		}
		as.fire(&models.Alert{
			ID:          "vote-" + id,
			Name:        "Governance vote closing soon",
			Description: fmt.Sprintf("Vote by %s closes at %s.", vote.Payload.Requester, vote.Payload.VoteBefore),
			RuleType:    models.AlertRuleVoteClosing,
			Severity:    models.HealthWarning,
			Context: map[string]interface{}{
				"vote_id": id,
				"reason":  vote.Payload.Reason,
			},
		})
	}
}

// fire delivers one alert, respecting the per-rule cooldown.
func (as *AlertService) fire(alert *models.Alert) {
	cooldownKey := alert.RuleType
	if alert.RuleType == models.AlertRuleVoteClosing {
		cooldownKey = alert.ID
	}

	as.mu.Lock()
	cooldown := as.cfg.AlertCooldownDuration()
	if last, ok := as.lastFired[cooldownKey]; ok && time.Since(last) < cooldown {
		as.mu.Unlock()
		return
	}
	as.lastFired[cooldownKey] = time.Now()
	alert.FiredAt = time.Now()
	as.history = append(as.history, alert)
	if len(as.history) > 100 {
		as.history = as.history[len(as.history)-100:]
	}
	as.mu.Unlock()

	log.Printf("Alert fired: %s (%s)", alert.Name, alert.RuleType)
	if as.discord != nil && as.discord.Enabled() {
		if err := as.discord.SendAlert(alert); err != nil {
			log.Printf("Failed to deliver alert to Discord: %v", err)
		}
	}
}
