package services

import (
	"encoding/json"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/axiomhq/hyperloglog"

	"cantonscan/config"
	"cantonscan/models"
	"cantonscan/utils"
)

// ScanAPI maps raw upstream responses into normalized domain records.
// It owns no state beyond its client; all methods are safe for concurrent use.
type ScanAPI struct {
	client *ScanClient
	cfg    *config.Config
	policy *utils.VersionPolicy
}

func NewScanAPI(client *ScanClient, cfg *config.Config) *ScanAPI {
	policy := &utils.DefaultVersionPolicy
	if cfg.Scan.CurrentVersion != "" && cfg.Scan.MinVersion != "" {
		policy = &utils.VersionPolicy{
			CurrentStable: cfg.Scan.CurrentVersion,
			MinSupported:  cfg.Scan.MinVersion,
		}
	}
	return &ScanAPI{client: client, cfg: cfg, policy: policy}
}

// parseRound tolerates heights arriving as bare numbers, quoted strings or
// floats. Anything unparseable maps to 0.
func parseRound(raw json.RawMessage) int {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return int(n)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return int(f)
	}
	return 0
}

// GetLatestRound reads the latest consensus round, falling back to the
// overview height when the consensus block header is missing.
func (a *ScanAPI) GetLatestRound() (*models.RoundInfo, error) {
	var consensus models.ConsensusResponse
	if err := a.client.GetJSON("/api/consensus", nil, &consensus); err != nil {
		return nil, err
	}

	var height json.RawMessage
	timestamp := time.Now().UTC().Format(time.RFC3339)
	if consensus.LatestBlock != nil && consensus.LatestBlock.SignedHeader != nil &&
		consensus.LatestBlock.SignedHeader.Header != nil {
		header := consensus.LatestBlock.SignedHeader.Header
		height = header.Height
		if header.Time != "" {
			timestamp = header.Time
		}
	}
	if len(height) == 0 {
		var overview models.OverviewResponse
		if err := a.client.GetJSON("/api/overview", nil, &overview); err != nil {
			return nil, err
		}
		height = overview.ConsensusHeight
	}

	return &models.RoundInfo{Round: parseRound(height), Timestamp: timestamp}, nil
}

// buildVotingPowerMap keys consensus voting power by the full validator
// address and additionally by its last "::" segment, both lowercased, so
// license ids in either form resolve.
func buildVotingPowerMap(validators []models.ConsensusValidator) map[string]int {
	m := make(map[string]int, len(validators)*2)
	for _, v := range validators {
		addr := strings.ToLower(strings.TrimSpace(v.Address))
		if addr == "" {
			continue
		}
		power, err := strconv.Atoi(strings.TrimSpace(v.VotingPower))
		if err != nil {
			continue
		}
		m[addr] = power
		if idx := strings.LastIndex(addr, "::"); idx >= 0 {
			if last := addr[idx+2:]; last != "" && last != addr {
				m[last] = power
			}
		}
	}
	return m
}

func lastSegment(id string) string {
	if idx := strings.LastIndex(id, "::"); idx >= 0 {
		return id[idx+2:]
	}
	return ""
}

// GetValidatorLiveness returns every licensed validator with liveness rounds
// taken from consensus voting power. A validator with any missed coupons is
// flagged at risk.
func (a *ScanAPI) GetValidatorLiveness() ([]models.ValidatorInfo, error) {
	var validators models.ValidatorsResponse
	if err := a.client.GetJSON("/api/validators", nil, &validators); err != nil {
		return nil, err
	}
	var consensus models.ConsensusResponse
	if err := a.client.GetJSON("/api/consensus", nil, &consensus); err != nil {
		return nil, err
	}

	votingPower := buildVotingPowerMap(consensus.Validators)

	infos := make([]models.ValidatorInfo, 0, len(validators.ValidatorLicenses))
	for _, license := range validators.ValidatorLicenses {
		p := license.Payload
		if p == nil {
			p = &models.LicensePayload{}
		}
		id := strings.TrimSpace(p.Validator)
		idLower := strings.ToLower(id)

		missed := 0
		if p.FaucetState != nil {
			missed = p.FaucetState.NumCouponsMissed
		}
		status := models.ValidatorActive
		if missed > 0 {
			status = models.ValidatorAtRisk
		}

		liveness, ok := votingPower[idLower]
		if !ok {
			liveness = votingPower[lastSegment(idLower)]
		}

		var timing *models.CollectionTiming
		if p.LastActiveAt != "" {
			timing = &models.CollectionTiming{First: p.LastActiveAt, Last: p.LastActiveAt}
		}

		info := models.ValidatorInfo{
			ValidatorID:      id,
			Name:             p.Sponsor,
			Status:           status,
			LivenessRounds:   liveness,
			MissedRounds:     missed,
			CollectionTiming: timing,
		}
		if id == "" {
			info.ValidatorID = "unknown"
		}
		if p.Metadata != nil && p.Metadata.Version != "" {
			info.Version = p.Metadata.Version
			info.VersionStatus, info.UpgradeSeverity = utils.ClassifyVersion(p.Metadata.Version, a.policy)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// GetValidatorInfo resolves one validator by id. The id may be the full
// "party::fingerprint" form or the short prefix; either side may hold the
// longer form. An unmatched id returns an unknown-status stub, not an error.
func (a *ScanAPI) GetValidatorInfo(validatorID string) (*models.ValidatorInfo, error) {
	all, err := a.GetValidatorLiveness()
	if err != nil {
		return nil, err
	}

	idFull := strings.ToLower(strings.TrimSpace(validatorID))
	idShort := idFull
	if idx := strings.Index(idFull, "::"); idx >= 0 {
		idShort = strings.TrimSpace(idFull[:idx])
	}

	for i := range all {
		pVal := strings.ToLower(strings.TrimSpace(all[i].ValidatorID))
		if pVal == "" {
			continue
		}
		if pVal == idFull || pVal == idShort ||
			strings.HasPrefix(idFull, pVal+"::") ||
			strings.HasPrefix(pVal, idShort+"::") {
			return &all[i], nil
		}
	}

	return &models.ValidatorInfo{
		ValidatorID: validatorID,
		Status:      models.ValidatorUnknown,
	}, nil
}

// decodeSVNode normalizes one super-validator entry. Upstream emits either a
// bare id string, an object with validatorId/status, or a 2-tuple of
// [id-or-object, metadata]. Entries with no resolvable id are dropped.
func decodeSVNode(raw json.RawMessage) (models.SVNodeState, bool) {
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		if id == "" {
			return models.SVNodeState{}, false
		}
		return models.SVNodeState{NodeID: id, Status: "active"}, true
	}

	var obj struct {
		ValidatorID string  `json:"validatorId"`
		Status      *string `json:"status"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.ValidatorID == "" {
			return models.SVNodeState{}, false
		}
		status := "active"
		if obj.Status != nil && *obj.Status != "" {
			status = *obj.Status
		}
		return models.SVNodeState{NodeID: obj.ValidatorID, Status: status}, true
	}

	var tuple []json.RawMessage
	if err := json.Unmarshal(raw, &tuple); err == nil && len(tuple) > 0 {
		var nodeID string
		if err := json.Unmarshal(tuple[0], &nodeID); err != nil {
			var first struct {
				ValidatorID string `json:"validatorId"`
			}
			if err := json.Unmarshal(tuple[0], &first); err == nil {
				nodeID = first.ValidatorID
			}
		}
		if nodeID == "" {
			return models.SVNodeState{}, false
		}
		status := "active"
		if len(tuple) > 1 {
			var meta struct {
				Status *string `json:"status"`
			}
			if err := json.Unmarshal(tuple[1], &meta); err == nil && meta.Status != nil && *meta.Status != "" {
				status = *meta.Status
			}
		}
		return models.SVNodeState{NodeID: nodeID, Status: status}, true
	}

	return models.SVNodeState{}, false
}

// GetDSOState builds the synchronizer operator view from the super-validator
// list. Voting threshold and mining rounds are not exposed upstream and
// report as zero.
func (a *ScanAPI) GetDSOState() (*models.DSOState, error) {
	var superV models.SuperValidatorsResponse
	if err := a.client.GetJSON("/api/super-validators", nil, &superV); err != nil {
		return nil, err
	}

	states := make([]models.SVNodeState, 0, len(superV.SVs))
	for _, raw := range superV.SVs {
		if node, ok := decodeSVNode(raw); ok {
			states = append(states, node)
		}
	}
	return &models.DSOState{SVNodeStates: states}, nil
}

// GetOpenVotes lists open governance votes from the network overview.
// Entries that are not vote objects are skipped.
func (a *ScanAPI) GetOpenVotes() ([]models.GovernanceVote, error) {
	var overview models.OverviewResponse
	if err := a.client.GetJSON("/api/overview", nil, &overview); err != nil {
		return nil, err
	}

	votes := make([]models.GovernanceVote, 0, len(overview.OpenVotes))
	for _, raw := range overview.OpenVotes {
		var vote models.GovernanceVote
		if err := json.Unmarshal(raw, &vote); err != nil {
			continue
		}
		votes = append(votes, vote)
	}
	return votes, nil
}

// GetGovernanceVoteDetail finds one open vote by contract or tracking id,
// case-insensitively. A missing vote returns (nil, nil).
func (a *ScanAPI) GetGovernanceVoteDetail(id string) (*models.GovernanceVote, error) {
	normalized := strings.ToLower(strings.TrimSpace(id))
	if normalized == "" {
		return nil, nil
	}

	votes, err := a.GetOpenVotes()
	if err != nil {
		return nil, err
	}
	for i := range votes {
		if strings.ToLower(votes[i].ContractID) == normalized ||
			strings.ToLower(votes[i].TrackingCID) == normalized {
			return &votes[i], nil
		}
	}
	return nil, nil
}

func mapUpdate(u models.RawUpdate, now func() time.Time) models.PartyUpdate {
	ts := u.RecordTime
	if ts == "" {
		ts = u.EffectiveAt
	}
	if ts == "" {
		ts = u.CreatedAt
	}
	if ts == "" {
		ts = now().UTC().Format(time.RFC3339)
	}

	var parties []string
	if u.SubmittingPartyID != "" {
		parties = []string{u.SubmittingPartyID}
	}
	return models.PartyUpdate{
		UpdateID:   u.UpdateID,
		Timestamp:  ts,
		Parties:    parties,
		UpdateType: "update",
		Round:      0,
	}
}

// GetAllUpdates pages through the updates feed (newest first) collecting
// entries inside [start, end]. Pagination stops once limit is reached, the
// feed is exhausted, or a page's oldest entry predates the window. Page size,
// page cap and inter-page delay come from config.
func (a *ScanAPI) GetAllUpdates(start, end time.Time, limit int) ([]models.PartyUpdate, error) {
	if limit <= 0 {
		limit = a.cfg.Updates.DefaultLimit
	}

	var all []models.PartyUpdate
	var nextToken string

	for page := 0; page < a.cfg.Updates.MaxPages; page++ {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(a.cfg.Updates.PageSize))
		if nextToken != "" {
			params.Set("nextToken", nextToken)
		}

		var res models.UpdatesResponse
		if err := a.client.GetJSON("/api/v2/updates", params, &res); err != nil {
			return nil, err
		}

		var oldestInPage time.Time
		for _, raw := range res.Updates {
			u := mapUpdate(raw, time.Now)
			ts, err := time.Parse(time.RFC3339, u.Timestamp)
			if err != nil {
				continue
			}
			if oldestInPage.IsZero() || ts.Before(oldestInPage) {
				oldestInPage = ts
			}
			if !ts.Before(start) && !ts.After(end) {
				all = append(all, u)
			}
			if len(all) >= limit {
				break
			}
		}

		if len(all) >= limit {
			break
		}
		nextToken = res.NextToken
		if nextToken == "" || len(res.Updates) == 0 {
			break
		}
		if !oldestInPage.IsZero() && oldestInPage.Before(start) {
			break
		}
		time.Sleep(a.cfg.UpdatesPageDelayDuration())
	}

	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// GetUpdateDetail fetches one update's full record. The recordTime path
// segment may contain ":" and "+" and is escaped before being sent.
func (a *ScanAPI) GetUpdateDetail(updateID, recordTime string) (json.RawMessage, error) {
	path := "/api/v2/updates/" + url.PathEscape(updateID) + "/" + url.PathEscape(recordTime)
	return a.client.Get(path, nil)
}

// GetValidatorRewards returns the per-validator reward rollup. The upstream
// exposes no reward feed yet, so all figures are zero for the given period.
func (a *ScanAPI) GetValidatorRewards(validatorID string, start, end time.Time) (*models.ValidatorRewards, error) {
	return &models.ValidatorRewards{
		ValidatorID: validatorID,
		PeriodStart: start.UTC().Format(time.RFC3339),
		PeriodEnd:   end.UTC().Format(time.RFC3339),
	}, nil
}

// GetValidatorTraffic returns the validator's traffic-credit state. The
// upstream exposes no traffic feed yet, so all figures are zero.
func (a *ScanAPI) GetValidatorTraffic(validatorID string) (*models.ValidatorTraffic, error) {
	return &models.ValidatorTraffic{
		ValidatorID: validatorID,
		LastUpdated: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// GetGlobalActivitySummary rolls up activity over a window. Distinct
// submitting parties are estimated with a hyperloglog sketch so the count
// stays cheap even over large windows.
func (a *ScanAPI) GetGlobalActivitySummary(start, end time.Time, limit int) (*models.ActivitySummary, error) {
	updates, err := a.GetAllUpdates(start, end, limit)
	if err != nil {
		return nil, err
	}

	summary := &models.ActivitySummary{
		TotalTransactions: len(updates),
	}
	sketch := hyperloglog.New14()
	for _, u := range updates {
		t := strings.ToLower(u.UpdateType)
		switch {
		case strings.Contains(t, "offer"):
			summary.Offers++
		case strings.Contains(t, "preapproval"):
			summary.Preapprovals++
		default:
			summary.Updates++
		}
		for _, p := range u.Parties {
			sketch.Insert([]byte(p))
		}
	}
	summary.ActiveParties = int(sketch.Estimate())
	return summary, nil
}

// GetNetworkStats aggregates the dashboard headline figures. Used by the
// cache warmer; individual fetch failures degrade the affected figures to
// zero rather than failing the whole snapshot.
func (a *ScanAPI) GetNetworkStats() (*models.NetworkStats, error) {
	validators, err := a.GetValidatorLiveness()
	if err != nil {
		return nil, err
	}

	stats := &models.NetworkStats{
		TotalValidators: len(validators),
		LastUpdated:     time.Now().UTC(),
	}
	for _, v := range validators {
		switch v.Status {
		case models.ValidatorActive:
			stats.ActiveValidators++
		case models.ValidatorAtRisk:
			stats.AtRiskValidators++
		}
	}

	if dso, err := a.GetDSOState(); err == nil {
		stats.SuperValidators = len(dso.SVNodeStates)
	}
	if round, err := a.GetLatestRound(); err == nil {
		stats.LatestRound = round.Round
	}
	if votes, err := a.GetOpenVotes(); err == nil {
		stats.OpenVotes = len(votes)
	}
	return stats, nil
}
