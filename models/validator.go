package models

import "time"

// Validator status values honored at the mapping layer. Anything upstream
// beyond missed coupons collapses to active/at_risk; unknown marks a lookup
// that found no record.
const (
	ValidatorActive  = "active"
	ValidatorAtRisk  = "at_risk"
	ValidatorUnknown = "unknown"
)

// ValidatorInfo is a normalized validator record.
// LivenessRounds is sourced from consensus voting power (the upstream reuses
// that figure as its liveness metric, so the naming is kept for the UI).
type ValidatorInfo struct {
	ValidatorID      string            `json:"validator_id"`
	Name             string            `json:"name,omitempty"`
	Status           string            `json:"status"`
	LivenessRounds   int               `json:"liveness_rounds"`
	MissedRounds     int               `json:"missed_rounds"`
	CollectionTiming *CollectionTiming `json:"collection_timing,omitempty"`
	Version          string            `json:"version,omitempty"`
	VersionStatus    string            `json:"version_status,omitempty"`
	UpgradeSeverity  string            `json:"upgrade_severity,omitempty"`
}

type CollectionTiming struct {
	First string `json:"first"`
	Last  string `json:"last"`
}

// RoundInfo is the latest consensus round/height.
type RoundInfo struct {
	Round     int    `json:"round"`
	Timestamp string `json:"timestamp"`
}

// SVNodeState is one super-validator entry, normalized from either the
// object or the tuple upstream shape.
type SVNodeState struct {
	NodeID string `json:"node_id"`
	Status string `json:"status"`
}

// DSOState is the decentralized synchronizer operator view.
type DSOState struct {
	VotingThreshold int           `json:"voting_threshold"`
	MiningRounds    int           `json:"mining_rounds"`
	SVNodeStates    []SVNodeState `json:"sv_node_states"`
}

// NetworkStats is the aggregated dashboard snapshot served from cache.
type NetworkStats struct {
	TotalValidators  int       `json:"total_validators"`
	ActiveValidators int       `json:"active_validators"`
	AtRiskValidators int       `json:"at_risk_validators"`
	SuperValidators  int       `json:"super_validators"`
	LatestRound      int       `json:"latest_round"`
	OpenVotes        int       `json:"open_votes"`
	LastUpdated      time.Time `json:"last_updated"`
}
