package models

import (
	"encoding/json"
	"time"
)

// RateLimitInfo is the snapshot of a node's rate-limit headers.
// Once time passes Reset the state is treated as cleared.
type RateLimitInfo struct {
	Remaining int   `json:"remaining"`
	Reset     int64 `json:"reset"` // epoch seconds
	Limit     int   `json:"limit"`
}

// ScanNode is one candidate upstream endpoint the client can route to.
// Constructed at client startup from config; only its error/rate-limit
// state changes afterwards.
type ScanNode struct {
	URL               string         `json:"url"`
	Name              string         `json:"name"`
	Priority          int            `json:"priority"` // lower = preferred
	RateLimit         *RateLimitInfo `json:"rate_limit,omitempty"`
	LastError         time.Time      `json:"last_error,omitempty"`
	ConsecutiveErrors int            `json:"consecutive_errors"`
}

// NodeStatus is the operator-facing view of one node.
type NodeStatus struct {
	Node     ScanNode `json:"node"`
	IsActive bool     `json:"is_active"`
	Country  string   `json:"country,omitempty"`
	City     string   `json:"city,omitempty"`
}

// Raw upstream response shapes (minimal fields we use). Optional fields stay
// pointers or zero values; the mapper substitutes defaults.

type ValidatorsResponse struct {
	ValidatorLicenses []ValidatorLicense `json:"validator_licenses"`
}

type ValidatorLicense struct {
	Payload *LicensePayload `json:"payload"`
}

type LicensePayload struct {
	Validator    string           `json:"validator"`
	Sponsor      string           `json:"sponsor"`
	LastActiveAt string           `json:"lastActiveAt"`
	FaucetState  *FaucetState     `json:"faucetState"`
	Metadata     *LicenseMetadata `json:"metadata"`
}

type FaucetState struct {
	NumCouponsMissed int `json:"numCouponsMissed"`
}

type LicenseMetadata struct {
	Version      string `json:"version"`
	ContactPoint string `json:"contactPoint"`
}

type ConsensusResponse struct {
	LatestBlock *LatestBlock         `json:"latest_block"`
	Validators  []ConsensusValidator `json:"validators"`
}

type LatestBlock struct {
	SignedHeader *SignedHeader `json:"signed_header"`
}

type SignedHeader struct {
	Header *BlockHeader `json:"header"`
}

// BlockHeader height arrives as a numeric string from some nodes and a bare
// number from others; keep it raw and parse at the mapper.
type BlockHeader struct {
	Height json.RawMessage `json:"height"`
	Time   string          `json:"time"`
}

type ConsensusValidator struct {
	Address     string `json:"address"`
	VotingPower string `json:"voting_power"`
}

// SuperValidatorsResponse entries may be objects or 2-element tuples; decoded
// per entry by the mapper.
type SuperValidatorsResponse struct {
	SVs []json.RawMessage `json:"svs"`
}

type UpdatesResponse struct {
	Updates   []RawUpdate `json:"updates"`
	NextToken string      `json:"nextToken"`
}

type RawUpdate struct {
	UpdateID          string `json:"updateId"`
	RecordTime        string `json:"recordTime"`
	EffectiveAt       string `json:"effectiveAt"`
	CreatedAt         string `json:"createdAt"`
	SubmittingPartyID string `json:"submittingPartyId"`
	WorkflowID        string `json:"workflowId"`
	EventCount        int    `json:"eventCount"`
}

type OverviewResponse struct {
	ConsensusHeight  json.RawMessage   `json:"consensusHeight"`
	ActiveValidators int               `json:"activeValidators"`
	SuperValidators  int               `json:"superValidators"`
	OpenVotes        []json.RawMessage `json:"openVotes"`
}
