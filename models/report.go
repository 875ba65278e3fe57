package models

import "time"

// ReportData is the aggregate a compliance report is generated from. Its
// serialized form is what the evidence bundle's data hash commits to, so
// field order here is load-bearing for hash stability across builds of the
// same input.
type ReportData struct {
	AppName           string         `json:"appName"`
	PartyID           string         `json:"partyId"`
	Period            ReportPeriod   `json:"period"`
	Metrics           ReportMetrics  `json:"metrics"`
	ActivityBreakdown []ActivityLine `json:"activityBreakdown"`
	Compliance        ComplianceInfo `json:"compliance"`
}

type ReportPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Type  string    `json:"type"` // "monthly" or "quarterly"
}

type ReportMetrics struct {
	TotalTransactions int     `json:"totalTransactions"`
	TotalVolume       float64 `json:"totalVolume"`
	ActiveUsers       int     `json:"activeUsers"`
	RewardsEarned     float64 `json:"rewardsEarned"`
	TransactionGrowth float64 `json:"transactionGrowth"`
}

type ActivityLine struct {
	ActivityType string  `json:"activityType"`
	Count        int     `json:"count"`
	Volume       float64 `json:"volume"`
}

type ComplianceInfo struct {
	AuditStatus           string `json:"auditStatus"`
	ControlsInPlace       bool   `json:"controlsInPlace"`
	NonBonaFidePrevention string `json:"nonBonaFidePrevention"`
}

// EvidenceBundle is the tamper-evidence chain for one report: the data hash
// commits to the report content, the snapshot hash folds in the generation
// timestamp. Immutable after construction.
type EvidenceBundle struct {
	SnapshotHash    string `json:"snapshot_hash"`
	Timestamp       string `json:"timestamp"`
	DataHash        string `json:"data_hash"`
	DerivationNotes string `json:"derivation_notes"`
	SignedBy        string `json:"signed_by"`
}

type ChecklistItem struct {
	Label     string `json:"label"`
	Completed bool   `json:"completed"`
}

type ChecklistCategory struct {
	ID        string          `json:"id"`
	Label     string          `json:"label"`
	Required  bool            `json:"required"`
	Completed bool            `json:"completed"`
	Items     []ChecklistItem `json:"items"`
}

// ReportDocument is the renderer-agnostic PDF layout: ordered sections of
// text lines. Byte-level PDF rendering is left to the consumer.
type ReportDocument struct {
	Title     string          `json:"title"`
	Generated string          `json:"generated"`
	Sections  []ReportSection `json:"sections"`
}

type ReportSection struct {
	Heading string   `json:"heading"`
	Lines   []string `json:"lines"`
}
