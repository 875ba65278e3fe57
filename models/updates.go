package models

// PartyUpdate is a normalized ledger update. Timestamp is resolved through
// the recordTime -> effectiveAt -> createdAt -> now fallback chain.
type PartyUpdate struct {
	UpdateID   string   `json:"update_id"`
	Timestamp  string   `json:"timestamp"`
	Parties    []string `json:"parties"`
	UpdateType string   `json:"update_type"`
	Round      int      `json:"round"`
}

// ActivitySummary is the global activity rollup over a window.
// ActiveParties is a hyperloglog estimate of distinct submitting parties.
type ActivitySummary struct {
	TotalTransactions int     `json:"total_transactions"`
	TotalVolume       float64 `json:"total_volume"`
	Transfers         int     `json:"transfers"`
	Offers            int     `json:"offers"`
	Preapprovals      int     `json:"preapprovals"`
	Updates           int     `json:"updates"`
	ActiveParties     int     `json:"active_parties"`
}
