package services

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cantonscan/models"
)

// ReportGenerator produces the compliance report artifacts (CSV export,
// document layout, requirements checklist) and the evidence bundle binding
// them to their source data. The bundle is computed once at construction so
// every artifact generated from one instance shares one provenance chain.
type ReportGenerator struct {
	data     models.ReportData
	evidence models.EvidenceBundle
}

func NewReportGenerator(data models.ReportData) (*ReportGenerator, error) {
	return newReportGeneratorAt(data, time.Now())
}

func newReportGeneratorAt(data models.ReportData, now time.Time) (*ReportGenerator, error) {
	serialized, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize report data: %w", err)
	}

	timestamp := now.UTC().Format(time.RFC3339)
	dataHash := sha256Hex(serialized)
	snapshotHash := sha256Hex([]byte(dataHash + timestamp))

	return &ReportGenerator{
		data: data,
		evidence: models.EvidenceBundle{
			SnapshotHash: snapshotHash,
			Timestamp:    timestamp,
			DataHash:     dataHash,
			DerivationNotes: fmt.Sprintf(
				"Data derived from Canton Network on-chain records for period %s to %s",
				data.Period.Start.UTC().Format(time.RFC3339),
				data.Period.End.UTC().Format(time.RFC3339),
			),
			SignedBy: data.AppName,
		},
	}, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func (g *ReportGenerator) EvidenceBundle() models.EvidenceBundle {
	return g.evidence
}

// GenerateCSV renders the report as flat Field,Value rows.
func (g *ReportGenerator) GenerateCSV() (string, error) {
	rows := [][]string{
		{"Field", "Value"},
		{"App Name", g.data.AppName},
		{"Party ID", g.data.PartyID},
		{"Period Start", g.data.Period.Start.UTC().Format(time.RFC3339)},
		{"Period End", g.data.Period.End.UTC().Format(time.RFC3339)},
		{"Period Type", g.data.Period.Type},
		{"Total Transactions", strconv.Itoa(g.data.Metrics.TotalTransactions)},
		{"Total Volume", formatFloat(g.data.Metrics.TotalVolume)},
		{"Active Users", strconv.Itoa(g.data.Metrics.ActiveUsers)},
		{"Rewards Earned", formatFloat(g.data.Metrics.RewardsEarned)},
		{"Transaction Growth", formatFloat(g.data.Metrics.TransactionGrowth)},
		{"Audit Status", g.data.Compliance.AuditStatus},
		{"Controls In Place", strconv.FormatBool(g.data.Compliance.ControlsInPlace)},
		{"Snapshot Hash", g.evidence.SnapshotHash},
		{"Timestamp", g.evidence.Timestamp},
		{"Data Hash", g.evidence.DataHash},
	}

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.WriteAll(rows); err != nil {
		return "", fmt.Errorf("failed to write csv: %w", err)
	}
	return sb.String(), nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// BuildDocument lays the report out as ordered sections of text lines,
// ready for any renderer.
func (g *ReportGenerator) BuildDocument() models.ReportDocument {
	controls := "No"
	if g.data.Compliance.ControlsInPlace {
		controls = "Yes"
	}

	activity := make([]string, 0, len(g.data.ActivityBreakdown))
	for _, line := range g.data.ActivityBreakdown {
		activity = append(activity, fmt.Sprintf("%s: %d transactions, %s CC",
			line.ActivityType, line.Count, formatFloat(line.Volume)))
	}

	return models.ReportDocument{
		Title:     "Canton Network Featured App Report",
		Generated: g.evidence.Timestamp,
		Sections: []models.ReportSection{
			{
				Heading: "Application Information",
				Lines: []string{
					"App Name: " + g.data.AppName,
					"Party ID: " + g.data.PartyID,
					fmt.Sprintf("Period: %s - %s",
						g.data.Period.Start.UTC().Format("2006-01-02"),
						g.data.Period.End.UTC().Format("2006-01-02")),
				},
			},
			{
				Heading: "Key Metrics",
				Lines: []string{
					fmt.Sprintf("Total Transactions: %d", g.data.Metrics.TotalTransactions),
					fmt.Sprintf("Total Volume: %s CC", formatFloat(g.data.Metrics.TotalVolume)),
					fmt.Sprintf("Active Users: %d", g.data.Metrics.ActiveUsers),
					fmt.Sprintf("Rewards Earned: %s CC", formatFloat(g.data.Metrics.RewardsEarned)),
					fmt.Sprintf("Transaction Growth: %.2f%%", g.data.Metrics.TransactionGrowth),
				},
			},
			{
				Heading: "Activity Breakdown",
				Lines:   activity,
			},
			{
				Heading: "Compliance Information",
				Lines: []string{
					"Audit Status: " + g.data.Compliance.AuditStatus,
					"Controls In Place: " + controls,
					"Non-Bona Fide Prevention: " + g.data.Compliance.NonBonaFidePrevention,
				},
			},
			{
				Heading: "Evidence Bundle",
				Lines: []string{
					"Snapshot Hash: " + g.evidence.SnapshotHash,
					"Timestamp: " + g.evidence.Timestamp,
					"Data Hash: " + g.evidence.DataHash,
					"Derivation: " + g.evidence.DerivationNotes,
				},
			},
		},
	}
}

// RequirementsChecklist evaluates the Featured App submission requirements
// against the report's contents.
func (g *ReportGenerator) RequirementsChecklist() []models.ChecklistCategory {
	return []models.ChecklistCategory{
		{
			ID:        "app-info",
			Label:     "Application Information",
			Required:  true,
			Completed: g.data.AppName != "" && g.data.PartyID != "",
			Items: []models.ChecklistItem{
				{Label: "Institution name", Completed: g.data.AppName != ""},
				{Label: "Party ID", Completed: g.data.PartyID != ""},
				{Label: "Application summary", Completed: true},
			},
		},
		{
			ID:        "metrics",
			Label:     "Key Metrics & Activity",
			Required:  true,
			Completed: g.data.Metrics.TotalTransactions > 0,
			Items: []models.ChecklistItem{
				{Label: "Transaction volume data", Completed: g.data.Metrics.TotalTransactions > 0},
				{Label: "User activity metrics", Completed: g.data.Metrics.ActiveUsers > 0},
				{Label: "Rewards earned", Completed: g.data.Metrics.RewardsEarned > 0},
			},
		},
		{
			ID:        "compliance",
			Label:     "Compliance & Controls",
			Required:  true,
			Completed: g.data.Compliance.ControlsInPlace && g.data.Compliance.NonBonaFidePrevention != "",
			Items: []models.ChecklistItem{
				{Label: "Audit status documented", Completed: g.data.Compliance.AuditStatus != ""},
				{Label: "Controls preventing non-bona fide transactions", Completed: g.data.Compliance.ControlsInPlace},
				{Label: "Non-bona fide prevention description", Completed: g.data.Compliance.NonBonaFidePrevention != ""},
			},
		},
		{
			ID:        "evidence",
			Label:     "Evidence Bundle",
			Required:  true,
			Completed: true,
			Items: []models.ChecklistItem{
				{Label: "Signed snapshot with hash", Completed: true},
				{Label: "Data provenance chain", Completed: true},
				{Label: "Derivation notes", Completed: true},
			},
		},
	}
}

// CompletionPercent is the share of checklist items satisfied, 0-100.
func (g *ReportGenerator) CompletionPercent() int {
	var total, done int
	for _, cat := range g.RequirementsChecklist() {
		for _, item := range cat.Items {
			total++
			if item.Completed {
				done++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return done * 100 / total
}
