package services

import (
	"strings"
	"testing"
	"time"

	"cantonscan/models"
)

func sampleReportData() models.ReportData {
	return models.ReportData{
		AppName: "Example App",
		PartyID: "example::party",
		Period: models.ReportPeriod{
			Start: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC),
			Type:  "monthly",
		},
		Metrics: models.ReportMetrics{
			TotalTransactions: 1200,
			TotalVolume:       54000.5,
			ActiveUsers:       87,
			RewardsEarned:     310.25,
			TransactionGrowth: 12.5,
		},
		ActivityBreakdown: []models.ActivityLine{
			{ActivityType: "transfer", Count: 900, Volume: 40000},
			{ActivityType: "offer", Count: 300, Volume: 14000.5},
		},
		Compliance: models.ComplianceInfo{
			AuditStatus:           "completed",
			ControlsInPlace:       true,
			NonBonaFidePrevention: "automated screening",
		},
	}
}

func TestDataHashDeterministic(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	a, err := newReportGeneratorAt(sampleReportData(), now)
	if err != nil {
		t.Fatalf("generator construction failed: %v", err)
	}
	b, err := newReportGeneratorAt(sampleReportData(), now)
	if err != nil {
		t.Fatalf("generator construction failed: %v", err)
	}

	if a.EvidenceBundle().DataHash != b.EvidenceBundle().DataHash {
		t.Error("identical report data must produce identical data hashes")
	}
	if a.EvidenceBundle().SnapshotHash != b.EvidenceBundle().SnapshotHash {
		t.Error("identical data and timestamp must produce identical snapshot hashes")
	}
	if len(a.EvidenceBundle().DataHash) != 64 {
		t.Errorf("expected 64-char hex sha256, got %d chars", len(a.EvidenceBundle().DataHash))
	}
}

func TestSnapshotHashBindsTimestamp(t *testing.T) {
	data := sampleReportData()
	a, _ := newReportGeneratorAt(data, time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	b, _ := newReportGeneratorAt(data, time.Date(2026, 8, 1, 12, 0, 1, 0, time.UTC))

	if a.EvidenceBundle().DataHash != b.EvidenceBundle().DataHash {
		t.Error("data hash should not depend on generation time")
	}
	if a.EvidenceBundle().SnapshotHash == b.EvidenceBundle().SnapshotHash {
		t.Error("snapshot hash must change with the generation timestamp")
	}
}

func TestDataHashChangesWithContent(t *testing.T) {
	now := time.Now()
	a, _ := newReportGeneratorAt(sampleReportData(), now)

	modified := sampleReportData()
	modified.Metrics.TotalTransactions++
	b, _ := newReportGeneratorAt(modified, now)

	if a.EvidenceBundle().DataHash == b.EvidenceBundle().DataHash {
		t.Error("different report data must produce different data hashes")
	}
}

func TestEvidenceBundleFields(t *testing.T) {
	gen, err := NewReportGenerator(sampleReportData())
	if err != nil {
		t.Fatalf("NewReportGenerator failed: %v", err)
	}
	bundle := gen.EvidenceBundle()

	if bundle.SignedBy != "Example App" {
		t.Errorf("expected signedBy to be the app name, got %s", bundle.SignedBy)
	}
	if !strings.Contains(bundle.DerivationNotes, "2026-07-01T00:00:00Z") ||
		!strings.Contains(bundle.DerivationNotes, "2026-07-31T00:00:00Z") {
		t.Errorf("derivation notes should name the period: %s", bundle.DerivationNotes)
	}
}

func TestGenerateCSV(t *testing.T) {
	gen, err := NewReportGenerator(sampleReportData())
	if err != nil {
		t.Fatalf("NewReportGenerator failed: %v", err)
	}
	csvText, err := gen.GenerateCSV()
	if err != nil {
		t.Fatalf("GenerateCSV failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(csvText), "\n")
	if lines[0] != "Field,Value" {
		t.Errorf("expected Field,Value header, got %q", lines[0])
	}
	if len(lines) != 16 {
		t.Errorf("expected 16 rows, got %d", len(lines))
	}
	for _, want := range []string{
		"App Name,Example App",
		"Total Transactions,1200",
		"Data Hash," + gen.EvidenceBundle().DataHash,
	} {
		if !strings.Contains(csvText, want) {
			t.Errorf("csv missing row %q", want)
		}
	}
}

func TestBuildDocumentSections(t *testing.T) {
	gen, _ := NewReportGenerator(sampleReportData())
	doc := gen.BuildDocument()

	if doc.Title != "Canton Network Featured App Report" {
		t.Errorf("unexpected title: %s", doc.Title)
	}
	headings := make([]string, 0, len(doc.Sections))
	for _, s := range doc.Sections {
		headings = append(headings, s.Heading)
	}
	want := []string{
		"Application Information",
		"Key Metrics",
		"Activity Breakdown",
		"Compliance Information",
		"Evidence Bundle",
	}
	if len(headings) != len(want) {
		t.Fatalf("expected %d sections, got %d", len(want), len(headings))
	}
	for i := range want {
		if headings[i] != want[i] {
			t.Errorf("section %d: expected %q, got %q", i, want[i], headings[i])
		}
	}
}

func TestRequirementsChecklist(t *testing.T) {
	gen, _ := NewReportGenerator(sampleReportData())

	for _, cat := range gen.RequirementsChecklist() {
		if !cat.Completed {
			t.Errorf("category %s should be complete for full sample data", cat.ID)
		}
		if len(cat.Items) != 3 {
			t.Errorf("category %s: expected 3 items, got %d", cat.ID, len(cat.Items))
		}
	}
	if got := gen.CompletionPercent(); got != 100 {
		t.Errorf("expected 100%% completion, got %d", got)
	}
}

func TestChecklistIncompleteData(t *testing.T) {
	data := sampleReportData()
	data.PartyID = ""
	data.Metrics.TotalTransactions = 0
	gen, _ := NewReportGenerator(data)

	var appInfo, metrics models.ChecklistCategory
	for _, cat := range gen.RequirementsChecklist() {
		switch cat.ID {
		case "app-info":
			appInfo = cat
		case "metrics":
			metrics = cat
		}
	}
	if appInfo.Completed {
		t.Error("app-info should be incomplete without a party id")
	}
	if metrics.Completed {
		t.Error("metrics should be incomplete with zero transactions")
	}
	if gen.CompletionPercent() >= 100 {
		t.Error("completion should drop below 100 with missing fields")
	}
}
