package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"cantonscan/config"
	"cantonscan/models"
)

func newTestAPI(t *testing.T, mux *http.ServeMux) (*ScanAPI, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	cfg := testConfig(server.URL)
	cfg.Updates = config.UpdatesConfig{
		PageSize:     500,
		MaxPages:     25,
		PageDelayMs:  1,
		DefaultLimit: 2000,
		RoundsPerDay: 144,
	}
	client := NewScanClient(cfg)
	return NewScanAPI(client, cfg), server
}

func TestParseRound(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{`12345`, 12345},
		{`"12345"`, 12345},
		{`"not-a-number"`, 0},
		{`null`, 0},
		{``, 0},
	}
	for _, tc := range cases {
		if got := parseRound(json.RawMessage(tc.raw)); got != tc.want {
			t.Errorf("parseRound(%q) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}

func TestGetValidatorLiveness(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/validators", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"validator_licenses":[
			{"payload":{"validator":"v1::abc","sponsor":"Sponsor One","faucetState":{"numCouponsMissed":3},"lastActiveAt":"2026-08-01T00:00:00Z"}},
			{"payload":{"validator":"v2::def","sponsor":"Sponsor Two","faucetState":{"numCouponsMissed":0}}}
		]}`))
	})
	mux.HandleFunc("/api/consensus", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"validators":[
			{"address":"v1::abc","voting_power":"10"},
			{"address":"other::def","voting_power":"7"}
		]}`))
	})

	api, _ := newTestAPI(t, mux)

	validators, err := api.GetValidatorLiveness()
	if err != nil {
		t.Fatalf("GetValidatorLiveness failed: %v", err)
	}
	if len(validators) != 2 {
		t.Fatalf("expected 2 validators, got %d", len(validators))
	}

	v1 := validators[0]
	if v1.Status != models.ValidatorAtRisk {
		t.Errorf("expected v1 at_risk (3 missed coupons), got %s", v1.Status)
	}
	if v1.MissedRounds != 3 {
		t.Errorf("expected 3 missed rounds, got %d", v1.MissedRounds)
	}
	if v1.LivenessRounds != 10 {
		t.Errorf("expected liveness 10 from voting power, got %d", v1.LivenessRounds)
	}
	if v1.CollectionTiming == nil || v1.CollectionTiming.First != "2026-08-01T00:00:00Z" {
		t.Error("expected collection timing from lastActiveAt")
	}

	v2 := validators[1]
	if v2.Status != models.ValidatorActive {
		t.Errorf("expected v2 active, got %s", v2.Status)
	}
	// v2::def has no direct voting-power entry; "other::def" keys "def" by
	// its last segment, which matches v2's last segment.
	if v2.LivenessRounds != 7 {
		t.Errorf("expected liveness 7 via last-segment match, got %d", v2.LivenessRounds)
	}
}

func TestGetValidatorInfoMatching(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/validators", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"validator_licenses":[
			{"payload":{"validator":"party1::fp1","faucetState":{"numCouponsMissed":0}}}
		]}`))
	})
	mux.HandleFunc("/api/consensus", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"validators":[]}`))
	})

	api, _ := newTestAPI(t, mux)

	for _, id := range []string{"party1::fp1", "PARTY1::FP1", "party1", "party1::other"} {
		info, err := api.GetValidatorInfo(id)
		if err != nil {
			t.Fatalf("GetValidatorInfo(%q) failed: %v", id, err)
		}
		if info.Status == models.ValidatorUnknown {
			t.Errorf("expected %q to resolve, got unknown stub", id)
		}
	}

	info, err := api.GetValidatorInfo("missing::xyz")
	if err != nil {
		t.Fatalf("GetValidatorInfo failed: %v", err)
	}
	if info.Status != models.ValidatorUnknown {
		t.Errorf("expected unknown stub for missing validator, got %s", info.Status)
	}
	if info.ValidatorID != "missing::xyz" {
		t.Errorf("stub should echo the requested id, got %s", info.ValidatorID)
	}
}

func TestGetDSOStateDecodesBothShapes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/super-validators", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"svs":[
			{"validatorId":"sv-object","status":"active"},
			["sv-tuple",{"status":"offline"}],
			{"validatorId":"sv-no-status"},
			{"status":"active"}
		]}`))
	})

	api, _ := newTestAPI(t, mux)

	state, err := api.GetDSOState()
	if err != nil {
		t.Fatalf("GetDSOState failed: %v", err)
	}
	if len(state.SVNodeStates) != 3 {
		t.Fatalf("expected 3 nodes (idless entry dropped), got %d", len(state.SVNodeStates))
	}

	byID := map[string]string{}
	for _, n := range state.SVNodeStates {
		byID[n.NodeID] = n.Status
	}
	if byID["sv-object"] != "active" {
		t.Errorf("object entry: got %q", byID["sv-object"])
	}
	if byID["sv-tuple"] != "offline" {
		t.Errorf("tuple entry: got %q", byID["sv-tuple"])
	}
	if byID["sv-no-status"] != "active" {
		t.Errorf("missing status should default to active, got %q", byID["sv-no-status"])
	}
}

func TestGetGovernanceVoteDetail(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/overview", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"openVotes":[
			{"contract_id":"Vote-ABC","acceptCount":3,"payload":{"requester":"dso"}},
			{"trackingCid":"track-1","rejectCount":1}
		]}`))
	})

	api, _ := newTestAPI(t, mux)

	vote, err := api.GetGovernanceVoteDetail("vote-abc")
	if err != nil {
		t.Fatalf("GetGovernanceVoteDetail failed: %v", err)
	}
	if vote == nil || vote.AcceptCount != 3 {
		t.Fatal("expected case-insensitive contract id match")
	}

	vote, err = api.GetGovernanceVoteDetail("TRACK-1")
	if err != nil {
		t.Fatalf("GetGovernanceVoteDetail failed: %v", err)
	}
	if vote == nil || vote.RejectCount != 1 {
		t.Fatal("expected tracking id match")
	}

	vote, err = api.GetGovernanceVoteDetail("nope")
	if err != nil || vote != nil {
		t.Errorf("expected (nil, nil) for missing vote, got (%v, %v)", vote, err)
	}

	vote, err = api.GetGovernanceVoteDetail("  ")
	if err != nil || vote != nil {
		t.Errorf("expected (nil, nil) for blank id, got (%v, %v)", vote, err)
	}
}

func TestGetAllUpdatesSinglePage(t *testing.T) {
	var pages int32
	end := time.Now().UTC()
	start := end.Add(-24 * time.Hour)
	inWindow := end.Add(-time.Hour).Format(time.RFC3339)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/updates", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&pages, 1)
		resp := models.UpdatesResponse{
			Updates: []models.RawUpdate{
				{UpdateID: "u1", RecordTime: inWindow, SubmittingPartyID: "party-a"},
				{UpdateID: "u2", EffectiveAt: inWindow},
			},
		}
		json.NewEncoder(w).Encode(resp)
	})

	api, _ := newTestAPI(t, mux)

	updates, err := api.GetAllUpdates(start, end, 100)
	if err != nil {
		t.Fatalf("GetAllUpdates failed: %v", err)
	}
	if got := atomic.LoadInt32(&pages); got != 1 {
		t.Errorf("expected pagination to stop after one page with no nextToken, got %d", got)
	}
	if len(updates) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(updates))
	}
	if updates[0].Timestamp != inWindow {
		t.Errorf("expected recordTime timestamp, got %s", updates[0].Timestamp)
	}
	if updates[1].Timestamp != inWindow {
		t.Errorf("expected effectiveAt fallback, got %s", updates[1].Timestamp)
	}
	if len(updates[0].Parties) != 1 || updates[0].Parties[0] != "party-a" {
		t.Errorf("expected submitting party, got %v", updates[0].Parties)
	}
}

func TestGetAllUpdatesStopsBeforeWindow(t *testing.T) {
	var pages int32
	end := time.Now().UTC()
	start := end.Add(-24 * time.Hour)
	before := start.Add(-time.Hour).Format(time.RFC3339)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/updates", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&pages, 1)
		resp := models.UpdatesResponse{
			Updates:   []models.RawUpdate{{UpdateID: "old", RecordTime: before}},
			NextToken: "more",
		}
		json.NewEncoder(w).Encode(resp)
	})

	api, _ := newTestAPI(t, mux)

	updates, err := api.GetAllUpdates(start, end, 100)
	if err != nil {
		t.Fatalf("GetAllUpdates failed: %v", err)
	}
	if len(updates) != 0 {
		t.Errorf("expected no updates in window, got %d", len(updates))
	}
	if got := atomic.LoadInt32(&pages); got != 1 {
		t.Errorf("expected pagination to stop once past the window start, got %d pages", got)
	}
}

func TestGetLatestRoundFallsBackToOverview(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/consensus", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/api/overview", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"consensusHeight":"4242"}`))
	})

	api, _ := newTestAPI(t, mux)

	round, err := api.GetLatestRound()
	if err != nil {
		t.Fatalf("GetLatestRound failed: %v", err)
	}
	if round.Round != 4242 {
		t.Errorf("expected overview fallback height 4242, got %d", round.Round)
	}
	if round.Timestamp == "" {
		t.Error("expected a timestamp even without a block header")
	}
}

func TestGetGlobalActivitySummary(t *testing.T) {
	end := time.Now().UTC()
	start := end.Add(-24 * time.Hour)
	ts := end.Add(-time.Hour).Format(time.RFC3339)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/updates", func(w http.ResponseWriter, r *http.Request) {
		resp := models.UpdatesResponse{
			Updates: []models.RawUpdate{
				{UpdateID: "u1", RecordTime: ts, SubmittingPartyID: "alice"},
				{UpdateID: "u2", RecordTime: ts, SubmittingPartyID: "bob"},
				{UpdateID: "u3", RecordTime: ts, SubmittingPartyID: "alice"},
			},
		}
		json.NewEncoder(w).Encode(resp)
	})

	api, _ := newTestAPI(t, mux)

	summary, err := api.GetGlobalActivitySummary(start, end, 100)
	if err != nil {
		t.Fatalf("GetGlobalActivitySummary failed: %v", err)
	}
	if summary.TotalTransactions != 3 {
		t.Errorf("expected 3 transactions, got %d", summary.TotalTransactions)
	}
	if summary.Updates != 3 {
		t.Errorf("expected 3 plain updates, got %d", summary.Updates)
	}
	if summary.ActiveParties != 2 {
		t.Errorf("expected 2 distinct parties, got %d", summary.ActiveParties)
	}
}
