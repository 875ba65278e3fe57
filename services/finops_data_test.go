package services

import (
	"net/http"
	"testing"
	"time"

	"cantonscan/models"
)

func TestFetchValidatorFinOpsData(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/validators", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"validator_licenses":[
			{"payload":{"validator":"v1::abc","faucetState":{"numCouponsMissed":0}}}
		]}`))
	})
	mux.HandleFunc("/api/consensus", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"validators":[]}`))
	})

	api, _ := newTestAPI(t, mux)

	end := time.Now().UTC().Truncate(time.Hour)
	start := end.AddDate(0, 0, -30)
	data, err := FetchValidatorFinOpsData(api, FinOpsOptions{
		ValidatorID: "v1::abc",
		Start:       start,
		End:         end,
		Infrastructure: &models.InfrastructureCosts{
			Compute: 100, Storage: 20, Network: 10, Monitoring: 5,
		},
	})
	if err != nil {
		t.Fatalf("FetchValidatorFinOpsData failed: %v", err)
	}

	if data.Infrastructure.Total != 135 {
		t.Errorf("expected infra total 135, got %v", data.Infrastructure.Total)
	}
	if data.Traffic.AverageBurnPerMB != defaultBurnPerMB {
		t.Errorf("expected default burn per MB %d, got %v", defaultBurnPerMB, data.Traffic.AverageBurnPerMB)
	}
	if !data.Period.Start.Equal(start) || !data.Period.End.Equal(end) {
		t.Error("period should echo the requested window")
	}
	// Upstream exposes no reward feed; equal zero periods mean no change
	// attribution.
	if len(data.Changes) != 0 {
		t.Errorf("expected no detected changes, got %d", len(data.Changes))
	}
}
