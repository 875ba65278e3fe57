package utils

import (
	"strings"

	"github.com/hashicorp/go-version"
)

// VersionPolicy holds the network's validator version requirements.
type VersionPolicy struct {
	CurrentStable string
	MinSupported  string
}

var DefaultVersionPolicy = VersionPolicy{
	CurrentStable: "0.4.20",
	MinSupported:  "0.4.12",
}

// ClassifyVersion maps a validator's reported version against the policy.
// Returns the status label and an upgrade severity ("none", "info",
// "warning", "critical"). Unparseable versions classify as unknown.
func ClassifyVersion(reported string, policy *VersionPolicy) (status string, severity string) {
	if policy == nil {
		policy = &DefaultVersionPolicy
	}
	if reported == "" {
		return "unknown", "info"
	}

	reported = strings.TrimPrefix(reported, "v")
	ver, err := version.NewVersion(reported)
	if err != nil {
		return "unknown", "info"
	}

	minSupported, err := version.NewVersion(policy.MinSupported)
	if err == nil && ver.LessThan(minSupported) {
		return "unsupported", "critical"
	}

	current, err := version.NewVersion(policy.CurrentStable)
	if err == nil && ver.LessThan(current) {
		return "outdated", "warning"
	}

	return "current", "none"
}
