package models

// GovernanceVote is one open governance vote. Lookups accept either the
// contract id or the tracking id; at least one is expected to be set.
type GovernanceVote struct {
	ContractID  string      `json:"contract_id,omitempty"`
	TrackingCID string      `json:"trackingCid,omitempty"`
	Status      string      `json:"status,omitempty"`
	AcceptCount int         `json:"acceptCount"`
	RejectCount int         `json:"rejectCount"`
	NoVoteCount int         `json:"noVoteCount"`
	Payload     VotePayload `json:"payload"`
}

type VotePayload struct {
	Requester  string `json:"requester,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Action     string `json:"action,omitempty"`
	VoteBefore string `json:"voteBefore,omitempty"`
}
