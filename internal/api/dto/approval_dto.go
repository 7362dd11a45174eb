package dto

import "time"

// DecisionRequest payload for an admin decision on a pending request.
type DecisionRequest struct {
	Decision string `json:"decision"`
}

// EscalationRequest payload for a permission escalation.
type EscalationRequest struct {
	Action        string `json:"action"`
	Justification string `json:"justification"`
}

// ApprovalResponse is the request record shown to admins and requesters.
type ApprovalResponse struct {
	ID                    string    `json:"id"`
	Identity              string    `json:"identity"`
	Email                 string    `json:"email"`
	FullName              string    `json:"full_name"`
	RequestedRole         string    `json:"requested_role"`
	StoredRole            string    `json:"stored_role"`
	Note                  string    `json:"note,omitempty"`
	Status                string    `json:"status"`
	NeedsReclassification bool      `json:"needs_reclassification"`
	CreatedAt             time.Time `json:"created_at"`
}

// StatusResponse is the poll-on-connect onboarding status.
type StatusResponse struct {
	Status string `json:"status"`
}
