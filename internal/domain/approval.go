package domain

import "time"

// ApprovalStatus enumerates lifecycle states for staff approval requests.
type ApprovalStatus string

const (
	ApprovalStatusNone     ApprovalStatus = "NONE"
	ApprovalStatusPending  ApprovalStatus = "PENDING"
	ApprovalStatusApproved ApprovalStatus = "APPROVED"
	ApprovalStatusRejected ApprovalStatus = "REJECTED"
)

// ApprovalDecision enumerates admin decisions on a pending request.
type ApprovalDecision string

const (
	DecisionApprove ApprovalDecision = "APPROVE"
	DecisionReject  ApprovalDecision = "REJECT"
)

// ApprovalRequest is the audit record of a staff onboarding request.
// Rows are never deleted; terminal states are APPROVED and REJECTED.
type ApprovalRequest struct {
	ID            string
	Identity      string
	Email         string
	FullName      string
	RequestedRole Role
	StoredRole    Role
	// Note carries the role-shim annotation when StoredRole != RequestedRole.
	Note      string
	Status    ApprovalStatus
	DecidedBy *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NeedsReclassification reports whether the stored role diverged from the
// requested one and an admin has to reclassify manually.
func (r *ApprovalRequest) NeedsReclassification() bool {
	return r.StoredRole != r.RequestedRole
}
