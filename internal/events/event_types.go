package events

import (
	"time"

	"github.com/spec-kit/careflow-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventApprovalSubmitted    EventType = "approval_submitted"
	EventApprovalDecided      EventType = "approval_decided"
	EventEscalationRequested  EventType = "escalation_requested"
	EventAppointmentConfirmed EventType = "appointment_confirmed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Identity  string      `json:"identity"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ApprovalSubmittedPayload payload.
type ApprovalSubmittedPayload struct {
	RequestID     string                `json:"request_id"`
	RequestedRole domain.Role           `json:"requested_role"`
	StoredRole    domain.Role           `json:"stored_role"`
	Status        domain.ApprovalStatus `json:"status"`
}

// ApprovalDecidedPayload payload.
type ApprovalDecidedPayload struct {
	RequestID string                `json:"request_id"`
	Status    domain.ApprovalStatus `json:"status"`
	DecidedBy string                `json:"decided_by"`
}

// EscalationRequestedPayload payload.
type EscalationRequestedPayload struct {
	Action        string `json:"action"`
	Justification string `json:"justification"`
	AdminCount    int    `json:"admin_count"`
}

// AppointmentConfirmedPayload payload.
type AppointmentConfirmedPayload struct {
	AppointmentID string `json:"appointment_id"`
	Source        string `json:"source"`
}
