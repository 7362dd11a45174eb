package domain

import "time"

// NotificationCategory tags the workflow event a notification belongs to.
type NotificationCategory string

const (
	CategoryApprovalRequest   NotificationCategory = "approval_request"
	CategoryApprovalResult    NotificationCategory = "approval_result"
	CategoryPermissionRequest NotificationCategory = "permission_request"
	CategorySuccess           NotificationCategory = "success"
)

// EntityRef is a polymorphic reference to the record a notification is about.
type EntityRef struct {
	Type string
	ID   string
}

// Notification is an individually addressed, persisted workflow message.
// The field set is a stable contract with client UIs; mutated only by the
// recipient marking it read.
type Notification struct {
	ID         string
	Recipient  string
	Title      string
	Message    string
	Category   NotificationCategory
	EntityType *string
	EntityID   *string
	Read       bool
	CreatedAt  time.Time
}
