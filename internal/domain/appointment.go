package domain

import "time"

// AppointmentStatus is the normalized status vocabulary the reconciler works
// in. Each storage representation maps its own column values onto this set.
type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "PENDING"
	AppointmentScheduled AppointmentStatus = "SCHEDULED"
	AppointmentConfirmed AppointmentStatus = "CONFIRMED"
	AppointmentCancelled AppointmentStatus = "CANCELLED"
	AppointmentCompleted AppointmentStatus = "COMPLETED"
)

// SelfServiceAppointment is a booking created by a patient directly. Doctor
// and department may be unassigned at creation time.
type SelfServiceAppointment struct {
	ID           string
	OwnerID      string
	DoctorID     *string
	DepartmentID *string
	PreferredAt  time.Time
	Status       AppointmentStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ScheduledAppointment is a booking created by staff against a patient chart.
// The patient reference is a chart id, not an account identity; the linked
// account (if any) is resolved through PatientAccount.
type ScheduledAppointment struct {
	ID          string
	PatientID   string
	DoctorID    string
	ScheduledAt time.Time
	Status      AppointmentStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PatientAccount links a patient chart to a portal account identity.
// AccountID is nil for patients without portal access.
type PatientAccount struct {
	PatientID string
	AccountID *string
	FullName  string
}
