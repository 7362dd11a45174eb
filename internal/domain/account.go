package domain

import "time"

// AccountKind differentiates patient portal accounts from staff accounts.
type AccountKind string

const (
	AccountKindPatient AccountKind = "PATIENT"
	AccountKindStaff   AccountKind = "STAFF"
)

// Account is an authenticated portal identity. Staff authority never comes
// from the account itself, only from a RoleAssignment for its ID.
type Account struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Kind         AccountKind
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
