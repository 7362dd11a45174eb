package dto

import "time"

// NotificationResponse is the stable notification shape other surfaces
// depend on; field names must not change across the role-fallback path.
type NotificationResponse struct {
	ID         string    `json:"id"`
	Recipient  string    `json:"recipient"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	Category   string    `json:"category"`
	EntityType *string   `json:"entity_type"`
	EntityID   *string   `json:"entity_id"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"created_at"`
}
