package dto

import "time"

// EventResponse is the payload pushed to websocket subscribers after a mutation.
type EventResponse struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	EntityType string                 `json:"entityType"`
	EntityID   uint                   `json:"entityId"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	OccurredAt time.Time              `json:"occurredAt"`
}
