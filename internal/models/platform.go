package models

import "time"

// Platform message types published for the platform ingestion worker.
const (
	PlatformTraits = "traits"
	PlatformTrack  = "track"
)

// UserIdent identifies a platform user for write-back and tracking.
type UserIdent struct {
	ID         string `json:"id,omitempty"`
	Email      string `json:"email,omitempty"`
	ExternalID string `json:"external_id,omitempty"`
}

// PlatformEvent is a tracked event sent to the platform.
type PlatformEvent struct {
	Name       string     `json:"name"`
	Properties Attributes `json:"properties"`
	Context    Attributes `json:"context,omitempty"`
}

// PlatformMessage is the body published over RabbitMQ for the platform.
type PlatformMessage struct {
	RequestID     string         `json:"request_id"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	ConnectorID   string         `json:"connector_id"`
	CreatedAt     time.Time      `json:"created_at"`
	Type          string         `json:"type"` // "traits" or "track"
	User          UserIdent      `json:"user"`
	Traits        Attributes     `json:"traits,omitempty"`
	Event         *PlatformEvent `json:"event,omitempty"`
}
