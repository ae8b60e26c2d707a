package models

type EventType string

const (
	EventTypeProfileCreated      EventType = "profile.created"
	EventTypeProfileUpdated      EventType = "profile.updated"
	EventTypeRegistrationCreated EventType = "registration.created"

	EventTypeEventProvisioned EventType = "event.provisioned"
	EventTypeUserRegistered   EventType = "user.registered"
)

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"`
	Version   string    `json:"version"`
}

type ProfileEvent struct {
	BaseEvent
	Identifier    string   `json:"identifier"`
	ChangedFields []string `json:"changedFields,omitempty"`
}

type RegistrationEvent struct {
	BaseEvent
	Event      string `json:"event"`
	Identifier string `json:"identifier"`
}

// EventProvisionedEvent asks the service to open a new event for registration.
type EventProvisionedEvent struct {
	BaseEvent
	Event string `json:"event"`
}

type UserRegisteredEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}
