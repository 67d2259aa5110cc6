// Package queue defines message payloads exchanged over the message broker
// plus the publisher and background consumer for them.
package queue

// RegistrationCreatedEvent is published when a user successfully signs up
// for an event. It carries enough information for downstream consumers to
// log or notify without querying the primary database.
type RegistrationCreatedEvent struct {
	RegistrationID int64  `json:"registration_id"`
	EventID        int64  `json:"event_id"`
	EventName      string `json:"event_name"`
	EventSlug      string `json:"event_slug"`
	UserID         int64  `json:"user_id"`
	Username       string `json:"username"`
	Comment        string `json:"comment"`
	CreatedAt      string `json:"created_at"`
}
