package model

import "time"

// Event represents a row in the `events` table. Slug is a
// normalized projection of Name, unique per event, and is
// recomputed whenever Name changes. CreatorID is set once at
// creation and never reassigned.
type Event struct {
	ID          int64     // events.id
	Name        string    // events.name
	Slug        string    // events.slug
	Description string    // events.description
	CreatorID   int64     // events.creator_id
	Created     time.Time // events.created
	Updated     time.Time // events.updated
}

// OwnerID reports the creator, satisfying the ownership guard's Owned
// interface.
func (e *Event) OwnerID() int64 { return e.CreatorID }

// Registration links a user to one event. Comment is sanitized
// free text supplied at signup. A user may hold at most one
// registration per event; the repository enforces this through a
// unique key on (user_id, event_id).
type Registration struct {
	ID      int64     // registrations.id
	UserID  int64     // registrations.user_id
	Name    string    // registrations.name (denormalized display name)
	Comment string    // registrations.comment
	EventID int64     // registrations.event_id
	Created time.Time // registrations.created
}
