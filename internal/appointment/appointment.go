// Package appointment turns assistant replies into lifecycle events and keeps
// the session's appointment list consistent with them.
package appointment

// Appointment is one booked appointment, keyed by its confirmation id.
type Appointment struct {
	ConfirmationID string `json:"confirmation_id"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	Doctor         string `json:"doctor"`
	Department     string `json:"department,omitempty"`
}

// Kind is the lifecycle transition an Event describes.
type Kind string

const (
	Created Kind = "created"
	Updated Kind = "updated"
	Removed Kind = "removed"
)

// Event is a lifecycle instruction extracted from a single reply.
// Removed events only carry the confirmation id.
type Event struct {
	Kind           Kind
	ConfirmationID string
	Date           string
	Time           string
	Doctor         string
	Department     string
}
