package appointment

import (
	"slices"

	"github.com/elliotchance/pie/v2"

	"github.com/comigor/triage-go/internal/logger"
)

// Ledger is the session's appointment list with set semantics on the
// confirmation id. It is a cache of what the assistant reported, not a system
// of record. Callers serialize access; the session controller allows a single
// request in flight.
type Ledger struct {
	items []Appointment
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// List returns a copy of the appointments in booking order.
func (l *Ledger) List() []Appointment {
	return slices.Clone(l.items)
}

// Len returns the number of appointments.
func (l *Ledger) Len() int {
	return len(l.items)
}

// Get looks an appointment up by confirmation id.
func (l *Ledger) Get(id string) (Appointment, bool) {
	i := l.index(id)
	if i < 0 {
		return Appointment{}, false
	}
	return l.items[i], true
}

func (l *Ledger) index(id string) int {
	return slices.IndexFunc(l.items, func(a Appointment) bool { return a.ConfirmationID == id })
}

// Apply folds one event into the list and reports whether it changed.
//
// Created upserts: a repeated confirmation for a known id overwrites the
// entry in place. Updated and Removed on an unknown id are no-ops.
func (l *Ledger) Apply(ev Event) bool {
	if ev.ConfirmationID == "" {
		return false
	}
	i := l.index(ev.ConfirmationID)

	switch ev.Kind {
	case Created:
		apt := Appointment{
			ConfirmationID: ev.ConfirmationID,
			Date:           ev.Date,
			Time:           ev.Time,
			Doctor:         ev.Doctor,
			Department:     ev.Department,
		}
		if i >= 0 {
			logger.L.Debug("confirmation repeated for known appointment; updating in place", "confirmation_id", ev.ConfirmationID)
			l.items[i] = apt
			return true
		}
		l.items = append(l.items, apt)
		return true

	case Updated:
		if i < 0 {
			logger.L.Debug("reschedule for unknown appointment ignored", "confirmation_id", ev.ConfirmationID)
			return false
		}
		apt := &l.items[i]
		apt.Date, apt.Time = ev.Date, ev.Time
		if ev.Doctor != "" {
			apt.Doctor = ev.Doctor
		}
		return true

	case Removed:
		if i < 0 {
			logger.L.Debug("cancellation for unknown appointment ignored", "confirmation_id", ev.ConfirmationID)
			return false
		}
		l.items = pie.Filter(l.items, func(a Appointment) bool { return a.ConfirmationID != ev.ConfirmationID })
		return true
	}
	return false
}
