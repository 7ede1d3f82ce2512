package appointment

import (
	"regexp"
	"strings"
)

// Marker phrases the assistant embeds in its replies.
const (
	MarkerConfirmed   = "APPOINTMENT CONFIRMED"
	MarkerRescheduled = "APPOINTMENT RESCHEDULED"
	MarkerCancelled   = "APPOINTMENT CANCELLED"
)

// DefaultDoctor stands in when a confirmation names no doctor.
const DefaultDoctor = "Dr. Smith"

var (
	confirmationRe = regexp.MustCompile(`Confirmation: ([A-Za-z]+[0-9]+)`)
	dateRe         = labelRe("Date")
	newTimeRe      = labelRe("New time")
	doctorRe       = labelRe("Doctor")
	departmentRe   = labelRe("Department")
)

func labelRe(label string) *regexp.Regexp {
	// labels only count at the start of a line
	return regexp.MustCompile(`(?m)^[ \t]*` + regexp.QuoteMeta(label) + `: ([^\r\n]+)`)
}

// Extract inspects one reply text for a lifecycle marker. It returns false
// when there is no marker, or when the marker's required fields cannot be
// parsed; no partial event is ever produced.
func Extract(text string) (Event, bool) {
	var kind Kind
	switch {
	case strings.Contains(text, MarkerConfirmed):
		kind = Created
	case strings.Contains(text, MarkerRescheduled):
		kind = Updated
	case strings.Contains(text, MarkerCancelled):
		kind = Removed
	default:
		return Event{}, false
	}

	id := field(confirmationRe, text)
	if id == "" {
		return Event{}, false
	}
	ev := Event{Kind: kind, ConfirmationID: id}

	switch kind {
	case Created:
		ev.Date, ev.Time = splitAt(field(dateRe, text))
		ev.Doctor = field(doctorRe, text)
		if ev.Doctor == "" {
			ev.Doctor = DefaultDoctor
		}
		ev.Department = field(departmentRe, text)
	case Updated:
		when := field(newTimeRe, text)
		if when == "" {
			return Event{}, false
		}
		ev.Date, ev.Time = splitAt(when)
		ev.Doctor = field(doctorRe, text)
	}
	return ev, true
}

// HasMarker reports whether text carries any lifecycle marker, parseable or
// not.
func HasMarker(text string) bool {
	return strings.Contains(text, MarkerConfirmed) ||
		strings.Contains(text, MarkerRescheduled) ||
		strings.Contains(text, MarkerCancelled)
}

func field(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// splitAt splits "Monday, January 1, 2024 at 10:00" into date and time.
func splitAt(s string) (date, at string) {
	date, at, _ = strings.Cut(s, " at ")
	return strings.TrimSpace(date), strings.TrimSpace(at)
}
