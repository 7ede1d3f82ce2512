package appointment

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const confirmedText = " APPOINTMENT CONFIRMED\n\n" +
	"Your appointment has been booked.\n" +
	"Confirmation: HC48213\n" +
	"Department: Cardiology\n" +
	"Doctor: Dr. Patel\n" +
	"Date: Tuesday, March 5, 2024 at 14:30\n" +
	"Please arrive 15 minutes early."

const rescheduledText = " APPOINTMENT RESCHEDULED\n\n" +
	"New time: Friday, March 8, 2024 at 09:30\n" +
	"Department: Cardiology\n" +
	"Doctor: Dr. Okafor\n" +
	"Confirmation: HC48213"

const cancelledText = " APPOINTMENT CANCELLED\n\n" +
	"Doctor: Dr. Patel\n" +
	"Confirmation: HC48213\n\n" +
	"Hope you feel better."

func TestExtract_Confirmed(t *testing.T) {
	ev, ok := Extract("APPOINTMENT CONFIRMED\n...Confirmation: HC123\nDate: Monday, January 1, 2024 at 10:00\nDoctor: Dr. Lee\n")
	require.True(t, ok)
	require.Equal(t, Event{
		Kind:           Created,
		ConfirmationID: "HC123",
		Date:           "Monday, January 1, 2024",
		Time:           "10:00",
		Doctor:         "Dr. Lee",
	}, ev)
}

func TestExtract_ConfirmedAllFields(t *testing.T) {
	ev, ok := Extract(confirmedText)
	require.True(t, ok)
	require.Equal(t, Event{
		Kind:           Created,
		ConfirmationID: "HC48213",
		Date:           "Tuesday, March 5, 2024",
		Time:           "14:30",
		Doctor:         "Dr. Patel",
		Department:     "Cardiology",
	}, ev)
}

func TestExtract_ConfirmedDefaults(t *testing.T) {
	ev, ok := Extract("APPOINTMENT CONFIRMED\nConfirmation: AB7\nDate: Wednesday, May 1, 2024\n")
	require.True(t, ok)
	require.Equal(t, "AB7", ev.ConfirmationID)
	require.Equal(t, "Wednesday, May 1, 2024", ev.Date)
	require.Empty(t, ev.Time, "missing time half")
	require.Equal(t, DefaultDoctor, ev.Doctor)
	require.Empty(t, ev.Department)

	ev, ok = Extract("APPOINTMENT CONFIRMED\nConfirmation: AB8")
	require.True(t, ok)
	require.Empty(t, ev.Date)
	require.Empty(t, ev.Time)
}

func TestExtract_LabelsMustStartALine(t *testing.T) {
	text := "APPOINTMENT CONFIRMED\n" +
		"Your follow-up Due Date: Friday, June 7, 2024 at 08:00 is unrelated.\n" +
		"• Doctor: someone else\n" +
		"Confirmation: HC321\n" +
		"  Doctor: Dr. Lee\n" +
		"Date: Monday, June 3, 2024 at 11:00\n"

	ev, ok := Extract(text)
	require.True(t, ok)
	require.Equal(t, "Monday, June 3, 2024", ev.Date)
	require.Equal(t, "11:00", ev.Time)
	require.Equal(t, "Dr. Lee", ev.Doctor, "indented labels still count")
}

func TestExtract_Rescheduled(t *testing.T) {
	ev, ok := Extract(rescheduledText)
	require.True(t, ok)
	require.Equal(t, Event{
		Kind:           Updated,
		ConfirmationID: "HC48213",
		Date:           "Friday, March 8, 2024",
		Time:           "09:30",
		Doctor:         "Dr. Okafor",
	}, ev)
}

func TestExtract_RescheduledNeedsNewTime(t *testing.T) {
	_, ok := Extract("APPOINTMENT RESCHEDULED\nConfirmation: HC1\n")
	require.False(t, ok)
}

func TestExtract_Cancelled(t *testing.T) {
	ev, ok := Extract(cancelledText)
	require.True(t, ok)
	require.Equal(t, Event{Kind: Removed, ConfirmationID: "HC48213"}, ev)
}

func TestExtract_NoEvent(t *testing.T) {
	tests := map[string]string{
		"plain prose":          "Please describe your symptoms.",
		"empty":                "",
		"lowercase marker":     "appointment confirmed\nConfirmation: HC1\n",
		"marker without id":    "APPOINTMENT CONFIRMED\nDate: Monday, January 1, 2024 at 10:00\n",
		"id without digits":    "APPOINTMENT CANCELLED\nConfirmation: pending\n",
		"cancel prompt":        " WHICH APPOINTMENT TO CANCEL?\n\n1. HC12345\n",
		"urgent triage banner": " GP APPOINTMENT RECOMMENDED\n",
	}
	for name, text := range tests {
		t.Run(name, func(t *testing.T) {
			_, ok := Extract(text)
			require.False(t, ok)
		})
	}
}

func TestHasMarker(t *testing.T) {
	require.True(t, HasMarker("APPOINTMENT CANCELLED\nno id here"))
	require.False(t, HasMarker("YOUR APPOINTMENTS:"))
}
