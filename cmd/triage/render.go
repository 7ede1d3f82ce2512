package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/comigor/triage-go/internal/calendar"
	"github.com/comigor/triage-go/internal/history"
	"github.com/comigor/triage-go/internal/session"
)

func renderMessage(w io.Writer, m history.Message) {
	who := "assistant"
	if m.Sender == history.SenderUser {
		who = "you"
	}
	lines := strings.Split(m.Text, "\n")
	fmt.Fprintf(w, "%s: %s\n", who, lines[0])
	pad := strings.Repeat(" ", len(who)+2)
	for _, l := range lines[1:] {
		fmt.Fprintf(w, "%s%s\n", pad, l)
	}
}

// renderCalendar draws the month grid. Days that cannot be booked are
// marked with '-', today with '*' and the selected day with '>'.
func renderCalendar(w io.Writer, cal *calendar.Calendar) {
	date, slot, hasDate := cal.Selected()

	fmt.Fprintf(w, "\n   %s\n", cal.Title())
	fmt.Fprintln(w, " Su  Mo  Tu  We  Th  Fr  Sa")
	for i, d := range cal.Grid().Cells() {
		if d == nil {
			fmt.Fprint(w, "    ")
		} else {
			mark := " "
			switch {
			case hasDate && d.Date.Equal(date):
				mark = ">"
			case !d.IsSelectable:
				mark = "-"
			case d.IsToday:
				mark = "*"
			}
			fmt.Fprintf(w, "%s%2d ", mark, d.Date.Day())
		}
		if i%7 == 6 {
			fmt.Fprintln(w)
		}
	}
	fmt.Fprintln(w)

	if !hasDate {
		fmt.Fprintln(w, "Type a day number to pick a date, < and > to change month, x to close.")
		return
	}
	fmt.Fprintf(w, "%s\n", calendar.FormatLongDate(date))
	slots := cal.Slots()
	cells := make([]string, len(slots))
	for i, s := range slots {
		cells[i] = s
		if s == slot {
			cells[i] = "[" + s + "]"
		}
	}
	fmt.Fprintln(w, strings.Join(cells, " "))
	if cal.CanConfirm() {
		fmt.Fprintln(w, "Type ok to book, or pick another day or time.")
	} else {
		fmt.Fprintln(w, "Type a time to pick a slot.")
	}
}

func renderAppointments(w io.Writer, ctrl *session.Controller) {
	apts := ctrl.Appointments()
	fmt.Fprintln(w, "\n   Your appointments")
	if len(apts) == 0 {
		fmt.Fprintln(w, "No appointments yet. Type new to schedule one, x to close.")
		return
	}
	for _, a := range apts {
		fmt.Fprintf(w, "  %s  %s at %s  %s", a.ConfirmationID, a.Date, a.Time, a.Doctor)
		if a.Department != "" {
			fmt.Fprintf(w, " (%s)", a.Department)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, "Type cancel <id>, reschedule <id>, or x to close.")
}
