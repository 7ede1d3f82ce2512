// Package calendar implements the booking calendar: a month grid with
// per-day eligibility, a fixed daily slot grid, and a single (date, time)
// selection handed to a completion callback.
package calendar

import (
	"slices"
	"time"
)

// LongDateLayout renders dates as "Monday, January 1, 2024".
const LongDateLayout = "Monday, January 2, 2006"

// Slots is the daily time-slot sequence offered for every bookable day.
var Slots = []string{
	"09:00", "09:30", "10:00", "10:30", "11:00", "11:30",
	"14:00", "14:30", "15:00", "15:30", "16:00", "16:30",
}

// Selection is the validated pair emitted on confirmation.
type Selection struct {
	Date string
	Time string
}

// Day is one concrete calendar day of a grid.
type Day struct {
	Date         time.Time
	IsPast       bool
	IsWeekend    bool
	IsToday      bool
	IsSelectable bool
}

// Grid is a month laid out in Sunday-first weeks. Leading counts the empty
// cells before the 1st; there is no trailing padding.
type Grid struct {
	Year    int
	Month   time.Month
	Leading int
	Days    []Day
}

// Cells returns the grid as a flat row-major slice, nil for empty cells.
func (g Grid) Cells() []*Day {
	cells := make([]*Day, g.Leading, g.Leading+len(g.Days))
	for i := range g.Days {
		cells = append(cells, &g.Days[i])
	}
	return cells
}

// Option configures a Calendar.
type Option func(*Calendar)

// WithClock overrides the source of "now".
func WithClock(now func() time.Time) Option {
	return func(c *Calendar) { c.now = now }
}

// WithLocation sets the timezone days are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(c *Calendar) { c.loc = loc }
}

// WithOnConfirm registers the completion callback.
func WithOnConfirm(fn func(Selection)) Option {
	return func(c *Calendar) { c.onConfirm = fn }
}

// Calendar holds the displayed month and the transient selection. It is not
// safe for concurrent use.
type Calendar struct {
	now       func() time.Time
	loc       *time.Location
	onConfirm func(Selection)

	year  int
	month time.Month

	selectedDate *time.Time
	selectedTime string
}

// New returns a calendar showing the current month.
func New(opts ...Option) *Calendar {
	c := &Calendar{now: time.Now, loc: time.Local}
	for _, opt := range opts {
		opt(c)
	}
	today := c.today()
	c.year, c.month = today.Year(), today.Month()
	return c
}

func (c *Calendar) today() time.Time {
	n := c.now().In(c.loc)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, c.loc)
}

// Month returns the displayed year and month.
func (c *Calendar) Month() (int, time.Month) {
	return c.year, c.month
}

// Title renders the displayed month as "January 2024".
func (c *Calendar) Title() string {
	return time.Date(c.year, c.month, 1, 0, 0, 0, 0, c.loc).Format("January 2006")
}

// Grid lays out the displayed month.
func (c *Calendar) Grid() Grid {
	return BuildGrid(c.year, c.month, c.today())
}

// BuildGrid lays out year/month relative to today. Only the calendar date of
// today matters.
func BuildGrid(year int, month time.Month, today time.Time) Grid {
	loc := today.Location()
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, loc)

	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	n := daysIn(year, month, loc)

	g := Grid{Year: year, Month: month, Leading: int(first.Weekday()), Days: make([]Day, 0, n)}
	for d := 1; d <= n; d++ {
		g.Days = append(g.Days, classify(time.Date(year, month, d, 0, 0, 0, 0, loc), today))
	}
	return g
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	// day 0 of the next month is the last day of this one
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

func classify(date, today time.Time) Day {
	wd := date.Weekday()
	d := Day{
		Date:      date,
		IsPast:    date.Before(today),
		IsWeekend: wd == time.Saturday || wd == time.Sunday,
		IsToday:   sameDay(date, today),
	}
	d.IsSelectable = !d.IsPast && !d.IsWeekend
	return d
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Classify reports the eligibility of a single date.
func (c *Calendar) Classify(date time.Time) Day {
	date = date.In(c.loc)
	return classify(time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, c.loc), c.today())
}

// NextMonth advances the displayed month. Forward navigation is unbounded.
func (c *Calendar) NextMonth() {
	t := time.Date(c.year, c.month+1, 1, 0, 0, 0, 0, c.loc)
	c.year, c.month = t.Year(), t.Month()
}

// PrevMonth steps back one month unless that would go before the current
// month. It reports whether the displayed month changed.
func (c *Calendar) PrevMonth() bool {
	t := time.Date(c.year, c.month-1, 1, 0, 0, 0, 0, c.loc)
	today := c.today()
	if t.Year() < today.Year() || (t.Year() == today.Year() && t.Month() < today.Month()) {
		return false
	}
	c.year, c.month = t.Year(), t.Month()
	return true
}

// SelectDate makes date the current selection if it is selectable. Other
// days are ignored and false is returned.
func (c *Calendar) SelectDate(date time.Time) bool {
	d := c.Classify(date)
	if !d.IsSelectable {
		return false
	}
	c.selectedDate = &d.Date
	return true
}

// SelectDay selects a day of the displayed month by its number.
func (c *Calendar) SelectDay(day int) bool {
	if day < 1 || day > daysIn(c.year, c.month, c.loc) {
		return false
	}
	return c.SelectDate(time.Date(c.year, c.month, day, 0, 0, 0, 0, c.loc))
}

// Slots returns the slot sequence. The same slots apply to every date.
func (c *Calendar) Slots() []string {
	return slices.Clone(Slots)
}

// SelectTime picks a slot. A date must already be selected and the slot must
// belong to the sequence.
func (c *Calendar) SelectTime(slot string) bool {
	if c.selectedDate == nil || !slices.Contains(Slots, slot) {
		return false
	}
	c.selectedTime = slot
	return true
}

// Selected returns the current selection, if any part of it is set.
func (c *Calendar) Selected() (date time.Time, slot string, ok bool) {
	if c.selectedDate == nil {
		return time.Time{}, c.selectedTime, false
	}
	return *c.selectedDate, c.selectedTime, true
}

// CanConfirm reports whether both a date and a time are selected.
func (c *Calendar) CanConfirm() bool {
	return c.selectedDate != nil && c.selectedTime != ""
}

// Confirm emits the selection through the completion callback and clears
// it. It returns false and emits nothing when the selection is incomplete.
func (c *Calendar) Confirm() (Selection, bool) {
	if !c.CanConfirm() {
		return Selection{}, false
	}
	sel := Selection{Date: FormatLongDate(*c.selectedDate), Time: c.selectedTime}
	c.Reset()
	if c.onConfirm != nil {
		c.onConfirm(sel)
	}
	return sel, true
}

// Reset discards the transient selection.
func (c *Calendar) Reset() {
	c.selectedDate = nil
	c.selectedTime = ""
}

// FormatLongDate renders t as "Monday, January 1, 2024".
func FormatLongDate(t time.Time) string {
	return t.Format(LongDateLayout)
}
