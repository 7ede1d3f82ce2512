// Package session owns a single chat session: the transcript, the
// connection status and the local appointment list. It drives the transport,
// the appointment extractor and the booking calendar in response to user
// input and action clicks.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/qmuntal/stateless"

	"github.com/comigor/triage-go/internal/appointment"
	"github.com/comigor/triage-go/internal/calendar"
	"github.com/comigor/triage-go/internal/history"
	"github.com/comigor/triage-go/internal/logger"
	"github.com/comigor/triage-go/internal/transport"
)

// Message and Action are the transcript types.
type (
	Message = history.Message
	Action  = history.Action
)

// Reserved commands. The first two are handled locally and never reach the
// backend.
const (
	CommandOpenCalendar     = "/open_calendar"
	CommandViewAppointments = "/view_appointments"
	CommandNurse            = "/nurse"
	DefaultGreetCommand     = "/greet"
)

const (
	welcomeText   = "Welcome! How can I help you today?"
	scheduleText  = "schedule appointment"
	defaultHint   = "Start the conversation server and check backend.url in config.yaml."
	bookingFormat = "Book appointment for %s at %s"
)

var (
	// ErrBusy is returned when a request is already in flight.
	ErrBusy = errors.New("a request is already in flight")
	// ErrEmptyMessage is returned for blank input.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("session already started")
	// ErrIncompleteSelection is returned when the calendar has no date and time to confirm.
	ErrIncompleteSelection = errors.New("select a date and a time first")
)

// Recorder receives every transcript message as it is appended.
type Recorder interface {
	Save(msg history.Message)
}

// Option configures a Controller.
type Option func(*Controller)

// WithSessionID fixes the session id instead of generating one.
func WithSessionID(id string) Option {
	return func(c *Controller) { c.sessionID = id }
}

// WithGreetCommand overrides the command sent by Start.
func WithGreetCommand(cmd string) Option {
	return func(c *Controller) { c.greetCommand = cmd }
}

// WithRecorder persists transcript messages.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithClock overrides the timestamp source for messages.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithCalendarOptions is applied to every calendar the session opens.
func WithCalendarOptions(opts ...calendar.Option) Option {
	return func(c *Controller) { c.calendarOpts = append(c.calendarOpts, opts...) }
}

// WithOperatorHint sets the instructions shown when the backend is down.
func WithOperatorHint(hint string) Option {
	return func(c *Controller) { c.operatorHint = hint }
}

// Controller is the state of one chat session. All methods are safe to call
// from multiple goroutines, but only one exchange with the backend runs at a
// time; overlapping calls get ErrBusy.
type Controller struct {
	transport    transport.Transport
	sessionID    string
	greetCommand string
	recorder     Recorder
	now          func() time.Time
	calendarOpts []calendar.Option
	operatorHint string

	fsm  *stateless.StateMachine
	busy atomic.Bool

	mu               sync.Mutex
	started          bool
	transcript       []Message
	ledger           *appointment.Ledger
	appointmentsOpen bool
	calendar         *calendar.Calendar
}

// New creates a session controller in the connecting state.
func New(t transport.Transport, opts ...Option) *Controller {
	c := &Controller{
		transport:    t,
		sessionID:    "session_" + uuid.NewString(),
		greetCommand: DefaultGreetCommand,
		now:          time.Now,
		operatorHint: defaultHint,
		ledger:       appointment.NewLedger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.fsm = newStatusMachine(c.sessionID)
	return c
}

// SessionID returns the id sent as the sender of every request.
func (c *Controller) SessionID() string { return c.sessionID }

// Status returns the current connection status.
func (c *Controller) Status() Status {
	return c.fsm.MustState().(Status)
}

// Typing reports whether a request is in flight. Input should stay disabled
// while it is true.
func (c *Controller) Typing() bool { return c.busy.Load() }

// Transcript returns a copy of the messages so far.
func (c *Controller) Transcript() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.transcript)
}

// Appointments returns the locally known appointments.
func (c *Controller) Appointments() []appointment.Appointment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ledger.List()
}

// PendingActions returns the actions of the latest message when it came from
// the assistant. Older actions are no longer offered.
func (c *Controller) PendingActions() []Action {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.transcript) == 0 {
		return nil
	}
	last := c.transcript[len(c.transcript)-1]
	if last.Sender != history.SenderAssistant {
		return nil
	}
	return slices.Clone(last.Actions)
}

// Start sends the greet command once and records the welcome replies.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	c.mu.Unlock()

	if !c.acquire() {
		return ErrBusy
	}
	defer c.release()

	c.exchange(ctx, "", c.greetCommand, true)
	return nil
}

// Send submits free text typed by the user. Text mentioning both "view" and
// "appointment" opens the appointment panel instead of reaching the backend.
// Transport failures are not returned; they show up in the transcript and
// the status.
func (c *Controller) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	if wantsAppointmentList(text) {
		c.OpenAppointments()
		return nil
	}
	if !c.acquire() {
		return ErrBusy
	}
	defer c.release()

	c.exchange(ctx, text, text, false)
	return nil
}

func wantsAppointmentList(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "view") && strings.Contains(lower, "appointment")
}

// Choose handles a click on an action. Calendar and appointment-list actions
// stay local; anything else sends the command while showing the label.
func (c *Controller) Choose(ctx context.Context, a Action) error {
	switch a.Command {
	case CommandOpenCalendar:
		c.OpenCalendar()
		return nil
	case CommandViewAppointments:
		c.OpenAppointments()
		return nil
	}
	if strings.TrimSpace(a.Command) == "" {
		return ErrEmptyMessage
	}
	if !c.acquire() {
		return ErrBusy
	}
	defer c.release()

	label := a.Label
	if strings.TrimSpace(label) == "" {
		label = a.Command
	}
	c.exchange(ctx, label, a.Command, false)
	return nil
}

// SpeakToNurse asks the backend to hand over to a nurse.
func (c *Controller) SpeakToNurse(ctx context.Context) error {
	return c.Choose(ctx, Action{Label: "Speak to nurse", Command: CommandNurse})
}

// CancelAppointment drops the appointment locally right away, closes the
// panel and asks the backend to cancel it.
func (c *Controller) CancelAppointment(ctx context.Context, id string) error {
	if !c.acquire() {
		return ErrBusy
	}
	defer c.release()

	c.mu.Lock()
	c.ledger.Apply(appointment.Event{Kind: appointment.Removed, ConfirmationID: id})
	c.appointmentsOpen = false
	c.mu.Unlock()

	cmd := "/cancel_apt_" + id
	c.exchange(ctx, cmd, cmd, false)
	return nil
}

// RescheduleAppointment asks the backend to move an appointment. The list is
// only updated once the backend confirms the new time.
func (c *Controller) RescheduleAppointment(ctx context.Context, id string) error {
	c.CloseAppointments()
	return c.Send(ctx, "/reschedule_apt_"+id)
}

// ScheduleNow starts a booking conversation from the empty appointment panel.
func (c *Controller) ScheduleNow(ctx context.Context) error {
	c.CloseAppointments()
	return c.Send(ctx, scheduleText)
}

// BookingMessage is the text sent for a confirmed calendar selection.
func BookingMessage(sel calendar.Selection) string {
	return fmt.Sprintf(bookingFormat, sel.Date, sel.Time)
}

// Book closes the calendar and requests the selected slot. When a request
// is already in flight the calendar stays open and ErrBusy is returned.
func (c *Controller) Book(ctx context.Context, sel calendar.Selection) error {
	if !c.acquire() {
		return ErrBusy
	}
	defer c.release()

	c.book(ctx, sel)
	return nil
}

// ConfirmCalendar confirms the open calendar's selection and books it. The
// selection is only consumed once the request can be sent.
func (c *Controller) ConfirmCalendar(ctx context.Context) error {
	c.mu.Lock()
	cal := c.calendar
	c.mu.Unlock()
	if cal == nil || !cal.CanConfirm() {
		return ErrIncompleteSelection
	}
	if !c.acquire() {
		return ErrBusy
	}
	defer c.release()

	sel, ok := cal.Confirm()
	if !ok {
		return ErrIncompleteSelection
	}
	c.book(ctx, sel)
	return nil
}

// book sends the booking message for sel. The caller holds the busy flag.
func (c *Controller) book(ctx context.Context, sel calendar.Selection) {
	c.CloseCalendar()
	msg := BookingMessage(sel)
	c.exchange(ctx, msg, msg, false)
}

// OpenAppointments shows the appointment panel.
func (c *Controller) OpenAppointments() {
	c.mu.Lock()
	c.appointmentsOpen = true
	c.mu.Unlock()
}

// CloseAppointments hides the appointment panel.
func (c *Controller) CloseAppointments() {
	c.mu.Lock()
	c.appointmentsOpen = false
	c.mu.Unlock()
}

// AppointmentsOpen reports whether the appointment panel is shown.
func (c *Controller) AppointmentsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.appointmentsOpen
}

// OpenCalendar shows a fresh calendar, discarding any earlier selection.
func (c *Controller) OpenCalendar() *calendar.Calendar {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calendar = calendar.New(c.calendarOpts...)
	return c.calendar
}

// Calendar returns the open calendar.
func (c *Controller) Calendar() (*calendar.Calendar, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calendar, c.calendar != nil
}

// CloseCalendar hides the calendar and drops its selection.
func (c *Controller) CloseCalendar() {
	c.mu.Lock()
	c.calendar = nil
	c.mu.Unlock()
}

func (c *Controller) acquire() bool { return c.busy.CompareAndSwap(false, true) }

func (c *Controller) release() { c.busy.Store(false) }

// exchange runs one request. display is recorded as the user's message
// unless greeting; command is what the backend receives. The caller holds
// the busy flag.
func (c *Controller) exchange(ctx context.Context, display, command string, greeting bool) {
	if !greeting {
		c.appendMessage(history.SenderUser, display, nil)
	}

	replies, err := c.transport.Send(ctx, c.sessionID, command)
	if err != nil {
		outcome := transport.Classify(err)
		logger.L.Error("conversation exchange failed", "session_id", c.sessionID, "outcome", outcome, "error", err)
		c.fire(ctx, triggerExchangeFailed)
		c.appendMessage(history.SenderAssistant, c.failureText(outcome, greeting), nil)
		return
	}
	c.fire(ctx, triggerExchangeSucceeded)

	for _, r := range replies {
		c.applyReply(r)
		text := r.Text
		if greeting && text == "" {
			text = welcomeText
		}
		c.appendMessage(history.SenderAssistant, text, actionsOf(r.Buttons))
	}
}

// applyReply folds the reply's lifecycle event, if any, into the ledger.
func (c *Controller) applyReply(r transport.Reply) {
	ev, ok := appointment.Extract(r.Text)
	if !ok {
		if appointment.HasMarker(r.Text) {
			logger.L.Warn("appointment marker without parseable fields; ignored", "session_id", c.sessionID)
		}
		return
	}
	c.mu.Lock()
	changed := c.ledger.Apply(ev)
	c.mu.Unlock()
	logger.L.Info("appointment event", "session_id", c.sessionID, "kind", ev.Kind, "confirmation_id", ev.ConfirmationID, "changed", changed)
}

func (c *Controller) fire(ctx context.Context, t trigger) {
	if err := c.fsm.FireCtx(ctx, t); err != nil {
		logger.L.Warn("FSM fire error", "trigger", t, "error", err)
	}
}

func (c *Controller) failureText(outcome transport.Outcome, greeting bool) string {
	var b strings.Builder
	if greeting {
		b.WriteString("HEALTHCARE TRIAGE SYSTEM\n\n")
	}
	switch outcome {
	case transport.OutcomeBackendError:
		b.WriteString("⚠️ Failed to get response. The triage assistant backend returned an error.")
	default:
		b.WriteString("⚠️ Connection error. Cannot reach the triage assistant backend.")
	}
	b.WriteString("\n\n")
	b.WriteString(c.operatorHint)
	return b.String()
}

func actionsOf(buttons []transport.Button) []Action {
	if len(buttons) == 0 {
		return nil
	}
	out := make([]Action, 0, len(buttons))
	for _, b := range buttons {
		out = append(out, Action{Label: b.Title, Command: b.Payload})
	}
	return out
}

func (c *Controller) appendMessage(sender history.Sender, text string, actions []Action) {
	msg := Message{
		ID:        uuid.NewString(),
		SessionID: c.sessionID,
		Sender:    sender,
		Text:      text,
		Actions:   actions,
		CreatedAt: c.now(),
	}
	c.mu.Lock()
	c.transcript = append(c.transcript, msg)
	c.mu.Unlock()

	if c.recorder != nil {
		c.recorder.Save(msg)
	}
}
