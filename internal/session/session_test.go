package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comigor/triage-go/internal/appointment"
	"github.com/comigor/triage-go/internal/calendar"
	"github.com/comigor/triage-go/internal/history"
	"github.com/comigor/triage-go/internal/transport"
)

type sent struct {
	sessionID string
	message   string
}

// mockTransport mirrors transport.Transport.
type mockTransport struct {
	sent     []sent
	SendFunc func(ctx context.Context, sessionID, message string) ([]transport.Reply, error)
}

func (m *mockTransport) Send(ctx context.Context, sessionID, message string) ([]transport.Reply, error) {
	m.sent = append(m.sent, sent{sessionID, message})
	if m.SendFunc != nil {
		return m.SendFunc(ctx, sessionID, message)
	}
	return []transport.Reply{{Text: "ok"}}, nil
}

func (m *mockTransport) messages() []string {
	out := make([]string, 0, len(m.sent))
	for _, s := range m.sent {
		out = append(out, s.message)
	}
	return out
}

func replying(replies ...transport.Reply) func(context.Context, string, string) ([]transport.Reply, error) {
	return func(context.Context, string, string) ([]transport.Reply, error) { return replies, nil }
}

func failing(err error) func(context.Context, string, string) ([]transport.Reply, error) {
	return func(context.Context, string, string) ([]transport.Reply, error) { return nil, err }
}

type memoryRecorder struct{ msgs []history.Message }

func (r *memoryRecorder) Save(m history.Message) { r.msgs = append(r.msgs, m) }

const confirmation = " APPOINTMENT CONFIRMED\n\n" +
	"Confirmation: HC123\n" +
	"Department: General Practice\n" +
	"Doctor: Dr. Lee\n" +
	"Date: Monday, January 15, 2024 at 10:00\n"

func TestStart_GreetSuccess(t *testing.T) {
	m := &mockTransport{SendFunc: replying(
		transport.Reply{Text: "Hello, I'm your triage assistant."},
		transport.Reply{Buttons: []transport.Button{{Title: "Book appointment", Payload: "/schedule"}}},
	)}
	rec := &memoryRecorder{}
	c := New(m, WithSessionID("session_test"), WithRecorder(rec))
	require.Equal(t, StatusConnecting, c.Status())

	require.NoError(t, c.Start(context.Background()))
	require.Equal(t, StatusConnected, c.Status())
	require.Equal(t, []sent{{"session_test", DefaultGreetCommand}}, m.sent)

	tr := c.Transcript()
	require.Len(t, tr, 2, "greet records no user message")
	require.Equal(t, "Hello, I'm your triage assistant.", tr[0].Text)
	require.Equal(t, welcomeText, tr[1].Text, "empty greet text falls back to the welcome line")
	require.Equal(t, history.SenderAssistant, tr[1].Sender)
	require.Equal(t, []Action{{Label: "Book appointment", Command: "/schedule"}}, c.PendingActions())
	require.Len(t, rec.msgs, 2)

	require.ErrorIs(t, c.Start(context.Background()), ErrAlreadyStarted)
	require.Len(t, m.sent, 1)
}

func TestStart_GreetFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"backend error", fmt.Errorf("%w: 500", transport.ErrBackend), "Failed to get response"},
		{"connection error", fmt.Errorf("%w: refused", transport.ErrUnreachable), "Connection error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(&mockTransport{SendFunc: failing(tt.err)}, WithOperatorHint("Run the server on port 5005."))
			require.NoError(t, c.Start(context.Background()))
			require.Equal(t, StatusDisconnected, c.Status())

			tr := c.Transcript()
			require.Len(t, tr, 1)
			require.Equal(t, history.SenderAssistant, tr[0].Sender)
			require.Contains(t, tr[0].Text, tt.want)
			require.Contains(t, tr[0].Text, "Run the server on port 5005.")
		})
	}
}

func TestStatusTransitions(t *testing.T) {
	fail := true
	m := &mockTransport{SendFunc: func(context.Context, string, string) ([]transport.Reply, error) {
		if fail {
			return nil, transport.ErrUnreachable
		}
		return []transport.Reply{{Text: "hi"}}, nil
	}}
	c := New(m)
	ctx := context.Background()

	require.NoError(t, c.Start(ctx))
	require.Equal(t, StatusDisconnected, c.Status())

	require.NoError(t, c.Send(ctx, "still there?"))
	require.Equal(t, StatusDisconnected, c.Status(), "no automatic reconnection")

	fail = false
	require.NoError(t, c.Send(ctx, "hello"))
	require.Equal(t, StatusConnected, c.Status())

	require.NoError(t, c.Send(ctx, "again"))
	require.Equal(t, StatusConnected, c.Status())

	fail = true
	require.NoError(t, c.Send(ctx, "and now?"))
	require.Equal(t, StatusDisconnected, c.Status())
}

func TestSend_AppendsUserAndAssistantMessages(t *testing.T) {
	m := &mockTransport{SendFunc: replying(
		transport.Reply{Text: "How long have you had the fever?"},
		transport.Reply{Text: "Pick one:", Buttons: []transport.Button{
			{Title: "Under 3 days", Payload: "/fever_short"},
			{Title: "Longer", Payload: "/fever_long"},
		}},
	)}
	c := New(m)

	require.NoError(t, c.Send(context.Background(), "I have a fever"))
	tr := c.Transcript()
	require.Len(t, tr, 3)
	require.Equal(t, history.SenderUser, tr[0].Sender)
	require.Equal(t, "I have a fever", tr[0].Text)
	require.Equal(t, "How long have you had the fever?", tr[1].Text)
	require.Len(t, c.PendingActions(), 2)
	require.Equal(t, []string{"I have a fever"}, m.messages())
	require.False(t, c.Typing())
}

func TestSend_EmptyIsRejected(t *testing.T) {
	m := &mockTransport{}
	c := New(m)
	require.ErrorIs(t, c.Send(context.Background(), "   "), ErrEmptyMessage)
	require.Empty(t, m.sent)
	require.Empty(t, c.Transcript())
}

func TestSend_ViewAppointmentsIsLocal(t *testing.T) {
	m := &mockTransport{}
	c := New(m)

	require.NoError(t, c.Send(context.Background(), "Can I VIEW my Appointments?"))
	require.True(t, c.AppointmentsOpen())
	require.Empty(t, m.sent)
	require.Empty(t, c.Transcript())

	c.CloseAppointments()
	require.False(t, c.AppointmentsOpen())
}

func TestSend_FailureDoesNotReturnError(t *testing.T) {
	c := New(&mockTransport{SendFunc: failing(transport.ErrBackend)})
	require.NoError(t, c.Send(context.Background(), "hello"))

	tr := c.Transcript()
	require.Len(t, tr, 2)
	require.Equal(t, history.SenderUser, tr[0].Sender)
	require.Equal(t, history.SenderAssistant, tr[1].Sender)
	require.Contains(t, tr[1].Text, "Failed to get response")
	require.Empty(t, c.PendingActions())
}

func TestSend_BusyWhileInFlight(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	m := &mockTransport{SendFunc: func(context.Context, string, string) ([]transport.Reply, error) {
		close(entered)
		<-release
		return []transport.Reply{{Text: "done"}}, nil
	}}
	c := New(m)

	done := make(chan error, 1)
	go func() { done <- c.Send(context.Background(), "first") }()
	<-entered

	require.True(t, c.Typing())
	require.ErrorIs(t, c.Send(context.Background(), "second"), ErrBusy)
	require.ErrorIs(t, c.Choose(context.Background(), Action{Label: "x", Command: "/x"}), ErrBusy)
	require.ErrorIs(t, c.CancelAppointment(context.Background(), "HC1"), ErrBusy)

	close(release)
	require.NoError(t, <-done)
	require.False(t, c.Typing())
	require.Len(t, c.Transcript(), 2)
}

func TestChoose(t *testing.T) {
	m := &mockTransport{}
	c := New(m)
	ctx := context.Background()

	require.NoError(t, c.Choose(ctx, Action{Label: " Open calendar", Command: CommandOpenCalendar}))
	_, open := c.Calendar()
	require.True(t, open)

	require.NoError(t, c.Choose(ctx, Action{Label: "View my appointments", Command: CommandViewAppointments}))
	require.True(t, c.AppointmentsOpen())
	require.Empty(t, m.sent, "local actions never reach the backend")

	require.NoError(t, c.Choose(ctx, Action{Label: "Headache", Command: "/symptom_headache"}))
	require.Equal(t, []string{"/symptom_headache"}, m.messages())
	tr := c.Transcript()
	require.Equal(t, "Headache", tr[0].Text, "label is shown, command is sent")

	require.NoError(t, c.SpeakToNurse(ctx))
	require.Equal(t, CommandNurse, m.messages()[1])
	require.Equal(t, "Speak to nurse", c.Transcript()[2].Text)
}

func TestPendingActions_OnlyLatestAssistantMessage(t *testing.T) {
	m := &mockTransport{SendFunc: replying(transport.Reply{Text: "choose", Buttons: []transport.Button{{Title: "A", Payload: "/a"}}})}
	c := New(m)
	require.Empty(t, c.PendingActions())

	require.NoError(t, c.Send(context.Background(), "hi"))
	require.Len(t, c.PendingActions(), 1)

	m.SendFunc = replying(transport.Reply{Text: "plain"})
	require.NoError(t, c.Send(context.Background(), "next"))
	require.Empty(t, c.PendingActions())
}

func TestAppointmentLifecycle(t *testing.T) {
	m := &mockTransport{}
	c := New(m)
	ctx := context.Background()

	m.SendFunc = replying(transport.Reply{Text: confirmation, Buttons: []transport.Button{{Title: "View my appointments", Payload: CommandViewAppointments}}})
	require.NoError(t, c.Send(ctx, "book me in"))
	require.Equal(t, []appointment.Appointment{{
		ConfirmationID: "HC123",
		Date:           "Monday, January 15, 2024",
		Time:           "10:00",
		Doctor:         "Dr. Lee",
		Department:     "General Practice",
	}}, c.Appointments())

	// the same confirmation repeated does not duplicate the entry
	require.NoError(t, c.Send(ctx, "thanks"))
	require.Len(t, c.Appointments(), 1)

	m.SendFunc = replying(transport.Reply{Text: "APPOINTMENT RESCHEDULED\n\nNew time: Wednesday, January 17, 2024 at 15:00\nDoctor: Dr. Kim\nConfirmation: HC123"})
	require.NoError(t, c.RescheduleAppointment(ctx, "HC123"))
	require.Equal(t, "/reschedule_apt_HC123", m.messages()[2])
	apts := c.Appointments()
	require.Len(t, apts, 1)
	require.Equal(t, "Wednesday, January 17, 2024", apts[0].Date)
	require.Equal(t, "15:00", apts[0].Time)
	require.Equal(t, "Dr. Kim", apts[0].Doctor)

	m.SendFunc = replying(transport.Reply{Text: "APPOINTMENT RESCHEDULED\nNew time: Friday, January 19, 2024 at 09:00\nConfirmation: HC999"})
	require.NoError(t, c.Send(ctx, "move the other one"))
	require.Equal(t, apts, c.Appointments(), "unknown id leaves the list unchanged")
}

func TestAppointmentEventsAppliedInReplyOrder(t *testing.T) {
	m := &mockTransport{SendFunc: replying(
		transport.Reply{Text: "APPOINTMENT CONFIRMED\nConfirmation: HC1\nDate: Monday, January 15, 2024 at 10:00\n"},
		transport.Reply{Text: "APPOINTMENT CONFIRMED\nConfirmation: HC2\nDate: Tuesday, January 16, 2024 at 11:00\n"},
		transport.Reply{Text: "APPOINTMENT CANCELLED\nConfirmation: HC1"},
		transport.Reply{Text: "APPOINTMENT CANCELLED\nno id at all"},
	)}
	c := New(m)

	require.NoError(t, c.Send(context.Background(), "do several things"))
	apts := c.Appointments()
	require.Len(t, apts, 1)
	require.Equal(t, "HC2", apts[0].ConfirmationID)
	require.Equal(t, appointment.DefaultDoctor, apts[0].Doctor)
	require.Len(t, c.Transcript(), 5)
}

func TestCancelAppointment(t *testing.T) {
	m := &mockTransport{SendFunc: replying(transport.Reply{Text: confirmation})}
	c := New(m)
	ctx := context.Background()
	require.NoError(t, c.Send(ctx, "book"))
	c.OpenAppointments()

	var seenDuringSend []appointment.Appointment
	m.SendFunc = func(context.Context, string, string) ([]transport.Reply, error) {
		seenDuringSend = c.Appointments()
		return nil, transport.ErrUnreachable
	}
	require.NoError(t, c.CancelAppointment(ctx, "HC123"))

	require.Empty(t, seenDuringSend, "removed before the request goes out")
	require.Empty(t, c.Appointments())
	require.False(t, c.AppointmentsOpen())
	require.Equal(t, "/cancel_apt_HC123", m.messages()[1])
	require.Equal(t, StatusDisconnected, c.Status())
}

func TestScheduleNow(t *testing.T) {
	m := &mockTransport{}
	c := New(m)
	c.OpenAppointments()

	require.NoError(t, c.ScheduleNow(context.Background()))
	require.False(t, c.AppointmentsOpen())
	require.Equal(t, []string{"schedule appointment"}, m.messages())
}

func TestBookFromCalendar(t *testing.T) {
	now := time.Date(2024, time.January, 10, 15, 0, 0, 0, time.UTC)
	var confirmed []calendar.Selection
	m := &mockTransport{SendFunc: func(_ context.Context, _ string, msg string) ([]transport.Reply, error) {
		return []transport.Reply{{Text: "Looking for a slot for you"}}, nil
	}}
	c := New(m, WithCalendarOptions(
		calendar.WithClock(func() time.Time { return now }),
		calendar.WithLocation(time.UTC),
		calendar.WithOnConfirm(func(s calendar.Selection) { confirmed = append(confirmed, s) }),
	))
	ctx := context.Background()

	require.ErrorIs(t, c.ConfirmCalendar(ctx), ErrIncompleteSelection, "no calendar open")

	cal := c.OpenCalendar()
	require.False(t, cal.SelectDay(13), "saturday")
	require.True(t, cal.SelectDay(16))
	require.ErrorIs(t, c.ConfirmCalendar(ctx), ErrIncompleteSelection, "time missing")
	require.True(t, cal.SelectTime("11:30"))

	require.NoError(t, c.ConfirmCalendar(ctx))
	require.Equal(t, []string{"Book appointment for Tuesday, January 16, 2024 at 11:30"}, m.messages())
	require.Len(t, confirmed, 1)
	_, open := c.Calendar()
	require.False(t, open, "calendar closes after booking")
	require.Equal(t, "Book appointment for Tuesday, January 16, 2024 at 11:30", c.Transcript()[0].Text)
}

func TestConfirmCalendar_KeepsSelectionWhileBusy(t *testing.T) {
	now := time.Date(2024, time.January, 10, 15, 0, 0, 0, time.UTC)
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	m := &mockTransport{SendFunc: func(_ context.Context, _ string, msg string) ([]transport.Reply, error) {
		if msg == "first" {
			entered <- struct{}{}
			<-release
		}
		return []transport.Reply{{Text: "ok"}}, nil
	}}
	c := New(m, WithCalendarOptions(calendar.WithClock(func() time.Time { return now }), calendar.WithLocation(time.UTC)))
	ctx := context.Background()

	cal := c.OpenCalendar()
	require.True(t, cal.SelectDay(16))
	require.True(t, cal.SelectTime("11:30"))

	done := make(chan error, 1)
	go func() { done <- c.Send(ctx, "first") }()
	<-entered

	require.ErrorIs(t, c.ConfirmCalendar(ctx), ErrBusy)
	require.ErrorIs(t, c.Book(ctx, calendar.Selection{Date: "Tuesday, January 16, 2024", Time: "11:30"}), ErrBusy)
	_, open := c.Calendar()
	require.True(t, open, "calendar stays open while busy")
	require.True(t, cal.CanConfirm(), "selection survives")

	close(release)
	require.NoError(t, <-done)

	require.NoError(t, c.ConfirmCalendar(ctx))
	require.Equal(t, []string{"first", "Book appointment for Tuesday, January 16, 2024 at 11:30"}, m.messages())
}

func TestBookingMessage(t *testing.T) {
	assert.Equal(t, "Book appointment for Monday, January 1, 2024 at 10:00",
		BookingMessage(calendar.Selection{Date: "Monday, January 1, 2024", Time: "10:00"}))
}

func TestOpenCalendar_DiscardsPreviousSelection(t *testing.T) {
	now := time.Date(2024, time.January, 10, 15, 0, 0, 0, time.UTC)
	c := New(&mockTransport{}, WithCalendarOptions(calendar.WithClock(func() time.Time { return now }), calendar.WithLocation(time.UTC)))

	cal := c.OpenCalendar()
	require.True(t, cal.SelectDay(11))
	c.CloseCalendar()

	cal = c.OpenCalendar()
	_, _, ok := cal.Selected()
	require.False(t, ok)
}

func TestSessionIDs(t *testing.T) {
	a, b := New(&mockTransport{}), New(&mockTransport{})
	require.NotEqual(t, a.SessionID(), b.SessionID())
	require.Regexp(t, `^session_`, a.SessionID())
}

func TestTransportErrorsAreNeverFatal(t *testing.T) {
	c := New(&mockTransport{SendFunc: failing(errors.New("something odd"))})
	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Send(context.Background(), "hello?"))
	require.Equal(t, StatusDisconnected, c.Status())
	require.Len(t, c.Transcript(), 3)
}
