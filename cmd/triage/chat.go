package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/comigor/triage-go/internal/calendar"
	"github.com/comigor/triage-go/internal/config"
	"github.com/comigor/triage-go/internal/history"
	"github.com/comigor/triage-go/internal/llm"
	"github.com/comigor/triage-go/internal/logger"
	"github.com/comigor/triage-go/internal/session"
	"github.com/comigor/triage-go/internal/transport"
)

func newChatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive triage conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd.Context(), a.cfg, os.Stdin, os.Stdout)
		},
	}
}

func newTransport(cfg *config.Config) transport.Transport {
	if cfg.Backend.Kind == config.BackendLLM {
		return transport.NewLLM(llm.NewClient(cfg.LLM), cfg.LLM.Model, llm.SystemPrompt(cfg.LLM), cfg.Backend.Timeout)
	}
	return transport.NewWebhook(cfg.Backend.URL, cfg.Backend.Timeout)
}

func operatorHint(cfg *config.Config) string {
	if cfg.Backend.Kind == config.BackendLLM {
		return "Check llm.base_url and llm.api_key in config.yaml."
	}
	return fmt.Sprintf("Start the conversation server at %s or point backend.url in config.yaml at it.", cfg.Backend.URL)
}

func runChat(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) error {
	store := history.Open(cfg.History.DBPath)
	defer store.Close()

	ctrl := session.New(newTransport(cfg),
		session.WithGreetCommand(cfg.Backend.GreetCommand),
		session.WithRecorder(store),
		session.WithOperatorHint(operatorHint(cfg)),
		session.WithCalendarOptions(calendar.WithLocation(cfg.Calendar.Location())),
	)
	logger.L.Info("chat session started", "session_id", ctrl.SessionID(), "backend", cfg.Backend.Kind, "persistent_history", store.Persistent())

	return newREPL(ctrl, out).run(ctx, in)
}

const helpText = `Commands:
  :cal      open the booking calendar
  :apt      show your appointments
  :<n>      choose suggested action n
  :nurse    ask to speak to a nurse
  :help     show this help
  :quit     leave
Anything else is sent to the assistant.`

type repl struct {
	ctrl   *session.Controller
	out    io.Writer
	shown  int
	status session.Status
}

func newREPL(ctrl *session.Controller, out io.Writer) *repl {
	return &repl{ctrl: ctrl, out: out, status: ctrl.Status()}
}

func (r *repl) run(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(r.out, "HEALTHCARE TRIAGE  (:help for commands)")
	r.wait(func() error { return r.ctrl.Start(ctx) })
	r.flush()

	scanner := bufio.NewScanner(in)
	for {
		r.prompt()
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var quit bool
		switch {
		case r.calendarOpen():
			r.handleCalendar(ctx, line)
		case r.ctrl.AppointmentsOpen():
			r.handleAppointments(ctx, line)
		default:
			quit = r.handleChat(ctx, line)
		}
		if quit {
			return nil
		}
		r.flush()
	}
}

func (r *repl) calendarOpen() bool {
	_, ok := r.ctrl.Calendar()
	return ok
}

func (r *repl) prompt() {
	switch {
	case r.calendarOpen():
		fmt.Fprint(r.out, "calendar> ")
	case r.ctrl.AppointmentsOpen():
		fmt.Fprint(r.out, "appointments> ")
	default:
		fmt.Fprint(r.out, "you> ")
	}
}

func (r *repl) handleChat(ctx context.Context, line string) bool {
	if !strings.HasPrefix(line, ":") {
		r.wait(func() error { return r.ctrl.Send(ctx, line) })
		return false
	}

	switch cmd := strings.TrimPrefix(line, ":"); cmd {
	case "quit", "q":
		return true
	case "help":
		fmt.Fprintln(r.out, helpText)
	case "cal":
		r.ctrl.OpenCalendar()
	case "apt":
		r.ctrl.OpenAppointments()
	case "nurse":
		r.wait(func() error { return r.ctrl.SpeakToNurse(ctx) })
	default:
		n, err := strconv.Atoi(cmd)
		actions := r.ctrl.PendingActions()
		if err != nil || n < 1 || n > len(actions) {
			fmt.Fprintf(r.out, "! unknown command %q\n", line)
			return false
		}
		r.wait(func() error { return r.ctrl.Choose(ctx, actions[n-1]) })
	}
	return false
}

func (r *repl) handleCalendar(ctx context.Context, line string) {
	cal, _ := r.ctrl.Calendar()
	switch line {
	case "x":
		r.ctrl.CloseCalendar()
		return
	case "<":
		cal.PrevMonth()
		return
	case ">":
		cal.NextMonth()
		return
	case "ok":
		r.wait(func() error { return r.ctrl.ConfirmCalendar(ctx) })
		return
	}

	if day, err := strconv.Atoi(line); err == nil {
		if !cal.SelectDay(day) {
			fmt.Fprintln(r.out, "! that day cannot be booked")
		}
		return
	}
	if !cal.SelectTime(line) {
		fmt.Fprintln(r.out, "! pick a bookable day first, then one of the listed times")
	}
}

func (r *repl) handleAppointments(ctx context.Context, line string) {
	verb, id, _ := strings.Cut(line, " ")
	id = strings.TrimSpace(id)

	switch verb {
	case "x":
		r.ctrl.CloseAppointments()
	case "new":
		if len(r.ctrl.Appointments()) > 0 {
			fmt.Fprintln(r.out, "! ask the assistant to book another appointment")
			return
		}
		r.wait(func() error { return r.ctrl.ScheduleNow(ctx) })
	case "cancel":
		if id == "" {
			fmt.Fprintln(r.out, "! usage: cancel <confirmation id>")
			return
		}
		r.wait(func() error { return r.ctrl.CancelAppointment(ctx, id) })
	case "reschedule":
		if id == "" {
			fmt.Fprintln(r.out, "! usage: reschedule <confirmation id>")
			return
		}
		r.wait(func() error { return r.ctrl.RescheduleAppointment(ctx, id) })
	default:
		fmt.Fprintf(r.out, "! unknown command %q\n", line)
	}
}

// wait runs fn while showing the typing indicator.
func (r *repl) wait(fn func() error) {
	done := make(chan error, 1)
	go func() { done <- fn() }()

	ticker := time.NewTicker(400 * time.Millisecond)
	defer ticker.Stop()
	typing := false
	for {
		select {
		case err := <-done:
			if typing {
				fmt.Fprintln(r.out)
			}
			if err != nil {
				r.printError(err)
			}
			return
		case <-ticker.C:
			if !r.ctrl.Typing() {
				continue
			}
			if !typing {
				fmt.Fprint(r.out, "assistant is typing")
				typing = true
			}
			fmt.Fprint(r.out, ".")
		}
	}
}

func (r *repl) printError(err error) {
	switch {
	case errors.Is(err, session.ErrBusy):
		fmt.Fprintln(r.out, "! still waiting for the previous reply")
	default:
		fmt.Fprintf(r.out, "! %v\n", err)
	}
}

// flush prints everything the user has not seen yet.
func (r *repl) flush() {
	transcript := r.ctrl.Transcript()
	for _, m := range transcript[r.shown:] {
		renderMessage(r.out, m)
	}
	r.shown = len(transcript)

	if st := r.ctrl.Status(); st != r.status {
		fmt.Fprintf(r.out, "[%s]\n", st)
		r.status = st
	}

	switch {
	case r.calendarOpen():
		cal, _ := r.ctrl.Calendar()
		renderCalendar(r.out, cal)
	case r.ctrl.AppointmentsOpen():
		renderAppointments(r.out, r.ctrl)
	default:
		for i, a := range r.ctrl.PendingActions() {
			fmt.Fprintf(r.out, "  :%d %s\n", i+1, a.Label)
		}
	}
}
