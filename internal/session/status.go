package session

import (
	"context"

	"github.com/qmuntal/stateless"

	"github.com/comigor/triage-go/internal/logger"
)

// Status is the connection status of a session.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

type trigger string

const (
	triggerExchangeSucceeded trigger = "ExchangeSucceeded"
	triggerExchangeFailed    trigger = "ExchangeFailed"
)

// newStatusMachine wires the connection status transitions:
//
//	connecting   -> connected     on success (greet)
//	connecting   -> disconnected  on failure (greet)
//	connected    -> disconnected  on failure
//	any          -> connected     on success
//
// There is no automatic reconnection; the next exchange decides.
func newStatusMachine(sessionID string) *stateless.StateMachine {
	fsm := stateless.NewStateMachine(StatusConnecting)

	fsm.Configure(StatusConnecting).
		Permit(triggerExchangeSucceeded, StatusConnected).
		Permit(triggerExchangeFailed, StatusDisconnected)

	fsm.Configure(StatusConnected).
		PermitReentry(triggerExchangeSucceeded).
		Permit(triggerExchangeFailed, StatusDisconnected)

	fsm.Configure(StatusDisconnected).
		Permit(triggerExchangeSucceeded, StatusConnected).
		PermitReentry(triggerExchangeFailed)

	fsm.OnTransitioned(func(_ context.Context, t stateless.Transition) {
		if t.Source == t.Destination {
			return
		}
		logger.L.Info("connection status changed", "session_id", sessionID, "from", t.Source, "to", t.Destination, "trigger", t.Trigger)
	})

	return fsm
}
