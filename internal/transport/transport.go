// Package transport exchanges messages with the conversational backend.
// Each Send is exactly one request: no retries, batching or queueing.
package transport

import (
	"context"
	"errors"
)

var (
	// ErrBackend means the backend answered with a non-success status.
	ErrBackend = errors.New("conversation backend returned an error")
	// ErrUnreachable means the request could not complete.
	ErrUnreachable = errors.New("conversation backend unreachable")
)

// Button is a suggested action attached to a reply.
type Button struct {
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

// Reply is one unit of a backend response.
type Reply struct {
	RecipientID string         `json:"recipient_id,omitempty"`
	Text        string         `json:"text,omitempty"`
	Buttons     []Button       `json:"buttons,omitempty"`
	Custom      map[string]any `json:"custom,omitempty"`
}

// Transport sends one message on behalf of a session.
type Transport interface {
	Send(ctx context.Context, sessionID, message string) ([]Reply, error)
}

// Outcome classifies the result of a Send.
type Outcome string

const (
	OutcomeOK              Outcome = "ok"
	OutcomeBackendError    Outcome = "backend_error"
	OutcomeConnectionError Outcome = "connection_error"
)

// Classify maps a Send error to its Outcome. Errors that are neither
// ErrBackend nor ErrUnreachable count as connection errors.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrBackend):
		return OutcomeBackendError
	default:
		return OutcomeConnectionError
	}
}
