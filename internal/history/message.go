package history

import "time"

// Sender identifies who authored a transcript message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Action is a clickable suggestion. Command is what gets sent; Label is what
// the transcript shows.
type Action struct {
	Label   string `json:"label"`
	Command string `json:"command"`
}

// Message is a single transcript entry. Messages are immutable once created.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Actions   []Action  `json:"actions,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
