package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/samber/oops"
	"github.com/sashabaranov/go-openai"

	"github.com/comigor/triage-go/internal/llm"
	"github.com/comigor/triage-go/internal/logger"
)

// LLM answers with an OpenAI-compatible chat model instead of a webhook. The
// model is stateless, so the conversation memory for each session is kept
// here and replayed on every request.
type LLM struct {
	client       llm.Client
	model        string
	systemPrompt string
	timeout      time.Duration

	mu      sync.Mutex
	history map[string][]openai.ChatCompletionMessage
}

// NewLLM creates an LLM transport.
func NewLLM(client llm.Client, model, systemPrompt string, timeout time.Duration) *LLM {
	return &LLM{
		client:       client,
		model:        model,
		systemPrompt: systemPrompt,
		timeout:      timeout,
		history:      make(map[string][]openai.ChatCompletionMessage),
	}
}

// Send replays the session history plus message and returns the completion
// as a single reply. Failed turns are not added to the history.
func (l *LLM) Send(ctx context.Context, sessionID, message string) ([]Reply, error) {
	errb := oops.In("transport").With("model", l.model, "session_id", sessionID)

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	l.mu.Lock()
	past := l.history[sessionID]
	l.mu.Unlock()

	userMsg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: message}
	messages := make([]openai.ChatCompletionMessage, 0, len(past)+2)
	if l.systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: l.systemPrompt})
	}
	messages = append(messages, past...)
	messages = append(messages, userMsg)

	resp, err := l.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    l.model,
		Messages: messages,
	})
	if err != nil {
		logger.L.Warn("LLM call failed", "model", l.model, "error", err)
		return nil, errb.Wrapf(classifyLLMError(err), "chat completion failed")
	}
	if len(resp.Choices) == 0 {
		return nil, errb.Wrapf(ErrBackend, "chat completion returned no choices")
	}

	answer := resp.Choices[0].Message
	l.mu.Lock()
	l.history[sessionID] = append(l.history[sessionID], userMsg, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleAssistant,
		Content: answer.Content,
	})
	l.mu.Unlock()

	return []Reply{{RecipientID: sessionID, Text: answer.Content}}, nil
}

func classifyLLMError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %w", ErrBackend, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return fmt.Errorf("%w: %w", ErrBackend, err)
	}
	return fmt.Errorf("%w: %w", ErrUnreachable, err)
}
