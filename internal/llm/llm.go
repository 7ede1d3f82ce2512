package llm

import (
	"context"

	"github.com/sashabaranov/go-openai"

	"github.com/comigor/triage-go/internal/config"
)

// DefaultSystemPrompt frames the model as the triage assistant when no
// prompt is configured. The marker lines keep its bookings machine readable.
const DefaultSystemPrompt = `You are a healthcare triage assistant for a clinic. Ask about symptoms, advise on urgency, and help patients book GP appointments on weekdays.
When you book an appointment reply with a block that starts with "APPOINTMENT CONFIRMED" and has the lines "Confirmation: HC<digits>", "Department: <name>", "Doctor: <name>" and "Date: <weekday, month day, year> at <HH:MM>".
When you move one, start with "APPOINTMENT RESCHEDULED" and include "New time: <date> at <HH:MM>", "Doctor: <name>" and "Confirmation: <id>".
When you cancel one, start with "APPOINTMENT CANCELLED" and include "Confirmation: <id>".
Always tell the patient to call emergency services for chest pain, difficulty breathing or heavy bleeding.`

// Client is the subset of openai.Client the llm transport needs; it is easy
// to mock in tests.
type Client interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// NewClient creates an OpenAI-compatible client for cfg.
func NewClient(cfg config.LLMConfig) *openai.Client {
	c := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		c.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(c)
}

// SystemPrompt returns the configured prompt or DefaultSystemPrompt.
func SystemPrompt(cfg config.LLMConfig) string {
	if cfg.SystemPrompt != "" {
		return cfg.SystemPrompt
	}
	return DefaultSystemPrompt
}
