package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/samber/oops"

	"github.com/comigor/triage-go/internal/logger"
)

// Webhook talks to a REST webhook channel: POST {sender, message}, answered
// with a JSON array of replies.
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook creates a webhook transport. A zero timeout means the request is
// bounded only by ctx.
func NewWebhook(url string, timeout time.Duration) *Webhook {
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// URL returns the endpoint this transport posts to.
func (w *Webhook) URL() string { return w.url }

type webhookRequest struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

// Send posts message for sessionID and decodes the replies in order.
func (w *Webhook) Send(ctx context.Context, sessionID, message string) ([]Reply, error) {
	errb := oops.In("transport").With("url", w.url, "session_id", sessionID)

	body, err := json.Marshal(webhookRequest{Sender: sessionID, Message: message})
	if err != nil {
		return nil, errb.Wrapf(err, "failed to encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return nil, errb.Wrapf(err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := w.client.Do(req)
	if err != nil {
		logger.L.Warn("webhook request failed", "url", w.url, "error", err)
		return nil, errb.Wrapf(fmt.Errorf("%w: %w", ErrUnreachable, err), "webhook request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		logger.L.Warn("webhook returned error status", "url", w.url, "status", resp.StatusCode, "body", string(snippet))
		return nil, errb.With("status", resp.StatusCode).Wrapf(ErrBackend, "unexpected status code: %d", resp.StatusCode)
	}

	var replies []Reply
	if err := json.NewDecoder(resp.Body).Decode(&replies); err != nil {
		return nil, errb.Wrapf(fmt.Errorf("%w: %w", ErrUnreachable, err), "failed to decode replies")
	}

	logger.L.Debug("webhook replied", "session_id", sessionID, "replies", len(replies), "elapsed", time.Since(started))
	return replies, nil
}
