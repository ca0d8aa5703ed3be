// Package notify posts run summaries to the team chat webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Message is the webhook payload. The chat integration renders Text and
// keeps Details for the expanded view.
type Message struct {
	Text      string         `json:"text"`
	Source    string         `json:"source"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Notifier delivers messages to a single webhook URL.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// NewNotifier creates a notifier for the given webhook URL.
func NewNotifier(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// WithHTTPClient overrides the HTTP client, for tests.
func (n *Notifier) WithHTTPClient(client *http.Client) *Notifier {
	n.client = client
	return n
}

// Send posts one message. A missing webhook URL is a silent no-op so
// commands run fine without chat notifications configured.
func (n *Notifier) Send(ctx context.Context, msg Message) error {
	if n.webhookURL == "" {
		return nil
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	if msg.Source == "" {
		msg.Source = "widget-cli"
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return eris.Wrap(err, "notify: marshal message")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "notify: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "notify: post webhook")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("notify: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
