package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Webhook posts a small JSON envelope to a generic HTTP endpoint, for
// receivers that are not Slack.
type Webhook struct {
	URL    string
	Client *http.Client
}

func NewWebhook(url string) *Webhook {
	if url == "" {
		return nil
	}
	return &Webhook{
		URL:    url,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

type webhookPayload struct {
	RunID          string    `json:"run_id,omitempty"`
	Title          string    `json:"title"`
	Text           string    `json:"text"`
	SuccessRate    float64   `json:"success_rate"`
	FailingProxies []string  `json:"failing_proxies,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

func (w *Webhook) Send(ctx context.Context, a Alert) error {
	if w == nil || w.URL == "" {
		return errors.New("webhook disabled")
	}
	body, _ := json.Marshal(webhookPayload{
		RunID:          a.RunID,
		Title:          a.Title,
		Text:           a.Text,
		SuccessRate:    a.SuccessRate,
		FailingProxies: a.FailingProxies,
		Timestamp:      time.Now().UTC(),
	})
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}
	return nil
}
