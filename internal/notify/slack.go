package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Slack posts an alert as an attachment so the success rate and the failing
// proxies show up as fields instead of being buried in a text blob.
type Slack struct {
	Webhook string
	Client  *http.Client
}

func NewSlack(webhook string) *Slack {
	if webhook == "" {
		return nil
	}
	return &Slack{
		Webhook: webhook,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Text   string       `json:"text,omitempty"`
	Fields []slackField `json:"fields,omitempty"`
	Footer string       `json:"footer,omitempty"`
}

type slackMessage struct {
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments"`
}

func buildSlackMessage(a Alert) slackMessage {
	color := "danger"
	if a.SuccessRate >= 50 {
		color = "warning"
	}
	fields := []slackField{
		{Title: "Success rate", Value: fmt.Sprintf("%.2f%%", a.SuccessRate), Short: true},
	}
	if len(a.FailingProxies) > 0 {
		fields = append(fields, slackField{
			Title: "Failing proxies",
			Value: strings.Join(a.FailingProxies, ", "),
			Short: true,
		})
	}
	return slackMessage{
		Text: "*" + a.Title + "*",
		Attachments: []slackAttachment{{
			Color:  color,
			Text:   a.Text,
			Fields: fields,
			Footer: "run " + a.RunID,
		}},
	}
}

func (s *Slack) Send(ctx context.Context, a Alert) error {
	if s == nil || s.Webhook == "" {
		return errors.New("slack disabled")
	}
	body, _ := json.Marshal(buildSlackMessage(a))
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, s.Webhook, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("slack status %d", resp.StatusCode)
	}
	return nil
}
