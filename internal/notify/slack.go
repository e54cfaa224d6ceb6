package notify

import (
	"context"
	"net/http"
)

// Slack posts to an incoming-webhook URL. The title is rendered bold.
type Slack struct {
	Webhook string
	Client  *http.Client
}

// NewSlack returns nil when webhook is empty so callers can drop it into
// Multi unconditionally.
func NewSlack(webhook string) Notifier {
	if webhook == "" {
		return nil
	}
	return &Slack{Webhook: webhook, Client: &http.Client{Timeout: hookTimeout}}
}

func (s *Slack) Send(ctx context.Context, title, text string) error {
	msg := struct {
		Text string `json:"text"`
	}{Text: "*" + title + "*\n" + text}
	return postJSON(ctx, s.Client, "slack", s.Webhook, "", msg)
}
