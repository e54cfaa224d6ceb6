package notify

import (
	"context"
	"net/http"
	"strings"
)

// Wake posts to an OpenClaw /hooks/wake style endpoint, which wakes the
// agent immediately.
type Wake struct {
	URL    string
	Token  string
	Client *http.Client
}

func NewWake(url, token string) Notifier {
	if url == "" {
		return nil
	}
	return &Wake{URL: url, Token: token, Client: &http.Client{Timeout: hookTimeout}}
}

type wakePayload struct {
	Text string `json:"text"`
	Mode string `json:"mode"`
}

func (w *Wake) Send(ctx context.Context, title, text string) error {
	msg := wakePayload{Text: strings.TrimSpace(title + "\n" + text), Mode: "now"}
	return postJSON(ctx, w.Client, "wake hook", w.URL, w.Token, msg)
}
