package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/multierr"
)

type Notifier interface {
	Send(ctx context.Context, title, text string) error
}

// Multi sends to every notifier and reports all failures together.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, title, text string) error {
	var err error
	for _, n := range m {
		if n == nil {
			continue
		}
		err = multierr.Append(err, n.Send(ctx, title, text))
	}
	return err
}

// Enabled reports whether at least one notifier is configured.
func (m Multi) Enabled() bool {
	for _, n := range m {
		if n != nil {
			return true
		}
	}
	return false
}

const hookTimeout = 10 * time.Second

// postJSON posts payload to url. A non-2xx reply becomes an error carrying
// the first 512 bytes of the body.
func postJSON(ctx context.Context, c *http.Client, name, url, bearer string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: encode payload: %w", name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if msg := strings.TrimSpace(string(b)); msg != "" {
			return fmt.Errorf("%s returned %d: %s", name, resp.StatusCode, msg)
		}
		return fmt.Errorf("%s returned %d", name, resp.StatusCode)
	}
	return nil
}
