package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// Alert is one record returned by the gatekeeper service. Every field the
// service sends is kept and written back out; the typed fields are the ones
// triage looks at.
type Alert struct {
	ID          string
	ReceivedAt  string
	From        string
	Subject     string
	Category    string
	LocalStatus Status

	fields map[string]json.RawMessage
}

const localStatusKey = "_localStatus"

// ReceivedTime reports the parsed receivedAt value, if it is a valid timestamp.
func (a Alert) ReceivedTime() (time.Time, bool) {
	if a.ReceivedAt == "" {
		return time.Time{}, false
	}
	t, err := ParseISO(a.ReceivedAt)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (a *Alert) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*a = Alert{
		ID:         textField(fields["id"]),
		ReceivedAt: textField(fields["receivedAt"]),
		From:       textField(fields["from"]),
		Subject:    textField(fields["subject"]),
		Category:   textField(fields["category"]),
		fields:     fields,
	}
	if st := textField(fields[localStatusKey]); st != "" {
		a.LocalStatus = Status(st)
	}
	return nil
}

func (a Alert) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(a.fields)+6)
	for k, v := range a.fields {
		out[k] = v
	}
	setIfAbsent := func(key, val string) {
		if _, ok := out[key]; !ok && val != "" {
			out[key] = val
		}
	}
	setIfAbsent("id", a.ID)
	setIfAbsent("receivedAt", a.ReceivedAt)
	setIfAbsent("from", a.From)
	setIfAbsent("subject", a.Subject)
	setIfAbsent("category", a.Category)
	if a.LocalStatus != "" {
		out[localStatusKey] = a.LocalStatus
	}
	return json.Marshal(out)
}

// textField returns JSON strings unquoted and any other scalar as its literal
// text. Missing values and null yield "".
func textField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	lit := strings.TrimSpace(string(raw))
	if lit == "null" {
		return ""
	}
	return lit
}
