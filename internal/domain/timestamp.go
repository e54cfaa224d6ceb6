package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Timestamp is a UTC instant stored with second precision.
type Timestamp struct {
	time.Time
}

func NewTimestamp(t time.Time) *Timestamp {
	return &Timestamp{Time: t.UTC().Truncate(time.Second)}
}

// FormatISO renders t as RFC 3339 in UTC, seconds precision, "Z" suffix.
func FormatISO(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseISO accepts RFC 3339 with any offset and naive timestamps, which are
// read as UTC.
func ParseISO(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid ISO 8601 timestamp %q", raw)
}

func (t Timestamp) String() string { return FormatISO(t.Time) }

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(FormatISO(t.Time))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseISO(raw)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}
