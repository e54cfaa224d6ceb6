package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusDrafted   Status = "drafted"
	StatusIgnored   Status = "ignored"
	StatusUnhandled Status = "unhandled"
)

// ParseStatus accepts any casing and surrounding whitespace.
func ParseStatus(raw string) (Status, bool) {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusDrafted, StatusIgnored, StatusUnhandled:
		return s, true
	default:
		return "", false
	}
}

// HandledEntry is one alert's local mark. An atIso value that is not a
// readable timestamp is kept verbatim in RawAt, and keys other than status
// and atIso are kept in Extra; both are written back as they were read.
type HandledEntry struct {
	AtIso  *Timestamp
	Status Status
	RawAt  json.RawMessage
	Extra  map[string]json.RawMessage
}

const (
	keyEntryStatus = "status"
	keyEntryAt     = "atIso"
)

func (e HandledEntry) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Extra)+2)
	for k, v := range e.Extra {
		out[k] = v
	}
	if e.Status != "" {
		out[keyEntryStatus] = e.Status
	}
	switch {
	case e.AtIso != nil:
		out[keyEntryAt] = e.AtIso
	case len(e.RawAt) > 0:
		out[keyEntryAt] = e.RawAt
	}
	return json.Marshal(out)
}

func (e *HandledEntry) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*e = HandledEntry{}
	if fields == nil {
		return nil
	}

	if raw, ok := fields[keyEntryStatus]; ok {
		var st string
		if err := json.Unmarshal(raw, &st); err == nil {
			e.Status = Status(st)
			delete(fields, keyEntryStatus)
		}
	}
	if raw, ok := fields[keyEntryAt]; ok {
		delete(fields, keyEntryAt)
		var at string
		if err := json.Unmarshal(raw, &at); err == nil {
			if t, err := ParseISO(at); err == nil {
				e.AtIso = NewTimestamp(t)
			}
		}
		if e.AtIso == nil {
			e.RawAt = raw
		}
	}
	if len(fields) > 0 {
		e.Extra = fields
	}
	return nil
}

// State is the persisted triage document. Keys that this package does not
// know about are kept in Extra and written back untouched.
type State struct {
	LastSinceIso    *Timestamp
	LastScanAtIso   *Timestamp
	Handled         map[string]HandledEntry
	DraftedAlertIDs []string
	IgnoredAlertIDs []string
	Extra           map[string]json.RawMessage
}

const (
	keyLastSince = "lastSinceIso"
	keyLastScan  = "lastScanAtIso"
	keyHandled   = "handled"
	keyDrafted   = "draftedAlertIds"
	keyIgnored   = "ignoredAlertIds"
)

func NewState() *State {
	return &State{
		Handled:         make(map[string]HandledEntry),
		DraftedAlertIDs: []string{},
		IgnoredAlertIDs: []string{},
	}
}

// DecodeState parses a stored document and applies Normalize.
func DecodeState(data []byte) (*State, error) {
	s := NewState()
	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}
	s.Normalize()
	return s, nil
}

// Encode renders the document with sorted keys, two-space indentation and a
// trailing newline. Equal states encode to identical bytes.
func (s *State) Encode() ([]byte, error) {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// Normalize fills missing collections and folds the legacy id lists into
// Handled. Existing Handled entries win over the lists.
func (s *State) Normalize() {
	if s.Handled == nil {
		s.Handled = make(map[string]HandledEntry)
	}
	if s.DraftedAlertIDs == nil {
		s.DraftedAlertIDs = []string{}
	}
	if s.IgnoredAlertIDs == nil {
		s.IgnoredAlertIDs = []string{}
	}
	for _, id := range s.DraftedAlertIDs {
		if _, ok := s.Handled[id]; !ok {
			s.Handled[id] = HandledEntry{Status: StatusDrafted}
		}
	}
	for _, id := range s.IgnoredAlertIDs {
		if _, ok := s.Handled[id]; !ok {
			s.Handled[id] = HandledEntry{Status: StatusIgnored}
		}
	}
}

func (s *State) StatusOf(alertID string) Status {
	if e, ok := s.Handled[alertID]; ok && e.Status != "" {
		return e.Status
	}
	return StatusUnhandled
}

// Mark records a handled status for alertID, or removes the local mark when
// status is StatusUnhandled. The legacy lists follow the same change.
func (s *State) Mark(alertID string, status Status, now time.Time) error {
	s.Normalize()
	switch status {
	case StatusUnhandled:
		delete(s.Handled, alertID)
		s.DraftedAlertIDs = without(s.DraftedAlertIDs, alertID)
		s.IgnoredAlertIDs = without(s.IgnoredAlertIDs, alertID)
	case StatusDrafted:
		s.Handled[alertID] = HandledEntry{Status: status, AtIso: NewTimestamp(now)}
		s.DraftedAlertIDs = with(s.DraftedAlertIDs, alertID)
		s.IgnoredAlertIDs = without(s.IgnoredAlertIDs, alertID)
	case StatusIgnored:
		s.Handled[alertID] = HandledEntry{Status: status, AtIso: NewTimestamp(now)}
		s.IgnoredAlertIDs = with(s.IgnoredAlertIDs, alertID)
		s.DraftedAlertIDs = without(s.DraftedAlertIDs, alertID)
	default:
		return fmt.Errorf("unknown status %q", status)
	}
	s.LastScanAtIso = NewTimestamp(now)
	return nil
}

// AdvanceCursor moves LastSinceIso forward to t. It never moves it back.
func (s *State) AdvanceCursor(t time.Time) {
	if s.LastSinceIso != nil && !t.After(s.LastSinceIso.Time) {
		return
	}
	s.LastSinceIso = NewTimestamp(t)
}

func (s State) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, len(s.Extra)+5)
	for k, v := range s.Extra {
		doc[k] = v
	}
	handled := s.Handled
	if handled == nil {
		handled = map[string]HandledEntry{}
	}
	doc[keyLastSince] = s.LastSinceIso
	doc[keyLastScan] = s.LastScanAtIso
	doc[keyHandled] = handled
	doc[keyDrafted] = nonNil(s.DraftedAlertIDs)
	doc[keyIgnored] = nonNil(s.IgnoredAlertIDs)
	return json.Marshal(doc)
}

func (s *State) UnmarshalJSON(data []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("state document is null")
	}

	// an empty or null cursor means "not set"
	decodeTime := func(key string, dst **Timestamp) error {
		raw, ok := doc[key]
		delete(doc, key)
		if !ok {
			return nil
		}
		var text *string
		if err := json.Unmarshal(raw, &text); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if text == nil || strings.TrimSpace(*text) == "" {
			return nil
		}
		t, err := ParseISO(*text)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = NewTimestamp(t)
		return nil
	}
	decode := func(key string, dst any) error {
		raw, ok := doc[key]
		delete(doc, key)
		if !ok {
			return nil
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		return nil
	}

	*s = State{}
	if err := decodeTime(keyLastSince, &s.LastSinceIso); err != nil {
		return err
	}
	if err := decodeTime(keyLastScan, &s.LastScanAtIso); err != nil {
		return err
	}
	if err := decode(keyHandled, &s.Handled); err != nil {
		return err
	}
	if err := decode(keyDrafted, &s.DraftedAlertIDs); err != nil {
		return err
	}
	if err := decode(keyIgnored, &s.IgnoredAlertIDs); err != nil {
		return err
	}
	if len(doc) > 0 {
		s.Extra = doc
	}
	return nil
}

func with(ids []string, id string) []string {
	for _, x := range ids {
		if x == id {
			return ids
		}
	}
	return append(ids, id)
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
