package triage

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/hamed0406/gatekeepertriage/internal/domain"
	"github.com/hamed0406/gatekeepertriage/internal/repo/memory"
)

// ---- shared helpers ----

type fakeLister struct {
	alerts []domain.Alert
	err    error
	calls  []time.Time
	limits []int
}

func (f *fakeLister) ListAlerts(_ context.Context, since time.Time, limit int) ([]domain.Alert, error) {
	f.calls = append(f.calls, since)
	f.limits = append(f.limits, limit)
	if f.err != nil {
		return nil, f.err
	}
	return f.alerts, nil
}

func alert(t *testing.T, id, receivedAt string) domain.Alert {
	t.Helper()
	var a domain.Alert
	raw, _ := json.Marshal(map[string]string{"id": id, "receivedAt": receivedAt, "subject": "s-" + id})
	if err := json.Unmarshal(raw, &a); err != nil {
		t.Fatal(err)
	}
	return a
}

var fixedNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func newTestService(l AlertLister) (*Service, *memory.Store) {
	store := memory.New()
	svc := NewService(zap.NewNop(), store, l, 50)
	svc.Now = func() time.Time { return fixedNow }
	return svc, store
}

func ids(alerts []domain.Alert) []string {
	out := make([]string, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, a.ID)
	}
	return out
}

// ---- tests ----

func TestCheck_DefaultWindowIs24h(t *testing.T) {
	l := &fakeLister{}
	svc, _ := newTestService(l)

	rep, err := svc.Check(context.Background(), CheckOptions{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if rep.SinceUsed != "2026-10-18T12:00:00Z" {
		t.Fatalf("want 24h lookback, got %s", rep.SinceUsed)
	}
	if l.limits[0] != 50 {
		t.Fatalf("want limit 50, got %d", l.limits[0])
	}
	// no alerts: cursor lands on the window start
	if rep.State.LastSinceIso.String() != "2026-10-18T12:00:00Z" {
		t.Fatalf("cursor wrong: %s", rep.State.LastSinceIso)
	}
	if rep.Alerts == nil {
		t.Fatalf("alerts should encode as [] not null")
	}
}

func TestCheck_UsesStoredCursorThenOverride(t *testing.T) {
	l := &fakeLister{}
	svc, store := newTestService(l)
	ctx := context.Background()

	st := domain.NewState()
	st.AdvanceCursor(time.Date(2026, 10, 19, 7, 30, 0, 0, time.UTC))
	_ = store.Save(ctx, st)

	if _, err := svc.Check(ctx, CheckOptions{}); err != nil {
		t.Fatal(err)
	}
	if got := domain.FormatISO(l.calls[0]); got != "2026-10-19T07:30:00Z" {
		t.Fatalf("want stored cursor, got %s", got)
	}

	two := 2 * time.Hour
	rep, err := svc.Check(ctx, CheckOptions{Lookback: &two})
	if err != nil {
		t.Fatal(err)
	}
	if rep.SinceUsed != "2026-10-19T10:00:00Z" {
		t.Fatalf("want override window, got %s", rep.SinceUsed)
	}
}

func TestCheck_ClassifiesAndFilters(t *testing.T) {
	l := &fakeLister{alerts: nil}
	svc, store := newTestService(l)
	ctx := context.Background()

	l.alerts = []domain.Alert{
		alert(t, "new", "2026-10-19T09:00:00Z"),
		alert(t, "ign", "2026-10-19T09:05:00Z"),
		alert(t, "dra", "2026-10-19T09:10:00Z"),
	}
	st := domain.NewState()
	_ = st.Mark("ign", domain.StatusIgnored, fixedNow)
	_ = st.Mark("dra", domain.StatusDrafted, fixedNow)
	_ = store.Save(ctx, st)

	rep, err := svc.Check(ctx, CheckOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"new"}, ids(rep.Alerts)); diff != "" {
		t.Fatalf("default output (-want +got):\n%s", diff)
	}
	if rep.Counts != (Counts{Returned: 1, TotalFetched: 3}) {
		t.Fatalf("counts wrong: %+v", rep.Counts)
	}
	if rep.Alerts[0].LocalStatus != domain.StatusUnhandled {
		t.Fatalf("want unhandled, got %s", rep.Alerts[0].LocalStatus)
	}

	rep, err = svc.Check(ctx, CheckOptions{IncludeHandled: true})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"new", "ign", "dra"}, ids(rep.Alerts)); diff != "" {
		t.Fatalf("include-handled output (-want +got):\n%s", diff)
	}
	got := map[string]domain.Status{}
	for _, a := range rep.Alerts {
		got[a.ID] = a.LocalStatus
	}
	want := map[string]domain.Status{"new": "unhandled", "ign": "ignored", "dra": "drafted"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("statuses (-want +got):\n%s", diff)
	}
}

func TestCheck_AdvancesCursorToNewestReceivedAt(t *testing.T) {
	l := &fakeLister{alerts: []domain.Alert{
		alert(t, "a", "2026-10-19T11:00:00+00:00"),
		alert(t, "b", "2026-10-19T11:45:30Z"),
		alert(t, "c", "not-a-date"),
		alert(t, "d", "2026-10-19T11:10:00Z"),
	}}
	svc, store := newTestService(l)

	if _, err := svc.Check(context.Background(), CheckOptions{}); err != nil {
		t.Fatal(err)
	}
	st, _ := store.Load(context.Background())
	if st.LastSinceIso.String() != "2026-10-19T11:45:30Z" {
		t.Fatalf("cursor should be newest receivedAt, got %s", st.LastSinceIso)
	}
	if st.LastScanAtIso.String() != "2026-10-19T12:00:00Z" {
		t.Fatalf("lastScanAtIso wrong: %s", st.LastScanAtIso)
	}
}

func TestCheck_CursorNeverRegresses(t *testing.T) {
	l := &fakeLister{}
	svc, store := newTestService(l)
	ctx := context.Background()

	cursor := time.Date(2026, 10, 19, 11, 0, 0, 0, time.UTC)
	st := domain.NewState()
	st.AdvanceCursor(cursor)
	_ = store.Save(ctx, st)

	// override reaches further back than the cursor and returns older alerts
	week := 7 * 24 * time.Hour
	l.alerts = []domain.Alert{alert(t, "old", "2026-10-15T00:00:00Z")}
	if _, err := svc.Check(ctx, CheckOptions{Lookback: &week}); err != nil {
		t.Fatal(err)
	}
	got, _ := store.Load(ctx)
	if !got.LastSinceIso.Equal(cursor) {
		t.Fatalf("cursor regressed: %s", got.LastSinceIso)
	}
}

func TestCheck_IdempotentWithoutNewAlerts(t *testing.T) {
	l := &fakeLister{alerts: []domain.Alert{alert(t, "a", "2026-10-19T11:00:00Z")}}
	svc, store := newTestService(l)
	ctx := context.Background()
	_, _ = svc.Mark(ctx, "ignored", "a")

	if _, err := svc.Check(ctx, CheckOptions{}); err != nil {
		t.Fatal(err)
	}
	first, _ := store.Load(ctx)

	svc.Now = func() time.Time { return fixedNow.Add(10 * time.Minute) }
	if _, err := svc.Check(ctx, CheckOptions{}); err != nil {
		t.Fatal(err)
	}
	second, _ := store.Load(ctx)

	if diff := cmp.Diff(first.Handled, second.Handled); diff != "" {
		t.Fatalf("handled changed (-first +second):\n%s", diff)
	}
	if !first.LastSinceIso.Equal(second.LastSinceIso.Time) {
		t.Fatalf("cursor moved without new alerts: %s -> %s", first.LastSinceIso, second.LastSinceIso)
	}
	if second.LastScanAtIso.String() != "2026-10-19T12:10:00Z" {
		t.Fatalf("lastScanAtIso should move: %s", second.LastScanAtIso)
	}
}

func TestCheck_RemoteErrorLeavesStateUntouched(t *testing.T) {
	l := &fakeLister{err: errors.New("connection refused")}
	svc, store := newTestService(l)

	if _, err := svc.Check(context.Background(), CheckOptions{}); err == nil {
		t.Fatal("expected error")
	}
	if store.Saves() != 0 {
		t.Fatalf("state must not be saved on failure")
	}
}

func TestCheck_NoAlertSource(t *testing.T) {
	svc, _ := newTestService(nil)
	svc.Alerts = nil
	if _, err := svc.Check(context.Background(), CheckOptions{}); err == nil {
		t.Fatal("expected error without alert source")
	}
}

func TestCheck_ReportJSONShape(t *testing.T) {
	l := &fakeLister{alerts: []domain.Alert{alert(t, "a", "2026-10-19T11:00:00Z")}}
	svc, _ := newTestService(l)

	rep, err := svc.Check(context.Background(), CheckOptions{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(rep)
	if err != nil {
		t.Fatal(err)
	}
	var out struct {
		Alerts []map[string]any `json:"alerts"`
		Counts map[string]int   `json:"counts"`
		Since  string           `json:"sinceUsed"`
		State  map[string]any   `json:"state"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Alerts) != 1 || out.Alerts[0]["_localStatus"] != "unhandled" || out.Alerts[0]["subject"] != "s-a" {
		t.Fatalf("alerts wrong: %s", b)
	}
	if out.Counts["totalFetched"] != 1 || out.Counts["returned"] != 1 {
		t.Fatalf("counts wrong: %s", b)
	}
	if _, ok := out.State["handled"]; !ok {
		t.Fatalf("state missing: %s", b)
	}
}

func TestMark_RoundTripThroughStore(t *testing.T) {
	svc, store := newTestService(&fakeLister{})
	ctx := context.Background()

	if _, err := svc.Mark(ctx, "Drafted ", " A1 "); err != nil {
		t.Fatalf("Mark drafted: %v", err)
	}
	st, _ := store.Load(ctx)
	e, ok := st.Handled["A1"]
	if !ok || e.Status != domain.StatusDrafted || e.AtIso == nil {
		t.Fatalf("drafted entry wrong: %+v", st.Handled)
	}
	if diff := cmp.Diff([]string{"A1"}, st.DraftedAlertIDs); diff != "" {
		t.Fatalf("drafted list (-want +got):\n%s", diff)
	}

	if _, err := svc.Mark(ctx, "unhandled", "A1"); err != nil {
		t.Fatalf("Mark unhandled: %v", err)
	}
	st, _ = store.Load(ctx)
	if _, ok := st.Handled["A1"]; ok {
		t.Fatalf("A1 should be gone from handled")
	}
	if len(st.DraftedAlertIDs) != 0 || len(st.IgnoredAlertIDs) != 0 {
		t.Fatalf("legacy lists not cleared: %v %v", st.DraftedAlertIDs, st.IgnoredAlertIDs)
	}
	if st.LastScanAtIso.String() != "2026-10-19T12:00:00Z" {
		t.Fatalf("lastScanAtIso wrong: %s", st.LastScanAtIso)
	}
}

func TestMark_UnhandledOnUnknownIDStillSaves(t *testing.T) {
	svc, store := newTestService(&fakeLister{})
	if _, err := svc.Mark(context.Background(), "unhandled", "ghost"); err != nil {
		t.Fatal(err)
	}
	if store.Saves() != 1 {
		t.Fatalf("want one save, got %d", store.Saves())
	}
}

func TestMark_InvalidInput(t *testing.T) {
	svc, store := newTestService(&fakeLister{})
	ctx := context.Background()

	if _, err := svc.Mark(ctx, "archived", "A"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("want ErrInvalidStatus, got %v", err)
	}
	if _, err := svc.Mark(ctx, "drafted", "   "); !errors.Is(err, ErrEmptyAlertID) {
		t.Fatalf("want ErrEmptyAlertID, got %v", err)
	}
	if store.Saves() != 0 {
		t.Fatalf("invalid input must not touch state")
	}
}

func TestCheck_EmptyStoredCursorFallsBackToDefaultWindow(t *testing.T) {
	l := &fakeLister{}
	svc, store := newTestService(l)
	st, err := domain.DecodeState([]byte(`{"lastSinceIso": "", "handled": {}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := store.Save(context.Background(), st); err != nil {
		t.Fatal(err)
	}

	rep, err := svc.Check(context.Background(), CheckOptions{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if rep.SinceUsed != "2026-10-18T12:00:00Z" {
		t.Fatalf("want 24h lookback, got %s", rep.SinceUsed)
	}
}
