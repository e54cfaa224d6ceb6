package gatekeeper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestListAlerts_SendsQueryAndToken(t *testing.T) {
	var gotAuth, gotLimit, gotSince, gotPath string
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotLimit = r.URL.Query().Get("limit")
		gotSince = r.URL.Query().Get("since")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"a1","receivedAt":"2026-10-19T08:00:00Z","subject":"Invoice"},{"id":"a2","receivedAt":"2026-10-19T09:00:00Z"}]`))
	}))
	defer s.Close()

	c := NewClient(s.URL+"/", "tok123", 2*time.Second)
	since := time.Date(2026, 10, 18, 8, 0, 0, 987, time.UTC)
	alerts, err := c.ListAlerts(context.Background(), since, 50)
	if err != nil {
		t.Fatalf("ListAlerts: %v", err)
	}
	if len(alerts) != 2 || alerts[0].ID != "a1" || alerts[0].Subject != "Invoice" {
		t.Fatalf("unexpected alerts: %+v", alerts)
	}
	if gotAuth != "Bearer tok123" {
		t.Fatalf("want bearer token, got %q", gotAuth)
	}
	if gotPath != "/v1/alerts" {
		t.Fatalf("want /v1/alerts, got %q", gotPath)
	}
	if gotLimit != "50" || gotSince != "2026-10-18T08:00:00Z" {
		t.Fatalf("unexpected query limit=%q since=%q", gotLimit, gotSince)
	}
}

func TestListAlerts_ClampsLimit(t *testing.T) {
	var gotLimit string
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLimit = r.URL.Query().Get("limit")
		w.Write([]byte(`[]`))
	}))
	defer s.Close()

	c := NewClient(s.URL, "t", time.Second)
	if _, err := c.ListAlerts(context.Background(), time.Now(), 5000); err != nil {
		t.Fatal(err)
	}
	if gotLimit != "200" {
		t.Fatalf("want limit clamped to 200, got %s", gotLimit)
	}
}

func TestListAlerts_EmptyAndNullBodies(t *testing.T) {
	for _, body := range []string{"", "null", "  \n"} {
		s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}))
		alerts, err := NewClient(s.URL, "t", time.Second).ListAlerts(context.Background(), time.Now(), 50)
		s.Close()
		if err != nil {
			t.Fatalf("body %q: %v", body, err)
		}
		if len(alerts) != 0 {
			t.Fatalf("body %q: want no alerts, got %d", body, len(alerts))
		}
	}
}

func TestListAlerts_Non2xx(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer s.Close()

	_, err := NewClient(s.URL, "bad", time.Second).ListAlerts(context.Background(), time.Now(), 50)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("want StatusError, got %v", err)
	}
	if se.Code != http.StatusUnauthorized || se.Body != "unauthorized" {
		t.Fatalf("unexpected status error: %+v", se)
	}
}

func TestListAlerts_MalformedJSON(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"alerts":`))
	}))
	defer s.Close()

	if _, err := NewClient(s.URL, "t", time.Second).ListAlerts(context.Background(), time.Now(), 50); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestListAlerts_Timeout(t *testing.T) {
	// Server sleeps longer than client timeout
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`[]`))
	}))
	defer s.Close()

	if _, err := NewClient(s.URL, "t", 50*time.Millisecond).ListAlerts(context.Background(), time.Now(), 50); err == nil {
		t.Fatal("want timeout error")
	}
}

func TestListAlerts_ErrorBodyCutOnRuneBoundary(t *testing.T) {
	body := strings.Repeat("x", 511) + strings.Repeat("é", 20)
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(body))
	}))
	defer s.Close()

	_, err := NewClient(s.URL, "t", time.Second).ListAlerts(context.Background(), time.Now(), 50)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("want StatusError, got %v", err)
	}
	if !utf8.ValidString(se.Body) {
		t.Fatalf("body split a UTF-8 sequence: %q", se.Body)
	}
	if se.Body != strings.Repeat("x", 511)+"..." {
		t.Fatalf("unexpected body: %q", se.Body)
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"abcdef", 3, "abc..."},
		{"aé", 2, "a..."},
		{"éé", 3, "é..."},
		{"日本語", 4, "日..."},
	}
	for _, c := range cases {
		if got := truncate(c.in, c.n); got != c.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", c.in, c.n, got, c.want)
		}
	}
}
