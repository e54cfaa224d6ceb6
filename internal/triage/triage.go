package triage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/gatekeepertriage/internal/domain"
	"github.com/hamed0406/gatekeepertriage/internal/repo"
)

// DefaultLookback is used when neither an override nor a cursor exists.
const DefaultLookback = 24 * time.Hour

var (
	ErrInvalidStatus = errors.New("status must be drafted|ignored|unhandled")
	ErrEmptyAlertID  = errors.New("alert id is required")
)

// AlertLister is the remote side of a fetch.
type AlertLister interface {
	ListAlerts(ctx context.Context, since time.Time, limit int) ([]domain.Alert, error)
}

type Service struct {
	Logger *zap.Logger
	Store  repo.StateStore
	Alerts AlertLister // only needed by Check
	Limit  int
	Now    func() time.Time
}

func NewService(logger *zap.Logger, store repo.StateStore, alerts AlertLister, limit int) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limit <= 0 {
		limit = 50
	}
	return &Service{
		Logger: logger,
		Store:  store,
		Alerts: alerts,
		Limit:  limit,
		Now:    time.Now,
	}
}

type CheckOptions struct {
	IncludeHandled bool
	// Lookback overrides the stored cursor when set.
	Lookback *time.Duration
}

type Counts struct {
	Returned     int `json:"returned"`
	TotalFetched int `json:"totalFetched"`
}

// Report is what `gatekeeper check` prints. Fields are in key order so the
// output is sorted like the state file.
type Report struct {
	Alerts    []domain.Alert `json:"alerts"`
	Counts    Counts         `json:"counts"`
	SinceUsed string         `json:"sinceUsed"`
	State     *domain.State  `json:"state"`
}

// Check fetches alerts since the lookback window start, tags each with its
// local status and advances the cursor to the newest receivedAt seen.
func (s *Service) Check(ctx context.Context, opts CheckOptions) (*Report, error) {
	if s.Alerts == nil {
		return nil, errors.New("triage: no alert source configured")
	}
	st, err := s.Store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	now := s.now()
	since := windowStart(st, opts.Lookback, now)
	sinceUsed := domain.FormatISO(since)

	alerts, err := s.Alerts.ListAlerts(ctx, since, s.Limit)
	if err != nil {
		return nil, fmt.Errorf("list alerts since %s: %w", sinceUsed, err)
	}

	out := make([]domain.Alert, 0, len(alerts))
	newest := since
	for _, a := range alerts {
		if ra, ok := a.ReceivedTime(); ok && ra.After(newest) {
			newest = ra
		}
		a.LocalStatus = st.StatusOf(a.ID)
		if opts.IncludeHandled || a.LocalStatus == domain.StatusUnhandled {
			out = append(out, a)
		}
	}

	st.AdvanceCursor(newest)
	st.LastScanAtIso = domain.NewTimestamp(now)
	if err := s.Store.Save(ctx, st); err != nil {
		return nil, fmt.Errorf("save state: %w", err)
	}

	s.Logger.Info("alerts_fetched",
		zap.String("since", sinceUsed),
		zap.Int("total_fetched", len(alerts)),
		zap.Int("returned", len(out)),
		zap.Bool("include_handled", opts.IncludeHandled),
		zap.Stringer("cursor", st.LastSinceIso),
	)

	return &Report{
		Alerts:    out,
		Counts:    Counts{Returned: len(out), TotalFetched: len(alerts)},
		SinceUsed: sinceUsed,
		State:     st,
	}, nil
}

// Mark sets or clears the local handled status of one alert. Both inputs are
// trimmed and the status is case-insensitive.
func (s *Service) Mark(ctx context.Context, rawStatus, rawID string) (*domain.State, error) {
	status, ok := domain.ParseStatus(rawStatus)
	if !ok {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidStatus, rawStatus)
	}
	id := strings.TrimSpace(rawID)
	if id == "" {
		return nil, ErrEmptyAlertID
	}

	st, err := s.Store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	if err := st.Mark(id, status, s.now()); err != nil {
		return nil, err
	}
	if err := s.Store.Save(ctx, st); err != nil {
		return nil, fmt.Errorf("save state: %w", err)
	}

	s.Logger.Info("alert_marked", zap.String("alert_id", id), zap.String("status", string(status)))
	return st, nil
}

// windowStart picks the override, else the cursor, else the default
// lookback. The result is truncated to whole seconds.
func windowStart(st *domain.State, lookback *time.Duration, now time.Time) time.Time {
	var since time.Time
	switch {
	case lookback != nil:
		since = now.Add(-*lookback)
	case st.LastSinceIso != nil:
		since = st.LastSinceIso.Time
	default:
		since = now.Add(-DefaultLookback)
	}
	return since.UTC().Truncate(time.Second)
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}
