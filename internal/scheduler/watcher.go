package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/gatekeepertriage/internal/domain"
	"github.com/hamed0406/gatekeepertriage/internal/notify"
	"github.com/hamed0406/gatekeepertriage/internal/triage"
)

type Checker interface {
	Check(ctx context.Context, opts triage.CheckOptions) (*triage.Report, error)
}

type WatcherConfig struct {
	Interval       time.Duration
	IncludeHandled bool
}

// Watcher runs a check every Interval and announces unhandled alerts it has
// not announced before. The announced set only holds ids from the latest
// report.
type Watcher struct {
	logger   *zap.Logger
	checker  Checker
	notifier notify.Notifier
	cfg      WatcherConfig
	// OnReport, when set, receives every successful report.
	OnReport func(*triage.Report)

	notified map[string]struct{}
}

func NewWatcher(logger *zap.Logger, checker Checker, notifier notify.Notifier, cfg WatcherConfig) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	return &Watcher{
		logger:   logger,
		checker:  checker,
		notifier: notifier,
		cfg:      cfg,
		notified: make(map[string]struct{}),
	}
}

// Run does an immediate pass, then one per tick, until ctx is cancelled.
// A failed pass is logged and the loop carries on.
func (w *Watcher) Run(ctx context.Context) error {
	t := time.NewTicker(w.cfg.Interval)
	defer t.Stop()

	w.logger.Info("watch_started", zap.Duration("interval", w.cfg.Interval))
	w.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watch_stopped")
			return ctx.Err()
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *Watcher) tick(ctx context.Context) {
	if _, err := w.passOnce(ctx); err != nil && ctx.Err() == nil {
		w.logger.Warn("watch_pass_failed", zap.Error(err))
	}
}

// passOnce returns how many alerts were announced.
func (w *Watcher) passOnce(ctx context.Context) (int, error) {
	rep, err := w.checker.Check(ctx, triage.CheckOptions{IncludeHandled: w.cfg.IncludeHandled})
	if err != nil {
		return 0, err
	}
	if w.OnReport != nil {
		w.OnReport(rep)
	}

	w.forgetMissing(rep.Alerts)

	var fresh []domain.Alert
	for _, a := range rep.Alerts {
		if a.LocalStatus != domain.StatusUnhandled {
			continue
		}
		if _, seen := w.notified[a.ID]; seen {
			continue
		}
		fresh = append(fresh, a)
	}
	if len(fresh) == 0 || w.notifier == nil {
		return 0, nil
	}

	title, text := notify.Summary(fresh)
	if err := w.notifier.Send(ctx, title, text); err != nil {
		// not recorded, so the next pass tries again
		w.logger.Warn("notify_failed", zap.Int("alerts", len(fresh)), zap.Error(err))
		return 0, nil
	}
	for _, a := range fresh {
		w.notified[a.ID] = struct{}{}
	}
	w.logger.Info("alerts_announced", zap.Int("alerts", len(fresh)))
	return len(fresh), nil
}

// forgetMissing drops announced ids that are absent from the latest report,
// so the set never outgrows one report.
func (w *Watcher) forgetMissing(alerts []domain.Alert) {
	present := make(map[string]struct{}, len(alerts))
	for _, a := range alerts {
		present[a.ID] = struct{}{}
	}
	for id := range w.notified {
		if _, ok := present[id]; !ok {
			delete(w.notified, id)
		}
	}
}
