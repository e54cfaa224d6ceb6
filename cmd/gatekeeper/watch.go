package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hamed0406/gatekeepertriage/internal/notify"
	"github.com/hamed0406/gatekeepertriage/internal/scheduler"
	"github.com/hamed0406/gatekeepertriage/internal/triage"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		interval       time.Duration
		includeHandled bool
		printReports   bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run check on an interval and announce new unhandled alerts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, closeFn, err := a.service(ctx, true)
			if err != nil {
				return err
			}
			defer closeFn()

			if !cmd.Flags().Changed("interval") {
				interval = a.cfg.WatchInterval
			}

			var n notify.Notifier
			if m := (notify.Multi{
				notify.NewWake(a.cfg.WebhookURL, a.cfg.WebhookToken),
				notify.NewSlack(a.cfg.SlackWebhook),
			}); m.Enabled() {
				n = m
			} else {
				a.log.Warn("watch_without_notifiers")
			}

			w := scheduler.NewWatcher(a.log, svc, n, scheduler.WatcherConfig{
				Interval:       interval,
				IncludeHandled: includeHandled,
			})
			if printReports {
				out := cmd.OutOrStdout()
				w.OnReport = func(rep *triage.Report) {
					if err := printJSON(out, rep); err != nil {
						a.log.Warn("print_report_failed", zap.Error(err))
					}
				}
			}

			err = w.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 5*time.Minute,
		"time between checks (default $GATEKEEPER_WATCH_INTERVAL_MS)")
	cmd.Flags().BoolVar(&includeHandled, "include-handled", false,
		"include drafted/ignored alerts in printed reports")
	cmd.Flags().BoolVar(&printReports, "print", false,
		"print every report to stdout")

	return cmd
}
