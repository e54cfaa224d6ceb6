package main

import (
	"errors"
	"math"
	"time"

	"github.com/spf13/cobra"

	"github.com/hamed0406/gatekeepertriage/internal/triage"
)

func newCheckCmd(a *app) *cobra.Command {
	var (
		includeHandled bool
		sinceHours     float64
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Fetch alerts since the stored cursor and print the unhandled ones",
		Long: `Fetch alerts from Mail Gatekeeper and annotate them with local state.

By default only unhandled alerts are printed. The cursor advances to the newest
receivedAt seen so the next run does not return the same alerts again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := triage.CheckOptions{IncludeHandled: includeHandled}
			if cmd.Flags().Changed("since-hours") {
				d, err := lookback(sinceHours)
				if err != nil {
					return err
				}
				opts.Lookback = &d
			}

			svc, closeFn, err := a.service(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer closeFn()

			rep, err := svc.Check(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rep)
		},
	}

	cmd.Flags().BoolVar(&includeHandled, "include-handled", false,
		"include drafted/ignored alerts in output")
	cmd.Flags().Float64Var(&sinceHours, "since-hours", 0,
		"override lookback window in hours")

	return cmd
}

// maxSinceHours is the largest lookback a time.Duration can hold.
var maxSinceHours = float64(math.MaxInt64) / float64(time.Hour)

func lookback(hours float64) (time.Duration, error) {
	switch {
	case math.IsNaN(hours) || math.IsInf(hours, 0):
		return 0, errors.New("--since-hours must be a finite number")
	case hours < 0:
		return 0, errors.New("--since-hours must not be negative")
	case hours >= maxSinceHours:
		return 0, errors.New("--since-hours is too large")
	}
	return time.Duration(hours * float64(time.Hour)), nil
}
