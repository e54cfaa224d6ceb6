package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

const markUsage = "usage: gatekeeper mark <drafted|ignored|unhandled> <alertId>"

func newMarkCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mark <drafted|ignored|unhandled> <alertId>",
		Short: "Mark an alert as handled locally, or clear the mark",
		Example: `  gatekeeper mark drafted <alertId>
  gatekeeper mark ignored <alertId>
  gatekeeper mark unhandled <alertId>   # remove local mark`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) < 2 {
				return errors.New(markUsage)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := a.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer closeFn()

			if _, err := svc.Mark(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return err
		},
	}
}
