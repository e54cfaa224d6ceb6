package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hamed0406/gatekeepertriage/internal/config"
	"github.com/hamed0406/gatekeepertriage/internal/gatekeeper"
	"github.com/hamed0406/gatekeepertriage/internal/logging"
	"github.com/hamed0406/gatekeepertriage/internal/repo/backend"
	"github.com/hamed0406/gatekeepertriage/internal/triage"
)

var version = "dev"

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfg config.Config
	log *zap.Logger

	statePath string
	baseURL   string
	level     string
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "gatekeeper",
		Short:         "Track which Mail Gatekeeper alerts have been handled",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.cfg = config.FromEnv()
			if a.statePath != "" {
				a.cfg.StatePath = a.statePath
			}
			if a.baseURL != "" {
				a.cfg.BaseURL = a.baseURL
			}
			if a.level != "" {
				a.cfg.LogLevel = a.level
			}
			log, err := logging.NewLogger(a.cfg.LogDir, a.cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			a.log = log.With(zap.String("cmd", cmd.Name()))
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&a.statePath, "state", "",
		"state file path (default $GATEKEEPER_STATE_PATH)")
	cmd.PersistentFlags().StringVar(&a.baseURL, "base-url", "",
		"Mail Gatekeeper base URL (default $GATEKEEPER_BASE_URL)")
	cmd.PersistentFlags().StringVar(&a.level, "level", "",
		"set the logging level (can be one of: debug, info, warn, error)")

	cmd.AddCommand(newCheckCmd(a))
	cmd.AddCommand(newMarkCmd(a))
	cmd.AddCommand(newWatchCmd(a))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// service builds a triage service. withRemote also resolves the API token,
// which only fetching needs.
func (a *app) service(ctx context.Context, withRemote bool) (*triage.Service, func(), error) {
	var lister triage.AlertLister
	if withRemote {
		token, err := gatekeeper.ReadToken(a.cfg.TokenPaths)
		if err != nil {
			return nil, nil, err
		}
		lister = gatekeeper.NewClient(a.cfg.BaseURL, token, a.cfg.Timeout)
	}

	store, closeFn, err := backend.Open(ctx, a.cfg, a.log)
	if err != nil {
		return nil, nil, fmt.Errorf("open state: %w", err)
	}
	return triage.NewService(a.log, store, lister, a.cfg.Limit), closeFn, nil
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
