// cmd/preflight/main.go
package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"

	"github.com/hamed0406/gatekeepertriage/internal/config"
	"github.com/hamed0406/gatekeepertriage/internal/gatekeeper"
	"github.com/hamed0406/gatekeepertriage/internal/repo/file"
)

func main() {
	cfg := config.FromEnv()
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	var errs error
	fail := func(err error) {
		fmt.Fprintln(os.Stderr, "✖", err)
		errs = multierr.Append(errs, err)
	}

	if _, err := gatekeeper.ReadToken(cfg.TokenPaths); err != nil {
		fail(err)
	} else {
		ok("API token found")
	}

	if err := checkURL(cfg.BaseURL); err != nil {
		fail(fmt.Errorf("GATEKEEPER_BASE_URL: %w", err))
	} else {
		ok("GATEKEEPER_BASE_URL=" + cfg.BaseURL)
	}

	if cfg.DatabaseURL != "" {
		ok("DATABASE_URL present; state lives in Postgres as " + cfg.StateName)
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_, err := file.New(cfg.StatePath).Load(ctx)
		cancel()
		switch {
		case err != nil:
			fail(fmt.Errorf("state file: %w", err))
		case !dirWritable(filepath.Dir(cfg.StatePath)):
			fail(fmt.Errorf("state dir %s is not writable", filepath.Dir(cfg.StatePath)))
		default:
			ok("state file usable: " + cfg.StatePath)
		}
	}

	if cfg.WebhookURL == "" && cfg.SlackWebhook == "" {
		warn("no GATEKEEPER_WEBHOOK_URL or SLACK_WEBHOOK_URL; watch will not announce alerts.")
	}
	for name, v := range map[string]string{"GATEKEEPER_WEBHOOK_URL": cfg.WebhookURL, "SLACK_WEBHOOK_URL": cfg.SlackWebhook} {
		if v == "" {
			continue
		}
		if err := checkURL(v); err != nil {
			fail(fmt.Errorf("%s: %w", name, err))
		} else {
			ok(name + " present")
		}
	}

	if len(cfg.AdminAPIKeys) == 0 {
		warn("ADMIN_API_KEYS is empty; the state API accepts marks from anyone.")
	}

	if errs != nil {
		fmt.Fprintf(os.Stderr, "✖ preflight failed (%d problem(s))\n", len(multierr.Errors(errs)))
		os.Exit(1)
	}
	ok("preflight passed")
}

func checkURL(raw string) error {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

// dirWritable reports whether dir, or its nearest existing ancestor, accepts
// new files.
func dirWritable(dir string) bool {
	for {
		if _, err := os.Stat(dir); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return false
		}
		dir = parent
	}
	f, err := os.CreateTemp(dir, ".preflight-*")
	if err != nil {
		return false
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return true
}
