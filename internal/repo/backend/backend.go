// Package backend picks the state store for a configuration.
package backend

import (
	"context"

	"go.uber.org/zap"

	"github.com/hamed0406/gatekeepertriage/internal/config"
	"github.com/hamed0406/gatekeepertriage/internal/repo"
	"github.com/hamed0406/gatekeepertriage/internal/repo/file"
	"github.com/hamed0406/gatekeepertriage/internal/repo/postgres"
)

// Open returns the Postgres store when DatabaseURL is set and the JSON file
// store otherwise. The returned func releases the store.
func Open(ctx context.Context, cfg config.Config, log *zap.Logger) (repo.StateStore, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Debug("state_backend", zap.String("kind", "file"), zap.String("path", cfg.StatePath))
		return file.New(cfg.StatePath), func() {}, nil
	}
	pg, err := postgres.New(ctx, cfg.DatabaseURL, cfg.StateName, log)
	if err != nil {
		return nil, nil, err
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		pg.Close()
		return nil, nil, err
	}
	log.Debug("state_backend", zap.String("kind", "postgres"), zap.String("name", cfg.StateName))
	return pg, pg.Close, nil
}
