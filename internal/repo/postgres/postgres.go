package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/gatekeepertriage/internal/domain"
	"github.com/hamed0406/gatekeepertriage/internal/repo"
)

var _ repo.StateStore = (*Store)(nil)

// Schema holds one state document per name.
const Schema = `
CREATE TABLE IF NOT EXISTS gatekeeper_state (
  name       TEXT PRIMARY KEY,
  doc        JSONB NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

type Store struct {
	pool *pgxpool.Pool
	name string
	log  *zap.Logger
}

func New(ctx context.Context, dsn, name string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if name == "" {
		name = "default"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{pool: pool, name: name, log: log}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the state table on a fresh database.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context) (*domain.State, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx,
		`SELECT doc::text FROM gatekeeper_state WHERE name = $1`, s.name,
	).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NewState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load state %q: %w", s.name, err)
	}
	st, err := domain.DecodeState(doc)
	if err != nil {
		return nil, fmt.Errorf("parse state %q: %w", s.name, err)
	}
	return st, nil
}

func (s *Store) Save(ctx context.Context, st *domain.State) error {
	doc, err := st.Encode()
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO gatekeeper_state (name, doc, updated_at)
		VALUES ($1, $2::jsonb, now())
		ON CONFLICT (name)
		DO UPDATE SET doc = EXCLUDED.doc, updated_at = EXCLUDED.updated_at`,
		s.name, string(doc))
	if err != nil {
		return fmt.Errorf("save state %q: %w", s.name, err)
	}
	s.log.Debug("pg_state_saved", zap.String("name", s.name), zap.Int("bytes", len(doc)))
	return nil
}
