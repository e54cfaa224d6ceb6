package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/multierr"

	"github.com/hamed0406/gatekeepertriage/internal/domain"
)

// Store keeps the state document in a single JSON file.
type Store struct {
	Path string
}

func New(path string) *Store {
	return &Store{Path: path}
}

func (s *Store) Load(ctx context.Context) (*domain.State, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.NewState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	st, err := domain.DecodeState(data)
	if err != nil {
		return nil, fmt.Errorf("parse state %s: %w", s.Path, err)
	}
	return st, nil
}

// Save writes the document to a temp file next to Path and renames it into
// place, creating the parent directory on first use.
func (s *Store) Save(ctx context.Context, st *domain.State) (err error) {
	data, err := st.Encode()
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	_, werr := tmp.Write(data)
	if err = multierr.Combine(werr, tmp.Chmod(0o644), tmp.Close()); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err = os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}
