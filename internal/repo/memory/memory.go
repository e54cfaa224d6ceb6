package memory

import (
	"context"
	"sync"

	"github.com/hamed0406/gatekeepertriage/internal/domain"
)

// Store keeps the encoded document in memory, so callers never share a
// *domain.State with it.
type Store struct {
	mu    sync.RWMutex
	doc   []byte
	saves int
}

func New() *Store {
	return &Store{}
}

func (m *Store) Load(ctx context.Context) (*domain.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.doc == nil {
		return domain.NewState(), nil
	}
	return domain.DecodeState(m.doc)
}

func (m *Store) Save(ctx context.Context, s *domain.State) error {
	b, err := s.Encode()
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc = b
	m.saves++
	return nil
}

// Saves reports how many times Save succeeded.
func (m *Store) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

// Raw returns a copy of the last saved document, or nil.
func (m *Store) Raw() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.doc == nil {
		return nil
	}
	return append([]byte(nil), m.doc...)
}
