package repo

import (
	"context"

	"github.com/hamed0406/gatekeepertriage/internal/domain"
)

// StateStore persists the triage state document. Swap in any backend; the
// document semantics stay the same.
type StateStore interface {
	// Load returns a normalized state. A missing document yields defaults.
	Load(ctx context.Context) (*domain.State, error)
	// Save overwrites the stored document.
	Save(ctx context.Context, s *domain.State) error
}
