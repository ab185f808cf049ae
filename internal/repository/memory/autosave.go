package memory

import (
	"context"
	"sync"

	"github.com/msomdec/recall/internal/domain"
)

// AutoSaveRepository implements domain.AutoSaveRepository in memory.
type AutoSaveRepository struct {
	mu    sync.Mutex
	draft *domain.Draft
}

// NewAutoSaveRepository returns an empty draft slot.
func NewAutoSaveRepository() *AutoSaveRepository {
	return &AutoSaveRepository{}
}

func (r *AutoSaveRepository) Write(_ context.Context, draft domain.Draft) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.draft = &draft
	return nil
}

func (r *AutoSaveRepository) Read(_ context.Context) (*domain.Draft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.draft == nil {
		return nil, domain.ErrNotFound
	}
	draft := *r.draft
	return &draft, nil
}

func (r *AutoSaveRepository) Delete(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.draft = nil
	return nil
}
