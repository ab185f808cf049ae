package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/msomdec/recall/internal/domain"
)

// AutoSaveRepository keeps the single draft slot in its own file.
// An absent file means there is no draft.
type AutoSaveRepository struct {
	path string
	mu   sync.Mutex
}

// NewAutoSaveRepository returns a draft slot backed by the file at path.
func NewAutoSaveRepository(path string) *AutoSaveRepository {
	return &AutoSaveRepository{path: path}
}

func (r *AutoSaveRepository) Write(_ context.Context, draft domain.Draft) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := writeJSON(r.path, draft); err != nil {
		return fmt.Errorf("write autosave: %w", err)
	}
	return nil
}

func (r *AutoSaveRepository) Read(_ context.Context) (*domain.Draft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var draft domain.Draft
	if err := readJSON(r.path, &draft); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("read autosave: %w", err)
	}
	return &draft, nil
}

func (r *AutoSaveRepository) Delete(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := removeFile(r.path); err != nil {
		return fmt.Errorf("delete autosave: %w", err)
	}
	return nil
}
