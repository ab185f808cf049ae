package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/msomdec/recall/internal/domain"
)

// AutoSaveRepository keeps the draft in a table constrained to one row.
type AutoSaveRepository struct {
	db *sql.DB
}

// NewAutoSaveRepository creates a new SQLite-backed AutoSaveRepository.
func NewAutoSaveRepository(db *DB) *AutoSaveRepository {
	return &AutoSaveRepository{db: db.SqlDB}
}

func (r *AutoSaveRepository) Write(ctx context.Context, draft domain.Draft) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO autosave (slot, card_id, prompt, solution) VALUES (1, ?, ?, ?)
		 ON CONFLICT (slot) DO UPDATE SET card_id = excluded.card_id, prompt = excluded.prompt, solution = excluded.solution`,
		draft.ID, draft.Prompt, draft.Solution,
	)
	if err != nil {
		return fmt.Errorf("write autosave: %w", err)
	}
	return nil
}

func (r *AutoSaveRepository) Read(ctx context.Context) (*domain.Draft, error) {
	var draft domain.Draft
	err := r.db.QueryRowContext(ctx,
		`SELECT card_id, prompt, solution FROM autosave WHERE slot = 1`,
	).Scan(&draft.ID, &draft.Prompt, &draft.Solution)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("read autosave: %w", err)
	}
	return &draft, nil
}

func (r *AutoSaveRepository) Delete(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM autosave`); err != nil {
		return fmt.Errorf("delete autosave: %w", err)
	}
	return nil
}
