package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/msomdec/recall/internal/domain"
)

// CardRepository implements domain.CardRepository using SQLite.
type CardRepository struct {
	db *sql.DB
}

// NewCardRepository creates a new SQLite-backed CardRepository.
func NewCardRepository(db *DB) *CardRepository {
	return &CardRepository{db: db.SqlDB}
}

const cardColumns = `id, prompt, solution, state, change_time, next_time, disabled`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (*domain.Card, error) {
	var (
		card                 domain.Card
		state                int
		changeTime, nextTime int64
	)
	if err := row.Scan(&card.ID, &card.Prompt, &card.Solution, &state, &changeTime, &nextTime, &card.Disabled); err != nil {
		return nil, err
	}
	card.State = domain.CardState(state)
	if !card.State.Valid() {
		return nil, fmt.Errorf("card %s has invalid state %d", card.ID, state)
	}
	card.ChangeTime = fromMillis(changeTime)
	card.NextTime = fromMillis(nextTime)
	return &card, nil
}

func (r *CardRepository) Create(ctx context.Context, card *domain.Card) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO cards (`+cardColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		card.ID, card.Prompt, card.Solution, int(card.State),
		toMillis(card.ChangeTime), toMillis(card.NextTime), card.Disabled,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return domain.ErrDuplicateID
		}
		return fmt.Errorf("insert card: %w", err)
	}
	return nil
}

func (r *CardRepository) Get(ctx context.Context, id string) (*domain.Card, error) {
	card, err := scanCard(r.db.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query card: %w", err)
	}
	return card, nil
}

func (r *CardRepository) Update(ctx context.Context, update domain.CardUpdate) (*domain.Card, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	card, err := scanCard(tx.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE id = ?`, update.ID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query card: %w", err)
	}

	if update.IsEmpty() {
		return card, nil
	}
	update.Apply(card)

	if _, err := tx.ExecContext(ctx,
		`UPDATE cards SET prompt = ?, solution = ?, state = ?, change_time = ?, next_time = ?, disabled = ?
		 WHERE id = ?`,
		card.Prompt, card.Solution, int(card.State),
		toMillis(card.ChangeTime), toMillis(card.NextTime), card.Disabled, card.ID,
	); err != nil {
		return nil, fmt.Errorf("update card: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return card, nil
}

func (r *CardRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM cards WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("delete card: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return rows > 0, nil
}

// FindBySubstring filters in Go: SQLite's LIKE only folds ASCII case.
func (r *CardRepository) FindBySubstring(ctx context.Context, text string) ([]domain.Card, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+cardColumns+` FROM cards ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query cards: %w", err)
	}
	defer rows.Close()

	found := []domain.Card{}
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		if card.MatchesSubstring(text) {
			found = append(found, *card)
		}
	}
	return found, rows.Err()
}

func (r *CardRepository) FindNextDue(ctx context.Context, asOf time.Time) (*domain.Card, error) {
	card, err := scanCard(r.db.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM cards
		 WHERE disabled = 0 AND next_time <= ?
		 ORDER BY next_time, id LIMIT 1`, toMillis(asOf)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query next due card: %w", err)
	}
	return card, nil
}
