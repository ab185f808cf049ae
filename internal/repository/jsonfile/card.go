package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/msomdec/recall/internal/domain"
)

type cardRecord struct {
	ID         string           `json:"id"`
	Prompt     string           `json:"prompt"`
	Solution   string           `json:"solution"`
	State      domain.CardState `json:"state"`
	ChangeTime timestamp        `json:"changeTime"`
	NextTime   timestamp        `json:"nextTime"`
	Disabled   bool             `json:"disabled"`
}

func toRecord(c domain.Card) cardRecord {
	return cardRecord{
		ID:         c.ID,
		Prompt:     c.Prompt,
		Solution:   c.Solution,
		State:      c.State,
		ChangeTime: timestamp(c.ChangeTime),
		NextTime:   timestamp(c.NextTime),
		Disabled:   c.Disabled,
	}
}

func (r cardRecord) card() domain.Card {
	return domain.Card{
		ID:         r.ID,
		Prompt:     r.Prompt,
		Solution:   r.Solution,
		State:      r.State,
		ChangeTime: time.Time(r.ChangeTime),
		NextTime:   time.Time(r.NextTime),
		Disabled:   r.Disabled,
	}
}

// CardRepository implements domain.CardRepository over one JSON file.
// The whole file is loaded on open and rewritten on every change. It assumes
// a single writing process.
type CardRepository struct {
	path  string
	mu    sync.Mutex
	cards []domain.Card
}

// CreateEmptyCardFile writes an empty card array to path, replacing any existing file.
func CreateEmptyCardFile(path string) error {
	return writeJSON(path, []cardRecord{})
}

// OpenCardRepository loads the card file at path.
func OpenCardRepository(path string) (*CardRepository, error) {
	var records []cardRecord
	if err := readJSON(path, &records); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("card file %s does not exist: %w", path, err)
		}
		return nil, fmt.Errorf("load cards: %w", err)
	}

	cards := make([]domain.Card, len(records))
	for i, rec := range records {
		cards[i] = rec.card()
	}
	return &CardRepository{path: path, cards: cards}, nil
}

// commit persists next and makes it current. On failure the current state is kept.
func (r *CardRepository) commit(next []domain.Card) error {
	records := make([]cardRecord, len(next))
	for i, c := range next {
		records[i] = toRecord(c)
	}
	if err := writeJSON(r.path, records); err != nil {
		return fmt.Errorf("persist cards: %w", err)
	}
	r.cards = next
	return nil
}

// Ping reports whether the card file is still in place.
func (r *CardRepository) Ping(context.Context) error {
	if _, err := os.Stat(r.path); err != nil {
		return fmt.Errorf("card file: %w", err)
	}
	return nil
}

func (r *CardRepository) index(id string) int {
	for i := range r.cards {
		if r.cards[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *CardRepository) Create(_ context.Context, card *domain.Card) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.index(card.ID) >= 0 {
		return domain.ErrDuplicateID
	}
	next := append(append(make([]domain.Card, 0, len(r.cards)+1), r.cards...), *card)
	return r.commit(next)
}

func (r *CardRepository) Get(_ context.Context, id string) (*domain.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.index(id)
	if i < 0 {
		return nil, domain.ErrNotFound
	}
	card := r.cards[i]
	return &card, nil
}

func (r *CardRepository) Update(_ context.Context, update domain.CardUpdate) (*domain.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.index(update.ID)
	if i < 0 {
		return nil, domain.ErrNotFound
	}

	card := r.cards[i]
	update.Apply(&card)
	if card == r.cards[i] {
		return &card, nil
	}

	next := append([]domain.Card(nil), r.cards...)
	next[i] = card
	if err := r.commit(next); err != nil {
		return nil, err
	}
	return &card, nil
}

func (r *CardRepository) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.index(id)
	if i < 0 {
		return false, nil
	}
	next := make([]domain.Card, 0, len(r.cards)-1)
	next = append(next, r.cards[:i]...)
	next = append(next, r.cards[i+1:]...)
	if err := r.commit(next); err != nil {
		return false, err
	}
	return true, nil
}

func (r *CardRepository) FindBySubstring(_ context.Context, text string) ([]domain.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	found := []domain.Card{}
	for _, card := range r.cards {
		if card.MatchesSubstring(text) {
			found = append(found, card)
		}
	}
	return found, nil
}

func (r *CardRepository) FindNextDue(_ context.Context, asOf time.Time) (*domain.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if next := domain.NextDue(r.cards, asOf); next != nil {
		return next, nil
	}
	return nil, domain.ErrNotFound
}
