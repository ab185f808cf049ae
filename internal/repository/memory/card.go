// Package memory holds in-process repositories used by tests and throwaway setups.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/msomdec/recall/internal/domain"
)

// CardRepository implements domain.CardRepository with a map.
type CardRepository struct {
	mu    sync.RWMutex
	cards map[string]domain.Card
}

// NewCardRepository returns an empty repository.
func NewCardRepository() *CardRepository {
	return &CardRepository{cards: make(map[string]domain.Card)}
}

func (r *CardRepository) Create(_ context.Context, card *domain.Card) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.cards[card.ID]; ok {
		return domain.ErrDuplicateID
	}
	r.cards[card.ID] = *card
	return nil
}

func (r *CardRepository) Get(_ context.Context, id string) (*domain.Card, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	card, ok := r.cards[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &card, nil
}

func (r *CardRepository) Update(_ context.Context, update domain.CardUpdate) (*domain.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	card, ok := r.cards[update.ID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	update.Apply(&card)
	r.cards[card.ID] = card
	return &card, nil
}

func (r *CardRepository) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.cards[id]
	delete(r.cards, id)
	return ok, nil
}

func (r *CardRepository) FindBySubstring(_ context.Context, text string) ([]domain.Card, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	found := []domain.Card{}
	for _, card := range r.cards {
		if card.MatchesSubstring(text) {
			found = append(found, card)
		}
	}
	domain.SortByID(found)
	return found, nil
}

func (r *CardRepository) FindNextDue(_ context.Context, asOf time.Time) (*domain.Card, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]domain.Card, 0, len(r.cards))
	for _, card := range r.cards {
		all = append(all, card)
	}
	if next := domain.NextDue(all, asOf); next != nil {
		return next, nil
	}
	return nil, domain.ErrNotFound
}
