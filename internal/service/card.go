package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/msomdec/recall/internal/domain"
	"github.com/msomdec/recall/internal/schedule"
)

// MaxContentLength bounds the prompt and solution of a card, in bytes.
const MaxContentLength = 10000

// CardService creates, edits and schedules cards.
type CardService struct {
	cards    domain.CardRepository
	drafts   domain.AutoSaveRepository
	log      *slog.Logger
	validate *validator.Validate
	now      func() time.Time
	newID    func() string
}

// CardOption configures a CardService.
type CardOption func(*CardService)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) CardOption {
	return func(s *CardService) { s.now = now }
}

// WithIDGenerator replaces the UUID generator used for new cards.
func WithIDGenerator(newID func() string) CardOption {
	return func(s *CardService) { s.newID = newID }
}

// NewCardService creates a new CardService.
func NewCardService(cards domain.CardRepository, drafts domain.AutoSaveRepository, log *slog.Logger, opts ...CardOption) *CardService {
	s := &CardService{
		cards:    cards,
		drafts:   drafts,
		log:      log.With(slog.String("service", "card")),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// clock returns the current time as stored: UTC at millisecond precision.
func (s *CardService) clock() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

type cardContent struct {
	Prompt   string `validate:"required,max=10000"`
	Solution string `validate:"required,max=10000"`
}

func (s *CardService) checkContent(field, value string) error {
	if err := s.validate.Var(value, "required,max=10000"); err != nil {
		return fmt.Errorf("%w: %s must be between 1 and %d bytes", domain.ErrInvalidInput, field, MaxContentLength)
	}
	return nil
}

// Create stores a new disabled card that becomes due ten minutes from now.
// The pending draft is discarded once the card is stored.
func (s *CardService) Create(ctx context.Context, prompt, solution string) (*domain.Card, error) {
	if err := s.validate.Struct(cardContent{Prompt: prompt, Solution: solution}); err != nil {
		return nil, fmt.Errorf("%w: prompt and solution are required and must be at most %d bytes", domain.ErrInvalidInput, MaxContentLength)
	}

	t := schedule.Created(s.clock())
	card := &domain.Card{
		ID:         s.newID(),
		Prompt:     prompt,
		Solution:   solution,
		State:      t.State,
		ChangeTime: t.ChangeTime,
		NextTime:   t.NextTime,
		Disabled:   true,
	}
	if err := s.cards.Create(ctx, card); err != nil {
		return nil, fmt.Errorf("create card: %w", err)
	}

	s.log.DebugContext(ctx, "card created", slog.String("id", card.ID), slog.Time("next_time", card.NextTime))
	s.clearDraft(ctx)
	return card, nil
}

// Read returns the card or nil when it does not exist.
func (s *CardService) Read(ctx context.Context, id string) (*domain.Card, error) {
	card, err := s.cards.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read card: %w", err)
	}
	return card, nil
}

// Update rewrites the content of a card. A minor edit keeps the schedule;
// a major edit resets the card to New, due thirty minutes from now.
// Unset prompt or solution values are left unchanged. The pending draft is
// discarded after the write is attempted, whatever its outcome.
func (s *CardService) Update(ctx context.Context, id string, prompt, solution domain.Optional[string], isMinor bool) (*domain.Card, error) {
	if v, ok := prompt.Get(); ok {
		if err := s.checkContent("prompt", v); err != nil {
			return nil, err
		}
	}
	if v, ok := solution.Get(); ok {
		if err := s.checkContent("solution", v); err != nil {
			return nil, err
		}
	}

	update := domain.CardUpdate{ID: id}
	if !isMinor {
		update = schedule.Reset(s.clock()).Update(id)
	}
	update.Prompt = prompt
	update.Solution = solution

	card, err := s.cards.Update(ctx, update)
	s.clearDraft(ctx)

	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update card: %w", err)
	}
	s.log.DebugContext(ctx, "card updated", slog.String("id", id), slog.Bool("minor", isMinor))
	return card, nil
}

// Delete removes the card and reports whether it existed.
func (s *CardService) Delete(ctx context.Context, id string) (bool, error) {
	existed, err := s.cards.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete card: %w", err)
	}
	return existed, nil
}

// Search returns the cards whose prompt or solution contains text, ignoring case.
func (s *CardService) Search(ctx context.Context, text string) ([]domain.Card, error) {
	cards, err := s.cards.FindBySubstring(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("search cards: %w", err)
	}
	return cards, nil
}

// NextDue returns the enabled card that has been due the longest, or nil.
func (s *CardService) NextDue(ctx context.Context) (*domain.Card, error) {
	card, err := s.cards.FindNextDue(ctx, s.clock())
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find next due card: %w", err)
	}
	return card, nil
}

// SetOk records a successful review: the wait until the card is due again
// is twice the time since its last transition.
func (s *CardService) SetOk(ctx context.Context, id string) (*domain.Card, error) {
	return s.review(ctx, id, domain.StateOk)
}

// SetFailed records a failed review: the wait is half the time since the
// last transition, rounded down.
func (s *CardService) SetFailed(ctx context.Context, id string) (*domain.Card, error) {
	return s.review(ctx, id, domain.StateFailed)
}

// review is a no-op returning nil when the card does not exist.
func (s *CardService) review(ctx context.Context, id string, outcome domain.CardState) (*domain.Card, error) {
	card, err := s.Read(ctx, id)
	if err != nil || card == nil {
		return nil, err
	}

	now := s.clock()
	t, err := schedule.Review(outcome, card.ChangeTime, now)
	if err != nil {
		return nil, err
	}

	updated, err := s.cards.Update(ctx, t.Update(id))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("schedule card: %w", err)
	}

	s.log.DebugContext(ctx, "card reviewed",
		slog.String("id", id),
		slog.String("outcome", outcome.String()),
		slog.Duration("wait", t.NextTime.Sub(t.ChangeTime)),
	)
	return updated, nil
}

// Enable makes the card eligible for review. It returns nil when the card does not exist.
func (s *CardService) Enable(ctx context.Context, id string) (*domain.Card, error) {
	return s.setDisabled(ctx, id, false)
}

// Disable excludes the card from review. It returns nil when the card does not exist.
func (s *CardService) Disable(ctx context.Context, id string) (*domain.Card, error) {
	return s.setDisabled(ctx, id, true)
}

func (s *CardService) setDisabled(ctx context.Context, id string, disabled bool) (*domain.Card, error) {
	card, err := s.cards.Update(ctx, domain.CardUpdate{ID: id, Disabled: domain.Some(disabled)})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("set disabled: %w", err)
	}
	return card, nil
}

// WriteAutoSave replaces the pending draft.
func (s *CardService) WriteAutoSave(ctx context.Context, draft domain.Draft) error {
	if len(draft.Prompt) > MaxContentLength || len(draft.Solution) > MaxContentLength {
		return fmt.Errorf("%w: draft must be at most %d bytes per field", domain.ErrInvalidInput, MaxContentLength)
	}
	if err := s.drafts.Write(ctx, draft); err != nil {
		return fmt.Errorf("write autosave: %w", err)
	}
	return nil
}

// ReadAutoSave returns the pending draft or nil.
func (s *CardService) ReadAutoSave(ctx context.Context) (*domain.Draft, error) {
	draft, err := s.drafts.Read(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read autosave: %w", err)
	}
	return draft, nil
}

// DeleteAutoSave discards the pending draft. Deleting a missing draft is not an error.
func (s *CardService) DeleteAutoSave(ctx context.Context) error {
	if err := s.drafts.Delete(ctx); err != nil {
		return fmt.Errorf("delete autosave: %w", err)
	}
	return nil
}

// clearDraft runs after a card write. Its failure must not mask the write result.
func (s *CardService) clearDraft(ctx context.Context) {
	if err := s.drafts.Delete(ctx); err != nil {
		s.log.WarnContext(ctx, "clear autosave", slog.Any("error", err))
	}
}
