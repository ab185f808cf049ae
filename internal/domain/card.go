package domain

import (
	"context"
	"encoding"
	"encoding/json"
	"fmt"
	"time"
)

// CardState is the last known review outcome of a card.
type CardState int

const (
	StateNew CardState = iota + 1
	StateOk
	StateFailed
)

var (
	stateNames  = [...]string{StateNew: "New", StateOk: "Ok", StateFailed: "Failed"}
	stateByName = map[string]CardState{
		"New":    StateNew,
		"Ok":     StateOk,
		"Failed": StateFailed,
	}
)

var (
	_ fmt.Stringer             = CardState(0)
	_ json.Marshaler           = CardState(0)
	_ json.Unmarshaler         = (*CardState)(nil)
	_ encoding.TextMarshaler   = CardState(0)
	_ encoding.TextUnmarshaler = (*CardState)(nil)
)

// Valid reports whether s is one of the defined states.
func (s CardState) Valid() bool {
	return s >= StateNew && s <= StateFailed
}

func (s CardState) String() string {
	if s.Valid() {
		return stateNames[s]
	}
	return fmt.Sprintf("CardState(%d)", int(s))
}

// ParseCardState returns the state named by s ("New", "Ok", "Failed").
func ParseCardState(s string) (CardState, error) {
	v, ok := stateByName[s]
	if !ok {
		return 0, fmt.Errorf("%w: unknown card state %q", ErrInvalidInput, s)
	}
	return v, nil
}

func (s CardState) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid card state: %d", int(s))
	}
	return []byte(stateNames[s]), nil
}

func (s *CardState) UnmarshalText(text []byte) error {
	v, err := ParseCardState(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (s CardState) MarshalJSON() ([]byte, error) {
	text, err := s.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

func (s *CardState) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("card state must be a string: %w", err)
	}
	return s.UnmarshalText([]byte(name))
}

// TimeLayout renders timestamps as ISO-8601 UTC with milliseconds,
// the form used on the wire and in JSON files.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Card is a spaced-repetition item.
type Card struct {
	ID         string
	Prompt     string
	Solution   string
	State      CardState
	ChangeTime time.Time // last state transition
	NextTime   time.Time // when the card is due again
	Disabled   bool      // disabled cards are never due
}

// CardUpdate lists the fields to overwrite on the card with the given ID.
// Unset fields are left unchanged.
type CardUpdate struct {
	ID         string
	Prompt     Optional[string]
	Solution   Optional[string]
	State      Optional[CardState]
	ChangeTime Optional[time.Time]
	NextTime   Optional[time.Time]
	Disabled   Optional[bool]
}

// Apply overwrites the set fields of u on c.
func (u CardUpdate) Apply(c *Card) {
	if v, ok := u.Prompt.Get(); ok {
		c.Prompt = v
	}
	if v, ok := u.Solution.Get(); ok {
		c.Solution = v
	}
	if v, ok := u.State.Get(); ok {
		c.State = v
	}
	if v, ok := u.ChangeTime.Get(); ok {
		c.ChangeTime = v
	}
	if v, ok := u.NextTime.Get(); ok {
		c.NextTime = v
	}
	if v, ok := u.Disabled.Get(); ok {
		c.Disabled = v
	}
}

// IsEmpty reports whether the update changes nothing.
func (u CardUpdate) IsEmpty() bool {
	return !u.Prompt.IsSet() && !u.Solution.IsSet() && !u.State.IsSet() &&
		!u.ChangeTime.IsSet() && !u.NextTime.IsSet() && !u.Disabled.IsSet()
}

// CardRepository persists cards. Every method returns copies; callers may
// mutate results freely. Each mutating call is atomic and durable when it returns.
type CardRepository interface {
	// Create inserts a new card. Returns ErrDuplicateID if the ID is taken.
	Create(ctx context.Context, card *Card) error
	// Get returns the card with the given ID or ErrNotFound.
	Get(ctx context.Context, id string) (*Card, error)
	// Update applies the set fields and returns the updated card, or ErrNotFound.
	Update(ctx context.Context, update CardUpdate) (*Card, error)
	// Delete removes the card and reports whether it existed.
	Delete(ctx context.Context, id string) (bool, error)
	// FindBySubstring returns cards whose prompt or solution contains text, ignoring case.
	FindBySubstring(ctx context.Context, text string) ([]Card, error)
	// FindNextDue returns the enabled card with the smallest NextTime not after asOf,
	// or ErrNotFound when nothing is due.
	FindNextDue(ctx context.Context, asOf time.Time) (*Card, error)
}
