// Package schedule computes when a card is due next.
//
// The interval is not looked up in a table. It is derived from the wall-clock
// time that passed since the card last changed state: a successful review
// doubles it, a failed one halves it. A card therefore adapts its own rhythm
// without storing a review counter.
package schedule

import (
	"fmt"
	"time"

	"github.com/msomdec/recall/internal/domain"
)

const (
	// NewCardDelay is how long a freshly created card waits before it is due.
	NewCardDelay = 10 * time.Minute
	// MajorEditDelay is how long a card waits after its content was rewritten.
	MajorEditDelay = 30 * time.Minute
)

// Transition is the scheduling outcome written back to a card.
type Transition struct {
	State      domain.CardState
	ChangeTime time.Time
	NextTime   time.Time
}

// Update returns the transition as a partial card update.
func (t Transition) Update(id string) domain.CardUpdate {
	return domain.CardUpdate{
		ID:         id,
		State:      domain.Some(t.State),
		ChangeTime: domain.Some(t.ChangeTime),
		NextTime:   domain.Some(t.NextTime),
	}
}

// Created is the schedule of a card created at now.
func Created(now time.Time) Transition {
	return Transition{State: domain.StateNew, ChangeTime: now, NextTime: now.Add(NewCardDelay)}
}

// Reset is the schedule of a card whose content was rewritten at now.
func Reset(now time.Time) Transition {
	return Transition{State: domain.StateNew, ChangeTime: now, NextTime: now.Add(MajorEditDelay)}
}

// Elapsed returns the whole seconds between changeTime and now, truncated toward zero.
func Elapsed(changeTime, now time.Time) int64 {
	return int64(now.Sub(changeTime) / time.Second)
}

// Wait returns the number of seconds to wait after a review with the given
// outcome, given the seconds elapsed since the previous transition.
// The result is never negative.
func Wait(outcome domain.CardState, elapsed int64) (int64, error) {
	if elapsed < 0 {
		elapsed = 0
	}
	switch outcome {
	case domain.StateOk:
		return elapsed * 2, nil
	case domain.StateFailed:
		// Elapsed is non-negative here, so integer division is floor.
		return elapsed / 2, nil
	default:
		return 0, fmt.Errorf("%w: %v is not a review outcome", domain.ErrInvalidInput, outcome)
	}
}

// Review computes the transition of a card last changed at changeTime that
// was reviewed with the given outcome at now.
func Review(outcome domain.CardState, changeTime, now time.Time) (Transition, error) {
	wait, err := Wait(outcome, Elapsed(changeTime, now))
	if err != nil {
		return Transition{}, err
	}
	return Transition{
		State:      outcome,
		ChangeTime: now,
		NextTime:   now.Add(time.Duration(wait) * time.Second),
	}, nil
}
