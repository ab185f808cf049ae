package domain

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// ContainsFold reports whether substr occurs in s under Unicode case folding.
func ContainsFold(s, substr string) bool {
	return strings.Contains(fold(s), fold(substr))
}

func fold(s string) string {
	return folder.String(norm.NFC.String(s))
}

// MatchesSubstring reports whether the card's prompt or solution contains text.
func (c Card) MatchesSubstring(text string) bool {
	return ContainsFold(c.Prompt, text) || ContainsFold(c.Solution, text)
}

// IsDue reports whether the card is enabled and due at asOf.
func (c Card) IsDue(asOf time.Time) bool {
	return !c.Disabled && !c.NextTime.After(asOf)
}

// NextDue picks the due card with the smallest NextTime, breaking ties by ID.
// It returns nil when no card is due.
func NextDue(cards []Card, asOf time.Time) *Card {
	var best *Card
	for i := range cards {
		c := &cards[i]
		if !c.IsDue(asOf) {
			continue
		}
		if best == nil || c.NextTime.Before(best.NextTime) ||
			(c.NextTime.Equal(best.NextTime) && c.ID < best.ID) {
			best = c
		}
	}
	if best == nil {
		return nil
	}
	found := *best
	return &found
}

// SortByID orders cards by ID so listings are stable across adapters.
func SortByID(cards []Card) {
	sort.Slice(cards, func(i, j int) bool { return cards[i].ID < cards[j].ID })
}
