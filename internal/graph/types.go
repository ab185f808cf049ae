package graph

import (
	"github.com/graph-gophers/graphql-go"

	"github.com/msomdec/recall/internal/domain"
	"github.com/msomdec/recall/internal/service"
)

type cardResolver struct {
	card domain.Card
}

// newCardResolver returns nil for a nil card so the field resolves to null.
func newCardResolver(card *domain.Card) *cardResolver {
	if card == nil {
		return nil
	}
	return &cardResolver{card: *card}
}

func (c *cardResolver) ID() graphql.ID     { return graphql.ID(c.card.ID) }
func (c *cardResolver) Prompt() string     { return c.card.Prompt }
func (c *cardResolver) Solution() string   { return c.card.Solution }
func (c *cardResolver) State() string      { return c.card.State.String() }
func (c *cardResolver) ChangeTime() string { return domain.FormatTime(c.card.ChangeTime) }
func (c *cardResolver) NextTime() string   { return domain.FormatTime(c.card.NextTime) }
func (c *cardResolver) Disabled() bool     { return c.card.Disabled }

type autoSaveResolver struct {
	draft domain.Draft
}

func newAutoSaveResolver(draft *domain.Draft) *autoSaveResolver {
	if draft == nil {
		return nil
	}
	return &autoSaveResolver{draft: *draft}
}

func (a *autoSaveResolver) ID() *graphql.ID {
	if a.draft.ID == "" {
		return nil
	}
	id := graphql.ID(a.draft.ID)
	return &id
}

func (a *autoSaveResolver) Prompt() string   { return a.draft.Prompt }
func (a *autoSaveResolver) Solution() string { return a.draft.Solution }

type sessionResolver struct {
	result *service.LoginResult
}

func (s *sessionResolver) UserName() string  { return s.result.UserName }
func (s *sessionResolver) ExpiresAt() string { return domain.FormatTime(s.result.ExpiresAt) }
func (s *sessionResolver) AutoSave() *autoSaveResolver {
	return newAutoSaveResolver(s.result.Draft)
}
