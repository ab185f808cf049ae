package service_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/msomdec/recall/internal/domain"
)

type mockCards struct {
	mock.Mock
}

func (m *mockCards) Create(ctx context.Context, card *domain.Card) error {
	return m.Called(ctx, card).Error(0)
}

func (m *mockCards) Get(ctx context.Context, id string) (*domain.Card, error) {
	args := m.Called(ctx, id)
	card, _ := args.Get(0).(*domain.Card)
	return card, args.Error(1)
}

func (m *mockCards) Update(ctx context.Context, update domain.CardUpdate) (*domain.Card, error) {
	args := m.Called(ctx, update)
	card, _ := args.Get(0).(*domain.Card)
	return card, args.Error(1)
}

func (m *mockCards) Delete(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockCards) FindBySubstring(ctx context.Context, text string) ([]domain.Card, error) {
	args := m.Called(ctx, text)
	cards, _ := args.Get(0).([]domain.Card)
	return cards, args.Error(1)
}

func (m *mockCards) FindNextDue(ctx context.Context, asOf time.Time) (*domain.Card, error) {
	args := m.Called(ctx, asOf)
	card, _ := args.Get(0).(*domain.Card)
	return card, args.Error(1)
}

type mockDrafts struct {
	mock.Mock
}

func (m *mockDrafts) Write(ctx context.Context, draft domain.Draft) error {
	return m.Called(ctx, draft).Error(0)
}

func (m *mockDrafts) Read(ctx context.Context) (*domain.Draft, error) {
	args := m.Called(ctx)
	draft, _ := args.Get(0).(*domain.Draft)
	return draft, args.Error(1)
}

func (m *mockDrafts) Delete(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
