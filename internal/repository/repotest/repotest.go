// Package repotest is a contract suite shared by every repository adapter.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msomdec/recall/internal/domain"
)

// CardOpener opens a connection to one backing store. Calling it again must
// return a fresh connection that observes everything committed before.
type CardOpener func(t *testing.T) domain.CardRepository

// CardFactory creates an empty backing store and returns its opener.
type CardFactory func(t *testing.T) CardOpener

// AutoSaveFactory creates an empty draft slot and returns an opener for it.
type AutoSaveFactory func(t *testing.T) func(t *testing.T) domain.AutoSaveRepository

func at(ms int) time.Time {
	return time.Date(2018, 1, 1, 18, 25, 24, 0, time.UTC).Add(time.Duration(ms) * time.Millisecond)
}

func fixtures() (card0, card1, card2, card1Changed domain.Card) {
	card0 = domain.Card{
		ID: "0", Prompt: "promptA0", Solution: "solutionA0", State: domain.StateNew,
		ChangeTime: at(0), NextTime: at(0).AddDate(0, 1, 0), Disabled: false,
	}
	card1 = domain.Card{
		ID: "1", Prompt: "promptA1", Solution: "solutionB1", State: domain.StateOk,
		ChangeTime: at(1), NextTime: at(1).AddDate(0, 1, 0), Disabled: true,
	}
	card2 = domain.Card{
		ID: "2", Prompt: "promptB2", Solution: "solutionB2", State: domain.StateFailed,
		ChangeTime: at(2), NextTime: at(2).AddDate(0, 1, 0), Disabled: true,
	}
	card1Changed = domain.Card{
		ID: "1", Prompt: card1.Prompt + "_changed", Solution: card1.Solution + "_changed", State: domain.StateFailed,
		ChangeTime: at(3), NextTime: at(3).AddDate(0, 1, 0), Disabled: false,
	}
	return
}

func fullUpdate(c domain.Card) domain.CardUpdate {
	return domain.CardUpdate{
		ID:         c.ID,
		Prompt:     domain.Some(c.Prompt),
		Solution:   domain.Some(c.Solution),
		State:      domain.Some(c.State),
		ChangeTime: domain.Some(c.ChangeTime),
		NextTime:   domain.Some(c.NextTime),
		Disabled:   domain.Some(c.Disabled),
	}
}

// assertCard compares cards field by field so time values are compared by instant.
func assertCard(t *testing.T, want domain.Card, got *domain.Card) {
	t.Helper()
	require.NotNil(t, got)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Prompt, got.Prompt)
	assert.Equal(t, want.Solution, got.Solution)
	assert.Equal(t, want.State, got.State)
	assert.True(t, want.ChangeTime.Equal(got.ChangeTime), "change time: want %v, got %v", want.ChangeTime, got.ChangeTime)
	assert.True(t, want.NextTime.Equal(got.NextTime), "next time: want %v, got %v", want.NextTime, got.NextTime)
	assert.Equal(t, want.Disabled, got.Disabled)
}

func seed(t *testing.T, repo domain.CardRepository, cards ...domain.Card) {
	t.Helper()
	for _, c := range cards {
		c := c
		require.NoError(t, repo.Create(context.Background(), &c))
	}
}

func byID(cards []domain.Card) map[string]*domain.Card {
	m := make(map[string]*domain.Card, len(cards))
	for i := range cards {
		m[cards[i].ID] = &cards[i]
	}
	return m
}

// RunCards exercises the domain.CardRepository contract.
func RunCards(t *testing.T, factory CardFactory) {
	ctx := context.Background()
	card0, card1, card2, card1Changed := fixtures()

	t.Run("Create", func(t *testing.T) {
		t.Run("retrievable", func(t *testing.T) {
			repo := factory(t)(t)
			seed(t, repo, card0, card1)

			got0, err := repo.Get(ctx, "0")
			require.NoError(t, err)
			assertCard(t, card0, got0)
			got1, err := repo.Get(ctx, "1")
			require.NoError(t, err)
			assertCard(t, card1, got1)
		})

		t.Run("retrievable through new connection", func(t *testing.T) {
			open := factory(t)
			seed(t, open(t), card0, card1)

			fresh := open(t)
			got0, err := fresh.Get(ctx, "0")
			require.NoError(t, err)
			assertCard(t, card0, got0)
			got1, err := fresh.Get(ctx, "1")
			require.NoError(t, err)
			assertCard(t, card1, got1)
		})

		t.Run("duplicate id rejected", func(t *testing.T) {
			repo := factory(t)(t)
			seed(t, repo, card0)

			dup := card1
			dup.ID = card0.ID
			err := repo.Create(ctx, &dup)
			require.ErrorIs(t, err, domain.ErrDuplicateID)

			got, err := repo.Get(ctx, card0.ID)
			require.NoError(t, err)
			assertCard(t, card0, got)
		})

		t.Run("caller mutation after create is not stored", func(t *testing.T) {
			repo := factory(t)(t)
			c := card0
			require.NoError(t, repo.Create(ctx, &c))
			c.Prompt = "mutated"

			got, err := repo.Get(ctx, card0.ID)
			require.NoError(t, err)
			assert.Equal(t, card0.Prompt, got.Prompt)
		})
	})

	t.Run("Get", func(t *testing.T) {
		repo := factory(t)(t)
		seed(t, repo, card0, card1, card2)

		got, err := repo.Get(ctx, card1.ID)
		require.NoError(t, err)
		assertCard(t, card1, got)

		_, err = repo.Get(ctx, "999")
		require.ErrorIs(t, err, domain.ErrNotFound)

		again, err := repo.Get(ctx, card1.ID)
		require.NoError(t, err)
		assert.NotSame(t, got, again)
		got.Prompt = "mutated"
		again, err = repo.Get(ctx, card1.ID)
		require.NoError(t, err)
		assert.Equal(t, card1.Prompt, again.Prompt)
	})

	t.Run("Update", func(t *testing.T) {
		t.Run("changes the repository persistently", func(t *testing.T) {
			open := factory(t)
			repo := open(t)
			seed(t, repo, card0, card1, card2)

			result, err := repo.Update(ctx, fullUpdate(card1Changed))
			require.NoError(t, err)
			assertCard(t, card1Changed, result)

			got, err := repo.Get(ctx, card1.ID)
			require.NoError(t, err)
			assertCard(t, card1Changed, got)

			got, err = open(t).Get(ctx, card1.ID)
			require.NoError(t, err)
			assertCard(t, card1Changed, got)

			untouched, err := repo.Get(ctx, card2.ID)
			require.NoError(t, err)
			assertCard(t, card2, untouched)
		})

		t.Run("unknown id", func(t *testing.T) {
			repo := factory(t)(t)
			seed(t, repo, card0)

			u := fullUpdate(card1Changed)
			u.ID = "999"
			_, err := repo.Update(ctx, u)
			require.ErrorIs(t, err, domain.ErrNotFound)

			_, err = repo.Get(ctx, "999")
			require.ErrorIs(t, err, domain.ErrNotFound)
		})

		t.Run("unset fields are a no-op", func(t *testing.T) {
			repo := factory(t)(t)
			seed(t, repo, card1)

			result, err := repo.Update(ctx, domain.CardUpdate{ID: card1.ID})
			require.NoError(t, err)
			assertCard(t, card1, result)
		})

		t.Run("zero values are written", func(t *testing.T) {
			repo := factory(t)(t)
			seed(t, repo, card1)

			result, err := repo.Update(ctx, domain.CardUpdate{
				ID:       card1.ID,
				Solution: domain.Some(""),
				Disabled: domain.Some(false),
			})
			require.NoError(t, err)
			want := card1
			want.Solution = ""
			want.Disabled = false
			assertCard(t, want, result)
		})

		t.Run("returns copies", func(t *testing.T) {
			repo := factory(t)(t)
			seed(t, repo, card1)

			r1, err := repo.Update(ctx, fullUpdate(card1Changed))
			require.NoError(t, err)
			r2, err := repo.Update(ctx, fullUpdate(card1Changed))
			require.NoError(t, err)
			assert.NotSame(t, r1, r2)
		})
	})

	t.Run("Delete", func(t *testing.T) {
		open := factory(t)
		repo := open(t)
		seed(t, repo, card0)

		existed, err := repo.Delete(ctx, card0.ID)
		require.NoError(t, err)
		assert.True(t, existed)

		_, err = repo.Get(ctx, card0.ID)
		require.ErrorIs(t, err, domain.ErrNotFound)
		_, err = open(t).Get(ctx, card0.ID)
		require.ErrorIs(t, err, domain.ErrNotFound)

		existed, err = repo.Delete(ctx, card1.ID)
		require.NoError(t, err)
		assert.False(t, existed)
	})

	t.Run("FindBySubstring", func(t *testing.T) {
		repo := factory(t)(t)
		seed(t, repo, card0, card1, card2)

		byPrompt, err := repo.FindBySubstring(ctx, "rOmptA")
		require.NoError(t, err)
		found := byID(byPrompt)
		require.Len(t, found, 2)
		assertCard(t, card0, found["0"])
		assertCard(t, card1, found["1"])

		bySolution, err := repo.FindBySubstring(ctx, "tionB")
		require.NoError(t, err)
		found = byID(bySolution)
		require.Len(t, found, 2)
		assertCard(t, card1, found["1"])
		assertCard(t, card2, found["2"])

		none, err := repo.FindBySubstring(ctx, "nothing like this")
		require.NoError(t, err)
		assert.Empty(t, none)

		r1, err := repo.FindBySubstring(ctx, "promptB")
		require.NoError(t, err)
		require.Len(t, r1, 1)
		r1[0].Prompt = "mutated"
		r2, err := repo.FindBySubstring(ctx, "promptB")
		require.NoError(t, err)
		require.Len(t, r2, 1)
		assert.Equal(t, card2.Prompt, r2[0].Prompt)
	})

	t.Run("FindNextDue", func(t *testing.T) {
		next := card0
		next.NextTime = at(0)

		disabledEarlier := card0
		disabledEarlier.ID = "9"
		disabledEarlier.NextTime = at(-1)
		disabledEarlier.Disabled = true

		later := func(id string, ms int) domain.Card {
			c := card0
			c.ID = id
			c.NextTime = at(ms)
			return c
		}

		repo := factory(t)(t)
		seed(t, repo, disabledEarlier, later("1", 1), next, later("2", 2), later("3", 3))

		got, err := repo.FindNextDue(ctx, at(2))
		require.NoError(t, err)
		assertCard(t, next, got)

		got, err = repo.FindNextDue(ctx, at(0))
		require.NoError(t, err)
		assertCard(t, next, got)

		_, err = repo.FindNextDue(ctx, at(-1))
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
}

// RunAutoSave exercises the domain.AutoSaveRepository contract.
func RunAutoSave(t *testing.T, factory AutoSaveFactory) {
	ctx := context.Background()

	t.Run("empty slot", func(t *testing.T) {
		repo := factory(t)(t)
		_, err := repo.Read(ctx)
		require.ErrorIs(t, err, domain.ErrNotFound)
		require.NoError(t, repo.Delete(ctx))
	})

	t.Run("write overwrites and persists", func(t *testing.T) {
		open := factory(t)
		repo := open(t)

		require.NoError(t, repo.Write(ctx, domain.Draft{ID: "1", Prompt: "p1", Solution: "s1"}))
		require.NoError(t, repo.Write(ctx, domain.Draft{Prompt: "p2", Solution: "s2"}))

		got, err := open(t).Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.Draft{Prompt: "p2", Solution: "s2"}, *got)
	})

	t.Run("delete clears", func(t *testing.T) {
		open := factory(t)
		repo := open(t)

		require.NoError(t, repo.Write(ctx, domain.Draft{ID: "1", Prompt: "p", Solution: "s"}))
		require.NoError(t, repo.Delete(ctx))
		require.NoError(t, repo.Delete(ctx))

		_, err := open(t).Read(ctx)
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
}
