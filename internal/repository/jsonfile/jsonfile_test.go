package jsonfile_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msomdec/recall/internal/domain"
	"github.com/msomdec/recall/internal/repository/jsonfile"
	"github.com/msomdec/recall/internal/repository/repotest"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCardRepository(t *testing.T) {
	repotest.RunCards(t, func(t *testing.T) repotest.CardOpener {
		path := filepath.Join(t.TempDir(), jsonfile.CardsFile)
		require.NoError(t, jsonfile.CreateEmptyCardFile(path))
		return func(t *testing.T) domain.CardRepository {
			repo, err := jsonfile.OpenCardRepository(path)
			require.NoError(t, err)
			return repo
		}
	})
}

func TestAutoSaveRepository(t *testing.T) {
	repotest.RunAutoSave(t, func(t *testing.T) func(*testing.T) domain.AutoSaveRepository {
		path := filepath.Join(t.TempDir(), jsonfile.AutoSaveFile)
		return func(*testing.T) domain.AutoSaveRepository {
			return jsonfile.NewAutoSaveRepository(path)
		}
	})
}

func TestOpenCardRepository_MissingFile(t *testing.T) {
	_, err := jsonfile.OpenCardRepository(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCardFileFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), jsonfile.CardsFile)
	require.NoError(t, jsonfile.CreateEmptyCardFile(path))
	repo, err := jsonfile.OpenCardRepository(path)
	require.NoError(t, err)

	at := time.Date(2018, 1, 1, 18, 25, 24, 7_000_000, time.UTC)
	require.NoError(t, repo.Create(context.Background(), &domain.Card{
		ID: "a", Prompt: "p", Solution: "s", State: domain.StateOk,
		ChangeTime: at, NextTime: at.Add(time.Hour), Disabled: true,
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	want := `[
    {
        "id": "a",
        "prompt": "p",
        "solution": "s",
        "state": "Ok",
        "changeTime": "2018-01-01T18:25:24.007Z",
        "nextTime": "2018-01-01T19:25:24.007Z",
        "disabled": true
    }
]`
	assert.Equal(t, want, string(data))
}

func TestOpenCardRepository_RejectsBadTimestamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), jsonfile.CardsFile)
	content := `[{"id":"a","prompt":"p","solution":"s","state":"New",` +
		`"changeTime":"2018-01-01T18:25:24Z","nextTime":"2018-01-01T18:25:24.000Z","disabled":false}]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := jsonfile.OpenCardRepository(path)
	assert.Error(t, err)
}

func TestOpenCardRepository_RejectsUnknownState(t *testing.T) {
	path := filepath.Join(t.TempDir(), jsonfile.CardsFile)
	content := `[{"id":"a","prompt":"p","solution":"s","state":"Maybe",` +
		`"changeTime":"2018-01-01T18:25:24.000Z","nextTime":"2018-01-01T18:25:24.000Z","disabled":false}]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := jsonfile.OpenCardRepository(path)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCardRepository_FailedWriteKeepsState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, jsonfile.CardsFile)
	require.NoError(t, jsonfile.CreateEmptyCardFile(path))
	repo, err := jsonfile.OpenCardRepository(path)
	require.NoError(t, err)

	// Removing the directory makes every write fail.
	require.NoError(t, os.RemoveAll(dir))

	err = repo.Create(context.Background(), &domain.Card{ID: "a", State: domain.StateNew})
	require.Error(t, err)

	_, err = repo.Get(context.Background(), "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAutoSaveRepository_FileFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), jsonfile.AutoSaveFile)
	repo := jsonfile.NewAutoSaveRepository(path)
	require.NoError(t, repo.Write(context.Background(), domain.Draft{Prompt: "p", Solution: "s"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"prompt":"p","solution":"s"}`, string(data))
}

func TestCredentialsRepository(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), jsonfile.CredentialsFile)

	repo, err := jsonfile.OpenCredentialsRepository(path, discardLogger())
	require.NoError(t, err)

	_, err = repo.PasswordHash(ctx, "joe")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, repo.Save(ctx, "joe", "hash1"))

	reopened, err := jsonfile.OpenCredentialsRepository(path, discardLogger())
	require.NoError(t, err)
	hash, err := reopened.PasswordHash(ctx, "joe")
	require.NoError(t, err)
	assert.Equal(t, "hash1", hash)
}

func TestCredentialsRepository_Watch(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), jsonfile.CredentialsFile)
	require.NoError(t, os.WriteFile(path, []byte(`{"joe":"old"}`), 0o600))

	repo, err := jsonfile.OpenCredentialsRepository(path, discardLogger())
	require.NoError(t, err)
	require.NoError(t, repo.Watch())
	t.Cleanup(func() { _ = repo.Close() })

	// Another process adds a user.
	writer, err := jsonfile.OpenCredentialsRepository(path, discardLogger())
	require.NoError(t, err)
	require.NoError(t, writer.Save(ctx, "ann", "new"))

	require.Eventually(t, func() bool {
		hash, err := repo.PasswordHash(ctx, "ann")
		return err == nil && hash == "new"
	}, 2*time.Second, 20*time.Millisecond)
}

func TestCredentialsRepository_CloseWithoutWatch(t *testing.T) {
	repo, err := jsonfile.OpenCredentialsRepository(filepath.Join(t.TempDir(), "c.json"), discardLogger())
	require.NoError(t, err)
	assert.NoError(t, repo.Close())
}
