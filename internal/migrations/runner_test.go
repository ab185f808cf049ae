package migrations_test

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/msomdec/recall/internal/migrations"
)

func openMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// Each connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunMigrations(t *testing.T) {
	db := openMemoryDB(t)
	ctx := context.Background()

	applied, err := migrations.Run(ctx, db, discard())
	if err != nil {
		t.Fatalf("first migration run: %v", err)
	}
	if len(applied) != 3 {
		t.Fatalf("expected 3 migrations applied, got %v", applied)
	}

	_, err = db.ExecContext(ctx,
		"INSERT INTO cards (id, prompt, solution, state, change_time, next_time, disabled) VALUES (?, ?, ?, ?, ?, ?, ?)",
		"a", "p", "s", 1, 0, 0, false,
	)
	if err != nil {
		t.Fatalf("insert into cards: %v", err)
	}

	_, err = db.ExecContext(ctx,
		"INSERT INTO cards (id, prompt, solution, state, change_time, next_time, disabled) VALUES (?, ?, ?, ?, ?, ?, ?)",
		"b", "p", "s", 7, 0, 0, false,
	)
	if err == nil {
		t.Fatal("expected state check constraint to reject 7")
	}
}

func TestRunMigrationsIdempotent(t *testing.T) {
	db := openMemoryDB(t)
	ctx := context.Background()

	if _, err := migrations.Run(ctx, db, discard()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	applied, err := migrations.Run(ctx, db, discard())
	if err != nil {
		t.Fatalf("second run (idempotent): %v", err)
	}
	if len(applied) != 0 {
		t.Fatalf("expected nothing applied on second run, got %v", applied)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("count schema_migrations: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 migration records, got %d", count)
	}
}

func TestAutoSaveHoldsOneRow(t *testing.T) {
	db := openMemoryDB(t)
	ctx := context.Background()
	if _, err := migrations.Run(ctx, db, discard()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if _, err := db.ExecContext(ctx, "INSERT INTO autosave (slot, prompt, solution) VALUES (2, 'p', 's')"); err == nil {
		t.Fatal("expected slot check constraint to reject a second slot")
	}
}
