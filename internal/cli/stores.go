package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/msomdec/recall/internal/config"
	"github.com/msomdec/recall/internal/domain"
	"github.com/msomdec/recall/internal/handler"
	"github.com/msomdec/recall/internal/repository/jsonfile"
	"github.com/msomdec/recall/internal/repository/sqlite"
)

// credentialsStore is a credentials repository that can also be written to.
type credentialsStore interface {
	domain.CredentialsRepository
	Save(ctx context.Context, userName, passwordHash string) error
}

// stores bundles the repositories of the configured storage driver.
type stores struct {
	cards       domain.CardRepository
	credentials credentialsStore
	drafts      domain.AutoSaveRepository
	health      handler.Pinger

	closers []func() error
}

func (s *stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

// openStores opens the configured storage. With watch set, a file-backed
// credentials store reloads itself when the file changes.
func openStores(ctx context.Context, cfg *config.Config, log *slog.Logger, watch bool) (*stores, error) {
	s := &stores{}

	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		db, err := sqlite.New(cfg.Storage.Path, log)
		if err != nil {
			return nil, err
		}
		if err := prepare(ctx, db, s); err != nil {
			s.Close()
			return nil, err
		}
		s.cards, s.credentials, s.drafts = db.Cards(), db.Credentials(), db.AutoSave()

	case config.DriverJSONFile:
		cards, err := jsonfile.OpenCardRepository(filepath.Join(cfg.Storage.Dir, jsonfile.CardsFile))
		if err != nil {
			return nil, fmt.Errorf("%w (run \"recall init-store\" first)", err)
		}
		s.cards, s.health = cards, cards
		s.drafts = jsonfile.NewAutoSaveRepository(filepath.Join(cfg.Storage.Dir, jsonfile.AutoSaveFile))

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	credsPath := cfg.Auth.CredentialsFile
	if credsPath == "" && cfg.Storage.Driver == config.DriverJSONFile {
		credsPath = filepath.Join(cfg.Storage.Dir, jsonfile.CredentialsFile)
	}
	if credsPath != "" {
		creds, err := jsonfile.OpenCredentialsRepository(credsPath, log)
		if err != nil {
			s.Close()
			return nil, err
		}
		if watch {
			if err := creds.Watch(); err != nil {
				s.Close()
				return nil, err
			}
			s.closers = append(s.closers, creds.Close)
		}
		s.credentials = creds
	}

	return s, nil
}

// prepare migrates db and checks that it answers. db is closed with s.
func prepare(ctx context.Context, db domain.Database, s *stores) error {
	s.closers = append(s.closers, db.Close)
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	s.health = db
	return nil
}

// initJSONStore creates an empty card file in dir. An existing file is only
// replaced when force is set.
func initJSONStore(dir string, force bool) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	path := filepath.Join(dir, jsonfile.CardsFile)
	if _, err := os.Stat(path); err == nil && !force {
		return "", fmt.Errorf("%s already exists (use --force to replace it)", path)
	}
	if err := jsonfile.CreateEmptyCardFile(path); err != nil {
		return "", err
	}
	return path, nil
}
