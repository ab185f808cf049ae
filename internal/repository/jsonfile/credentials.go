package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/msomdec/recall/internal/domain"
)

// CredentialsRepository reads user name → password hash pairs from a JSON
// object file. Watch keeps it in sync with edits made outside the process.
type CredentialsRepository struct {
	path string
	log  *slog.Logger

	mu     sync.RWMutex
	hashes map[string]string

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	done    chan struct{}
}

// OpenCredentialsRepository loads the credentials file at path.
// A missing file yields an empty repository.
func OpenCredentialsRepository(path string, log *slog.Logger) (*CredentialsRepository, error) {
	r := &CredentialsRepository{
		path: path,
		log:  log.With(slog.String("component", "credentials_file")),
	}
	if err := r.reload(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *CredentialsRepository) reload() error {
	hashes := map[string]string{}
	if err := readJSON(r.path, &hashes); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load credentials: %w", err)
	}

	r.mu.Lock()
	r.hashes = hashes
	r.mu.Unlock()
	return nil
}

func (r *CredentialsRepository) PasswordHash(_ context.Context, userName string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	hash, ok := r.hashes[userName]
	if !ok {
		return "", domain.ErrNotFound
	}
	return hash, nil
}

// Save stores or replaces the hash for userName and rewrites the file.
func (r *CredentialsRepository) Save(_ context.Context, userName, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make(map[string]string, len(r.hashes)+1)
	for k, v := range r.hashes {
		next[k] = v
	}
	next[userName] = passwordHash
	if err := writeJSON(r.path, next); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	r.hashes = next
	return nil
}

// Watch starts reloading the file whenever it changes. The directory is
// watched rather than the file because writers replace it by rename.
func (r *CredentialsRepository) Watch() error {
	if r.watcher != nil {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(r.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(r.path), err)
	}

	r.watcher = watcher
	r.stopCh = make(chan struct{})
	r.done = make(chan struct{})
	go r.run()
	return nil
}

func (r *CredentialsRepository) run() {
	defer close(r.done)
	target := filepath.Base(r.path)

	for {
		select {
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			base := filepath.Base(event.Name)
			if base != target || strings.HasPrefix(base, ".") {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if err := r.reload(); err != nil {
				// Keep serving the previous credentials until the file parses again.
				r.log.Warn("reload credentials", slog.Any("error", err))
				continue
			}
			r.log.Info("credentials reloaded", slog.String("path", r.path))

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.log.Warn("credentials watcher error", slog.Any("error", err))

		case <-r.stopCh:
			return
		}
	}
}

// Close stops watching. It is safe to call when Watch was never started.
func (r *CredentialsRepository) Close() error {
	if r.watcher == nil {
		return nil
	}
	close(r.stopCh)
	<-r.done
	err := r.watcher.Close()
	r.watcher = nil
	return err
}
