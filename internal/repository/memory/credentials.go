package memory

import (
	"context"
	"sync"

	"github.com/msomdec/recall/internal/domain"
)

// CredentialsRepository implements domain.CredentialsRepository with a map.
type CredentialsRepository struct {
	mu     sync.RWMutex
	hashes map[string]string
}

// NewCredentialsRepository returns a repository seeded with user name → hash pairs.
func NewCredentialsRepository(hashes map[string]string) *CredentialsRepository {
	copied := make(map[string]string, len(hashes))
	for k, v := range hashes {
		copied[k] = v
	}
	return &CredentialsRepository{hashes: copied}
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

// Save stores or replaces the hash for userName.
func (r *CredentialsRepository) Save(_ context.Context, userName, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.hashes[userName] = passwordHash
	return nil
}
