package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/msomdec/recall/internal/domain"
)

// CredentialsRepository implements domain.CredentialsRepository using SQLite.
type CredentialsRepository struct {
	db *sql.DB
}

// NewCredentialsRepository creates a new SQLite-backed CredentialsRepository.
func NewCredentialsRepository(db *DB) *CredentialsRepository {
	return &CredentialsRepository{db: db.SqlDB}
}

func (r *CredentialsRepository) PasswordHash(ctx context.Context, userName string) (string, error) {
	var hash string
	err := r.db.QueryRowContext(ctx,
		`SELECT password_hash FROM credentials WHERE user_name = ?`, userName,
	).Scan(&hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("query credentials: %w", err)
	}
	return hash, nil
}

// Save stores or replaces the hash for userName.
func (r *CredentialsRepository) Save(ctx context.Context, userName, passwordHash string) error {
	now := time.Now().UTC().UnixMilli()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO credentials (user_name, password_hash, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (user_name) DO UPDATE SET password_hash = excluded.password_hash, updated_at = excluded.updated_at`,
		userName, passwordHash, now,
	)
	if err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}
