package domain

import "context"

// CredentialsRepository looks up password hashes by user name.
type CredentialsRepository interface {
	// PasswordHash returns the stored hash for userName or ErrNotFound.
	PasswordHash(ctx context.Context, userName string) (string, error)
}
