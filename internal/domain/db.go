package domain

import "context"

// Database defines lifecycle operations for a store that owns a schema.
// The JSON file store has none and does not implement it.
type Database interface {
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
