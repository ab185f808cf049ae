package domain

import "context"

// Draft is unsaved card content kept apart from the committed card.
// ID is empty for a card that has not been created yet.
type Draft struct {
	ID       string `json:"id,omitempty"`
	Prompt   string `json:"prompt"`
	Solution string `json:"solution"`
}

// AutoSaveRepository stores a single global draft slot.
type AutoSaveRepository interface {
	// Write replaces the current draft.
	Write(ctx context.Context, draft Draft) error
	// Read returns the current draft or ErrNotFound.
	Read(ctx context.Context) (*Draft, error)
	// Delete removes the draft. Deleting an empty slot is not an error.
	Delete(ctx context.Context) error
}
