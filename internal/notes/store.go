package notes

import (
	"context"
	"errors"
)

// Snapshot is one delivery of a live subscription: either the complete,
// store-ordered note set for the user or an error.
type Snapshot struct {
	Notes []Note
	Err   error
}

// Store is the persistence backend.
//
// Subscribe delivers snapshots until ctx is cancelled, then closes the
// channel. An error snapshot does not end the subscription unless the
// channel is closed after it. Create returns the id the store assigned.
// Update must never change the note's UserID.
type Store interface {
	Subscribe(ctx context.Context, userID string) (<-chan Snapshot, error)
	Create(ctx context.Context, f Fields) (string, error)
	Update(ctx context.Context, id string, f Fields) error
	Delete(ctx context.Context, id string) error
}

// ErrNotFound is returned by Reader.Get for an unknown id.
var ErrNotFound = errors.New("note not found")

// Reader is the one-shot read side used outside the live editor (CLI, MCP).
type Reader interface {
	List(ctx context.Context, userID string) ([]Note, error)
	Get(ctx context.Context, id string) (Note, error)
}
