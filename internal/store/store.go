// Package store persists content overrides in named slots.
package store

import (
	"context"
	"errors"

	"github.com/rcliao/folio/internal/model"
)

// ErrNotFound means the slot (or the requested version) holds no snapshot.
var ErrNotFound = errors.New("store: snapshot not found")

// SaveParams holds parameters for saving an override.
type SaveParams struct {
	Slot string
	Data []byte
}

// LoadParams holds parameters for loading an override.
type LoadParams struct {
	Slot    string
	Version int // 0 means latest
}

// HistoryParams holds parameters for listing saved versions.
type HistoryParams struct {
	Slot  string
	Limit int
}

// Store defines the override storage interface.
type Store interface {
	// Save writes data as the newest version of the slot. Either the whole
	// snapshot is stored or the slot is left as it was.
	Save(ctx context.Context, p SaveParams) (*model.Snapshot, error)

	// Load returns the latest (or requested) version of the slot.
	// Returns ErrNotFound when the slot is empty.
	Load(ctx context.Context, p LoadParams) (*model.Snapshot, error)

	// Delete removes every version of the slot and returns how many were removed.
	Delete(ctx context.Context, slot string) (int, error)

	// History lists saved versions newest first, without data.
	History(ctx context.Context, p HistoryParams) ([]model.Snapshot, error)

	// Restore saves an older version again as the newest one.
	Restore(ctx context.Context, slot string, version int) (*model.Snapshot, error)

	// Close closes the store.
	Close() error
}
