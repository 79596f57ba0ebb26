package store

import (
	"context"
	"fmt"

	"github.com/rcliao/folio/internal/model"
)

// Restore saves a copy of an earlier version as the newest version of the slot.
func (s *SQLiteStore) Restore(ctx context.Context, slot string, version int) (*model.Snapshot, error) {
	if version <= 0 {
		return nil, fmt.Errorf("version must be positive, got %d", version)
	}
	old, err := s.Load(ctx, LoadParams{Slot: slot, Version: version})
	if err != nil {
		return nil, err
	}
	return s.Save(ctx, SaveParams{Slot: slot, Data: old.Data})
}

// Slots lists every slot holding at least one snapshot.
func (s *SQLiteStore) Slots(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT slot FROM snapshots ORDER BY slot`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []string
	for rows.Next() {
		var slot string
		if err := rows.Scan(&slot); err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}
