package store

import (
	"context"
	"fmt"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath         string      `json:"db_path"`
	DBSizeBytes    int64       `json:"db_size_bytes"`
	TotalSnapshots int         `json:"total_snapshots"`
	Slots          []SlotStats `json:"slots"`
}

// SlotStats holds per-slot counts.
type SlotStats struct {
	Slot          string `json:"slot"`
	Versions      int    `json:"versions"`
	LatestVersion int    `json:"latest_version"`
	LatestBytes   int    `json:"latest_bytes"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{DBPath: s.path}

	// DB file size
	if info, err := os.Stat(s.path); err == nil {
		st.DBSizeBytes = info.Size()
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots`).Scan(&st.TotalSnapshots); err != nil {
		return st, fmt.Errorf("count snapshots: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.slot, c.cnt, s.version, length(s.data)
		FROM snapshots s
		INNER JOIN (
			SELECT slot, COUNT(*) AS cnt, MAX(version) AS max_ver
			FROM snapshots GROUP BY slot
		) c ON s.slot = c.slot AND s.version = c.max_ver
		ORDER BY s.slot`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var sl SlotStats
		if err := rows.Scan(&sl.Slot, &sl.Versions, &sl.LatestVersion, &sl.LatestBytes); err != nil {
			return st, err
		}
		st.Slots = append(st.Slots, sl)
	}

	return st, rows.Err()
}
