package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/folio/internal/model"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	path    string
	entropy *rand.Rand
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		path:    dbPath,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id          TEXT PRIMARY KEY,
		slot        TEXT NOT NULL,
		version     INTEGER NOT NULL,
		data        BLOB NOT NULL,
		created_at  TEXT NOT NULL,
		UNIQUE (slot, version)
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_slot ON snapshots(slot, version DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Save(ctx context.Context, p SaveParams) (*model.Snapshot, error) {
	if p.Slot == "" {
		return nil, fmt.Errorf("slot is required")
	}
	if len(p.Data) == 0 {
		return nil, fmt.Errorf("refusing to save an empty snapshot")
	}

	now := time.Now().UTC()
	id := s.newID()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var prevVersion sql.NullInt64
	err = tx.QueryRowContext(ctx,
		`SELECT MAX(version) FROM snapshots WHERE slot = ?`, p.Slot).Scan(&prevVersion)
	if err != nil {
		return nil, fmt.Errorf("read latest version: %w", err)
	}
	version := int(prevVersion.Int64) + 1

	_, err = tx.ExecContext(ctx,
		`INSERT INTO snapshots (id, slot, version, data, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, p.Slot, version, p.Data, now.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("insert snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &model.Snapshot{
		ID:        id,
		Slot:      p.Slot,
		Version:   version,
		Size:      len(p.Data),
		CreatedAt: now,
		Data:      p.Data,
	}, nil
}

func (s *SQLiteStore) Load(ctx context.Context, p LoadParams) (*model.Snapshot, error) {
	var row *sql.Row
	if p.Version > 0 {
		row = s.db.QueryRowContext(ctx,
			`SELECT id, slot, version, data, created_at FROM snapshots
			 WHERE slot = ? AND version = ?`, p.Slot, p.Version)
	} else {
		row = s.db.QueryRowContext(ctx,
			`SELECT id, slot, version, data, created_at FROM snapshots
			 WHERE slot = ? ORDER BY version DESC LIMIT 1`, p.Slot)
	}

	snap, err := scanSnapshot(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		if p.Version > 0 {
			return nil, fmt.Errorf("%w: %s@%d", ErrNotFound, p.Slot, p.Version)
		}
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p.Slot)
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, slot string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE slot = ?`, slot)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *SQLiteStore) History(ctx context.Context, p HistoryParams) ([]model.Snapshot, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, slot, version, length(data), created_at FROM snapshots
		 WHERE slot = ? ORDER BY version DESC LIMIT ?`, p.Slot, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []model.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows, false)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanSnapshot reads id, slot, version, data-or-length, created_at.
func scanSnapshot(row scanner, withData bool) (model.Snapshot, error) {
	var snap model.Snapshot
	var createdAt string

	var err error
	if withData {
		err = row.Scan(&snap.ID, &snap.Slot, &snap.Version, &snap.Data, &createdAt)
		snap.Size = len(snap.Data)
	} else {
		err = row.Scan(&snap.ID, &snap.Slot, &snap.Version, &snap.Size, &createdAt)
	}
	if err != nil {
		return snap, err
	}

	snap.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return snap, nil
}
