package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"opptrace/internal/enrichment"
	"opptrace/internal/logging"
)

const schemaVersion = 1

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("snapshot database has schema version %d, expected %d (delete the database to reset)", version, schemaVersion)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const schemaSQL = `
CREATE TABLE schema_version (
    version INTEGER NOT NULL
);

CREATE TABLE snapshots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    source_reference TEXT NOT NULL,
    captured_at TEXT NOT NULL,
    payload TEXT NOT NULL
);

CREATE INDEX idx_snapshots_captured_at ON snapshots(captured_at);
`
	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

func (s *Store) persist(ctx context.Context, snap enrichment.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO snapshots (source_reference, captured_at, payload) VALUES (?, ?, ?)",
		snap.SourceReference,
		snap.CapturedAt.UTC().Format(time.RFC3339Nano),
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("append snapshot: %w", err)
	}
	return s.prune(ctx)
}

func (s *Store) prune(ctx context.Context) error {
	if s.keep <= 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM snapshots WHERE id NOT IN (SELECT id FROM snapshots ORDER BY id DESC LIMIT ?)",
		s.keep,
	)
	if err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	return nil
}

// restoreLatest loads the newest persisted snapshot into memory. Absence and
// corruption both leave the store empty; restarting with a clean slate beats
// refusing to start.
func (s *Store) restoreLatest(ctx context.Context) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		"SELECT payload FROM snapshots ORDER BY id DESC LIMIT 1",
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return
	}
	if err != nil {
		s.logger.Warn("snapshot restore failed, starting empty", logging.Error(err))
		return
	}

	var snap enrichment.Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		s.logger.Warn("persisted snapshot is corrupt, starting empty", logging.Error(err))
		return
	}

	s.mu.Lock()
	s.snap = &snap
	s.mu.Unlock()
	s.logger.Info("restored snapshot",
		logging.String(logging.FieldGeneration, snap.Generation),
		logging.String(logging.FieldSourceRef, snap.SourceReference),
		logging.Int("attendees", len(snap.Attendees)))
}

// SnapshotCount returns the number of persisted snapshot rows.
func (s *Store) SnapshotCount(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM snapshots").Scan(&count); err != nil {
		return 0, fmt.Errorf("count snapshots: %w", err)
	}
	return count, nil
}
