package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"opptrace/internal/config"
	"opptrace/internal/enrichment"
	"opptrace/internal/logging"
)

// ErrStaleGeneration marks a transition attempted against a superseded run.
// Callers log and drop these; the record belongs to a snapshot that no longer
// exists.
var ErrStaleGeneration = errors.New("stale generation")

// ErrNoSnapshot marks operations that need a current snapshot when none has
// been ingested yet.
var ErrNoSnapshot = errors.New("no snapshot")

// Store owns the live enrichment snapshot and its SQLite persistence log.
// All access to the snapshot goes through Store methods; transition methods
// keep progress counters and record statuses in a single critical section so
// pollers never observe them out of step.
type Store struct {
	mu     sync.RWMutex
	snap   *enrichment.Snapshot
	db     *sql.DB
	path   string
	keep   int
	logger *slog.Logger
}

// Open connects to the snapshot database and restores the most recent
// snapshot if one exists. A missing or unreadable snapshot log is not fatal;
// the store starts empty and logs the condition.
func Open(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "snapshots.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{
		db:     db,
		path:   dbPath,
		keep:   cfg.Pipeline.SnapshotKeep,
		logger: logging.NewComponentLogger(logger, "store"),
	}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	store.restoreLatest(context.Background())
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the snapshot database location.
func (s *Store) Path() string {
	return s.path
}

// Replace installs a fresh snapshot for a new ingestion, superseding any
// previous run, and persists it.
func (s *Store) Replace(ctx context.Context, snap *enrichment.Snapshot) error {
	if snap == nil {
		return errors.New("nil snapshot")
	}
	s.mu.Lock()
	s.snap = snap
	payload := snap.Clone()
	s.mu.Unlock()
	return s.persist(ctx, payload)
}

// Current returns a deep copy of the live snapshot for pollers.
func (s *Store) Current() (enrichment.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return enrichment.Snapshot{}, false
	}
	return s.snap.Clone(), true
}

// Generation returns the live snapshot's generation, or empty when the store
// holds no snapshot.
func (s *Store) Generation() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return ""
	}
	return s.snap.Generation
}

// CompleteFetch records a successful profile fetch for one attendee.
func (s *Store) CompleteFetch(gen string, idx int, profile enrichment.Profile) error {
	return s.transition(gen, func(snap *enrichment.Snapshot) error {
		return snap.CompleteFetch(idx, profile)
	})
}

// FailFetch records a failed profile fetch for one attendee.
func (s *Store) FailFetch(gen string, idx int, message string) error {
	return s.transition(gen, func(snap *enrichment.Snapshot) error {
		return snap.FailFetch(idx, message)
	})
}

// CompleteScore records a successful scoring result for one attendee.
func (s *Store) CompleteScore(gen string, idx int, report enrichment.ScoreReport) error {
	return s.transition(gen, func(snap *enrichment.Snapshot) error {
		return snap.CompleteScore(idx, report)
	})
}

// FailScore records a failed scoring attempt for one attendee.
func (s *Store) FailScore(gen string, idx int, message string) error {
	return s.transition(gen, func(snap *enrichment.Snapshot) error {
		return snap.FailScore(idx, message)
	})
}

// BeginScoring partitions the snapshot for the score stage and returns the
// indexes the stage should dispatch.
func (s *Store) BeginScoring(gen string) ([]int, error) {
	var eligible []int
	err := s.transition(gen, func(snap *enrichment.Snapshot) error {
		var beginErr error
		eligible, beginErr = snap.BeginScoring()
		return beginErr
	})
	if err != nil {
		return nil, err
	}
	return eligible, nil
}

// ResetFailedFetches reopens failed fetch records for an explicit re-run.
func (s *Store) ResetFailedFetches(gen string) ([]int, error) {
	var reset []int
	err := s.transition(gen, func(snap *enrichment.Snapshot) error {
		reset = snap.ResetFailedFetches()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reset, nil
}

// ResetFailedScores reopens failed score records for an explicit re-run.
func (s *Store) ResetFailedScores(gen string) ([]int, error) {
	var reset []int
	err := s.transition(gen, func(snap *enrichment.Snapshot) error {
		reset = snap.ResetFailedScores()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reset, nil
}

// PersistCurrent appends the live snapshot to the persistence log. Called by
// the orchestrator after each stage completes.
func (s *Store) PersistCurrent(ctx context.Context) error {
	s.mu.RLock()
	if s.snap == nil {
		s.mu.RUnlock()
		return ErrNoSnapshot
	}
	payload := s.snap.Clone()
	s.mu.RUnlock()
	return s.persist(ctx, payload)
}

func (s *Store) transition(gen string, apply func(*enrichment.Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return ErrNoSnapshot
	}
	if s.snap.Generation != gen {
		return fmt.Errorf("%w: have %s, got %s", ErrStaleGeneration, s.snap.Generation, gen)
	}
	return apply(s.snap)
}
