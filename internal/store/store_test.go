package store_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"opptrace/internal/enrichment"
	"opptrace/internal/logging"
	"opptrace/internal/store"
	"opptrace/internal/testsupport"
)

func newSnapshot(gen string, identities ...string) *enrichment.Snapshot {
	attendees := make([]enrichment.Attendee, len(identities))
	for i, id := range identities {
		attendees[i] = enrichment.Attendee{Identity: id}
	}
	return enrichment.NewSnapshot(gen, "event.json", attendees)
}

func TestReplaceAndCurrent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	if _, ok := st.Current(); ok {
		t.Fatal("fresh store should hold no snapshot")
	}
	if err := st.Replace(context.Background(), newSnapshot("gen-1", "alice", "bob")); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	snap, ok := st.Current()
	if !ok {
		t.Fatal("Current returned no snapshot after Replace")
	}
	if snap.Generation != "gen-1" || len(snap.Attendees) != 2 {
		t.Fatalf("unexpected snapshot: gen=%s attendees=%d", snap.Generation, len(snap.Attendees))
	}

	// Mutating the copy must not leak into the store.
	snap.Attendees[0].FetchStatus = enrichment.FetchFailed
	again, _ := st.Current()
	if again.Attendees[0].FetchStatus != enrichment.FetchPending {
		t.Fatal("Current returned a shared snapshot")
	}
}

func TestTransitionsUpdateCountersAtomically(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	if err := st.Replace(context.Background(), newSnapshot("gen-1", "alice", "bob")); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	if err := st.CompleteFetch("gen-1", 0, enrichment.Profile{FullName: "Alice Ng"}); err != nil {
		t.Fatalf("CompleteFetch: %v", err)
	}
	if err := st.FailFetch("gen-1", 1, "provider down"); err != nil {
		t.Fatalf("FailFetch: %v", err)
	}

	snap, _ := st.Current()
	if snap.FetchProgress.Completed != 1 || snap.FetchProgress.Failed != 1 || snap.FetchProgress.Pending != 0 {
		t.Fatalf("fetch progress = %+v", snap.FetchProgress)
	}

	eligible, err := st.BeginScoring("gen-1")
	if err != nil {
		t.Fatalf("BeginScoring: %v", err)
	}
	if len(eligible) != 1 || eligible[0] != 0 {
		t.Fatalf("eligible = %v", eligible)
	}
	if err := st.CompleteScore("gen-1", 0, enrichment.ScoreReport{OverallScore: 88}); err != nil {
		t.Fatalf("CompleteScore: %v", err)
	}

	snap, _ = st.Current()
	if snap.ScoreProgress.Completed != 1 || snap.ScoreProgress.Skipped != 1 {
		t.Fatalf("score progress = %+v", snap.ScoreProgress)
	}
}

func TestStaleGenerationDropped(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	if err := st.Replace(context.Background(), newSnapshot("gen-1", "alice")); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if err := st.Replace(context.Background(), newSnapshot("gen-2", "alice")); err != nil {
		t.Fatalf("second Replace: %v", err)
	}

	err := st.CompleteFetch("gen-1", 0, enrichment.Profile{})
	if !errors.Is(err, store.ErrStaleGeneration) {
		t.Fatalf("expected stale generation error, got %v", err)
	}

	snap, _ := st.Current()
	if snap.Attendees[0].FetchStatus != enrichment.FetchPending {
		t.Fatal("stale write mutated the live snapshot")
	}
}

func TestRestartRestoresLatestSnapshot(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	st, err := store.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	if err := st.Replace(context.Background(), newSnapshot("gen-1", "alice")); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if err := st.CompleteFetch("gen-1", 0, enrichment.Profile{FullName: "Alice Ng"}); err != nil {
		t.Fatalf("CompleteFetch: %v", err)
	}
	if err := st.PersistCurrent(context.Background()); err != nil {
		t.Fatalf("PersistCurrent: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := testsupport.MustOpenStore(t, cfg)
	snap, ok := reopened.Current()
	if !ok {
		t.Fatal("reopened store holds no snapshot")
	}
	if snap.Generation != "gen-1" {
		t.Fatalf("generation = %s, want gen-1", snap.Generation)
	}
	if snap.Attendees[0].FetchStatus != enrichment.FetchCompleted {
		t.Fatalf("restored fetch status = %s, want completed", snap.Attendees[0].FetchStatus)
	}
}

func TestCorruptPayloadStartsEmpty(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	st, err := store.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	if err := st.Replace(context.Background(), newSnapshot("gen-1", "alice")); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(cfg.Paths.DataDir, "snapshots.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if _, err := db.Exec("UPDATE snapshots SET payload = 'not-json'"); err != nil {
		t.Fatalf("corrupt payload: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close db: %v", err)
	}

	reopened := testsupport.MustOpenStore(t, cfg)
	if _, ok := reopened.Current(); ok {
		t.Fatal("store restored a corrupt snapshot")
	}
}

func TestPruneKeepsNewestRows(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithSnapshotKeep(3))
	st := testsupport.MustOpenStore(t, cfg)

	for i := 0; i < 6; i++ {
		if err := st.Replace(context.Background(), newSnapshot("gen", "alice")); err != nil {
			t.Fatalf("Replace %d: %v", i, err)
		}
	}

	count, err := st.SnapshotCount(context.Background())
	if err != nil {
		t.Fatalf("SnapshotCount: %v", err)
	}
	if count != 3 {
		t.Fatalf("snapshot rows = %d, want 3", count)
	}
}

func TestTransitionWithoutSnapshot(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	if err := st.FailFetch("gen-1", 0, "x"); !errors.Is(err, store.ErrNoSnapshot) {
		t.Fatalf("expected no-snapshot error, got %v", err)
	}
	if err := st.PersistCurrent(context.Background()); !errors.Is(err, store.ErrNoSnapshot) {
		t.Fatalf("expected no-snapshot error from PersistCurrent, got %v", err)
	}
}
