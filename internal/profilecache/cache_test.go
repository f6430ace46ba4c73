package profilecache

import (
	"os"
	"path/filepath"
	"testing"

	"opptrace/internal/enrichment"
)

func TestCacheStoreAndLookup(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "profiles.json")

	cache := NewCache(cachePath, nil)

	profile := enrichment.Profile{
		FullName: "Alice Ng",
		Headline: "Platform engineer",
		Skills:   []string{"go", "kubernetes"},
	}
	if err := cache.Store("alice-ng", profile); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	found, ok := cache.Lookup("alice-ng")
	if !ok {
		t.Fatal("Lookup failed to find stored entry")
	}
	if found.FullName != profile.FullName {
		t.Errorf("FullName mismatch: got %q, want %q", found.FullName, profile.FullName)
	}
	if len(found.Skills) != 2 {
		t.Errorf("Skills mismatch: got %v", found.Skills)
	}

	// Keying trims whitespace, so a padded identity hits the same entry.
	if _, ok := cache.Lookup("  alice-ng  "); !ok {
		t.Error("Lookup should trim identity before keying")
	}
}

func TestCacheLookupNotFound(t *testing.T) {
	cache := NewCache(filepath.Join(t.TempDir(), "profiles.json"), nil)

	if _, ok := cache.Lookup("nonexistent"); ok {
		t.Error("Lookup should return false for non-existent entry")
	}
	if _, ok := cache.Lookup(""); ok {
		t.Error("Lookup should return false for empty identity")
	}
	if _, ok := cache.Lookup("   "); ok {
		t.Error("Lookup should return false for whitespace identity")
	}
}

func TestCachePersistsAcrossReopen(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "profiles.json")

	first := NewCache(cachePath, nil)
	if err := first.Store("bob-tran", enrichment.Profile{FullName: "Bob Tran"}); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	reopened := NewCache(cachePath, nil)
	if reopened.Count() != 1 {
		t.Fatalf("Count after reopen = %d, want 1", reopened.Count())
	}
	found, ok := reopened.Lookup("bob-tran")
	if !ok {
		t.Fatal("Lookup after reopen failed")
	}
	if found.FullName != "Bob Tran" {
		t.Errorf("FullName after reopen = %q", found.FullName)
	}
}

func TestCacheCorruptFileStartsEmpty(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "profiles.json")
	if err := os.WriteFile(cachePath, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	cache := NewCache(cachePath, nil)
	if cache.Count() != 0 {
		t.Fatalf("Count = %d, want 0 for corrupt file", cache.Count())
	}
	if _, ok := cache.Lookup("anything"); ok {
		t.Error("Lookup should miss on a corrupt cache")
	}

	// The cache must still accept new entries after a corrupt load.
	if err := cache.Store("carol", enrichment.Profile{FullName: "Carol"}); err != nil {
		t.Fatalf("Store after corrupt load failed: %v", err)
	}
	if _, ok := NewCache(cachePath, nil).Lookup("carol"); !ok {
		t.Error("entry written after corrupt load did not persist")
	}
}

func TestCacheUnconfiguredIsNoop(t *testing.T) {
	cache := NewCache("", nil)

	if err := cache.Store("alice", enrichment.Profile{}); err != nil {
		t.Fatalf("Store on unconfigured cache: %v", err)
	}
	if _, ok := cache.Lookup("alice"); ok {
		t.Error("unconfigured cache should never hit")
	}
	if cache.Count() != 0 {
		t.Errorf("Count = %d, want 0", cache.Count())
	}
}

func TestCacheClear(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "profiles.json")
	cache := NewCache(cachePath, nil)
	if err := cache.Store("alice", enrichment.Profile{}); err != nil {
		t.Fatal(err)
	}

	if err := cache.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if cache.Count() != 0 {
		t.Errorf("Count after Clear = %d, want 0", cache.Count())
	}
}
