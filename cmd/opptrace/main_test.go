package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestEnrichAndStatusRoundTrip(t *testing.T) {
	env := setupCLITestEnv(t)
	batchPath := writeBatchFile(t, t.TempDir())

	out, _, err := runCLI(t, env, "enrich", batchPath)
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}
	requireContains(t, out, "Scheduled enrichment of 2 attendees")
	requireContains(t, out, "Generation:")

	waitFor(t, 5*time.Second, func() bool {
		out, _, err := runCLI(t, env, "status")
		if err != nil {
			return false
		}
		return strings.Contains(out, "Fetch: 2/2 completed") &&
			strings.Contains(out, "Score: 2/2 completed")
	})

	out, _, err = runCLI(t, env, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Daemon running:  yes")
	requireContains(t, out, "carol-yu-12cd")
	requireContains(t, out, "dan-ivanov-98ef")
	requireContains(t, out, "58")
}

func TestEnrichRejectsMalformedBatch(t *testing.T) {
	env := setupCLITestEnv(t)

	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`{"attendees": []}`), 0o644); err != nil {
		t.Fatalf("write batch: %v", err)
	}

	_, _, err := runCLI(t, env, "enrich", path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "source_reference") {
		t.Fatalf("err = %v", err)
	}
}

func TestRetryRequiresKnownStage(t *testing.T) {
	env := setupCLITestEnv(t)
	batchPath := writeBatchFile(t, t.TempDir())

	if _, _, err := runCLI(t, env, "enrich", batchPath); err != nil {
		t.Fatalf("enrich: %v", err)
	}
	waitFor(t, 5*time.Second, func() bool {
		out, _, err := runCLI(t, env, "status")
		return err == nil && strings.Contains(out, "Score: 2/2 completed")
	})

	_, _, err := runCLI(t, env, "retry", "--stage", "polish")
	if err == nil || !strings.Contains(err.Error(), "unknown stage") {
		t.Fatalf("err = %v", err)
	}

	_, _, err = runCLI(t, env, "retry", "--stage", "fetch")
	if err == nil || !strings.Contains(err.Error(), "no failed fetch items") {
		t.Fatalf("err = %v", err)
	}
}

func TestConfigInit(t *testing.T) {
	env := setupCLITestEnv(t)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err := runCLI(t, env, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	_, _, err = runCLI(t, env, "config", "init", "--path", target)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("err = %v", err)
	}
}

func TestRenderAttendeesPlain(t *testing.T) {
	out := renderTable(
		[]string{"Identity", "Overall"},
		[][]string{{"alice", "78"}},
		1,
	)
	requireContains(t, out, "alice")
	requireContains(t, out, "78")
}
