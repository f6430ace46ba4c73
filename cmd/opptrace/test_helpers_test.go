package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"opptrace/internal/config"
	"opptrace/internal/daemon"
	"opptrace/internal/enrichment"
	"opptrace/internal/logging"
	"opptrace/internal/pipeline"
	"opptrace/internal/profilecache"
	"opptrace/internal/testsupport"
)

type stubFetcher struct{}

func (stubFetcher) Fetch(ctx context.Context, identity string) (enrichment.Profile, error) {
	return enrichment.Profile{FullName: "Profile " + identity}, nil
}

func (stubFetcher) Configured() bool { return true }

type stubScorer struct{}

func (stubScorer) Score(ctx context.Context, profile enrichment.Profile, maxSummaryChars int) (enrichment.ScoreReport, error) {
	return enrichment.ScoreReport{
		HackathonsWon:  "0",
		TechnicalSkill: 55,
		Collaboration:  60,
		OverallScore:   58,
	}, nil
}

func (stubScorer) Configured() bool { return true }

type cliTestEnv struct {
	cfg        *config.Config
	daemon     *daemon.Daemon
	addr       string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	cfg := testsupport.NewConfig(t)
	cfg.Pipeline.FetchRatePerSecond = 0
	cfg.Pipeline.RetryBaseDelayMS = 1

	configPath := filepath.Join(homeDir, ".config", "opptrace", "config.toml")
	writeTestConfig(t, configPath, cfg)

	st := testsupport.MustOpenStore(t, cfg)
	cache := profilecache.NewCache(cfg.ProfileCachePath(), logging.NewNop())
	orch := pipeline.New(cfg, st, cache, stubFetcher{}, stubScorer{}, logging.NewNop())

	d, err := daemon.New(cfg, st, cache, orch, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(d.Stop)

	return &cliTestEnv{
		cfg:        cfg,
		daemon:     d,
		addr:       d.Addr(),
		configPath: configPath,
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--address", env.addr, "--config", env.configPath}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeBatchFile(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "batch.json")
	content := `{
		"source_reference": "meetup-42.json",
		"attendees": [
			{"identity": "carol-yu-12cd"},
			{"identity": "dan-ivanov-98ef"}
		]
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write batch: %v", err)
	}
	return path
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
