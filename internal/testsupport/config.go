package testsupport

import (
	"path/filepath"
	"testing"

	"opptrace/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.CacheDir = filepath.Join(base, "cache")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Profile.APIKey = "test-profile-key"
	cfgVal.Scoring.APIKey = "test-scoring-key"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithProfileKey overrides the profile provider API key. An empty key models
// a deployment without fetch credentials.
func WithProfileKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Profile.APIKey = key
	}
}

// WithScoringKey overrides the scoring provider API key.
func WithScoringKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Scoring.APIKey = key
	}
}

// WithSnapshotKeep overrides the snapshot retention count.
func WithSnapshotKeep(keep int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.SnapshotKeep = keep
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
