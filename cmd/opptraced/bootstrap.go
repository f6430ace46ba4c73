package main

import (
	"path/filepath"
	"time"

	"log/slog"

	"opptrace/internal/config"
	"opptrace/internal/logging"
	"opptrace/internal/pipeline"
	"opptrace/internal/services/facematch"
	"opptrace/internal/services/profile"
	"opptrace/internal/services/scoring"
)

func buildLogger(cfg *config.Config) (*slog.Logger, error) {
	return logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		OutputPaths: []string{
			"stdout",
			filepath.Join(cfg.Paths.LogDir, "opptraced.log"),
		},
	})
}

func buildFetcher(cfg *config.Config) pipeline.ProfileFetcher {
	opts := []profile.Option{}
	if cfg.Profile.BaseURL != "" {
		opts = append(opts, profile.WithBaseURL(cfg.Profile.BaseURL))
	}
	if cfg.Profile.TimeoutSeconds > 0 {
		opts = append(opts, profile.WithTimeout(time.Duration(cfg.Profile.TimeoutSeconds)*time.Second))
	}
	return profile.NewClient(cfg.Profile.APIKey, opts...)
}

func buildScorer(cfg *config.Config) pipeline.Scorer {
	return scoring.NewClient(scoring.Config{
		APIKey:         cfg.Scoring.APIKey,
		BaseURL:        cfg.Scoring.BaseURL,
		Model:          cfg.Scoring.Model,
		TimeoutSeconds: cfg.Scoring.TimeoutSeconds,
	})
}

func buildMatcher(cfg *config.Config) *facematch.Service {
	if !cfg.FaceMatch.Enabled {
		return nil
	}
	return facematch.NewService(facematch.Config{
		Command:        cfg.FaceMatch.Command,
		TimeoutSeconds: cfg.FaceMatch.TimeoutSeconds,
		MinConfidence:  cfg.FaceMatch.MinConfidence,
	})
}
