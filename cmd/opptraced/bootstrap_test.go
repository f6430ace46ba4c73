package main

import (
	"testing"

	"opptrace/internal/config"
)

func TestBuildMatcherDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.FaceMatch.Enabled = false
	if buildMatcher(&cfg) != nil {
		t.Fatal("expected nil matcher when face matching is disabled")
	}

	cfg.FaceMatch.Enabled = true
	cfg.FaceMatch.Command = "matcher"
	matcher := buildMatcher(&cfg)
	if matcher == nil || !matcher.Configured() {
		t.Fatal("expected configured matcher")
	}
}

func TestBuildClientsReflectCredentials(t *testing.T) {
	cfg := config.Default()
	cfg.Profile.APIKey = ""
	cfg.Scoring.APIKey = ""
	if buildFetcher(&cfg).Configured() {
		t.Fatal("expected unconfigured fetcher without key")
	}
	if buildScorer(&cfg).Configured() {
		t.Fatal("expected unconfigured scorer without key")
	}

	cfg.Profile.APIKey = "pk"
	cfg.Scoring.APIKey = "sk"
	if !buildFetcher(&cfg).Configured() {
		t.Fatal("expected configured fetcher")
	}
	if !buildScorer(&cfg).Configured() {
		t.Fatal("expected configured scorer")
	}
}
