package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeProfile()
	c.normalizeScoring()
	c.normalizePipeline()
	c.normalizeFaceMatch()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.APIBind) == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeProfile() {
	c.Profile.APIKey = strings.TrimSpace(c.Profile.APIKey)
	if c.Profile.APIKey == "" {
		c.Profile.APIKey = strings.TrimSpace(os.Getenv("OPPTRACE_PROFILE_API_KEY"))
	}
	if strings.TrimSpace(c.Profile.BaseURL) == "" {
		c.Profile.BaseURL = defaultProfileBaseURL
	}
	if c.Profile.TimeoutSeconds <= 0 {
		c.Profile.TimeoutSeconds = defaultProfileTimeoutSeconds
	}
}

func (c *Config) normalizeScoring() {
	c.Scoring.APIKey = strings.TrimSpace(c.Scoring.APIKey)
	if c.Scoring.APIKey == "" {
		c.Scoring.APIKey = strings.TrimSpace(os.Getenv("OPPTRACE_SCORING_API_KEY"))
	}
	if strings.TrimSpace(c.Scoring.BaseURL) == "" {
		c.Scoring.BaseURL = defaultScoringBaseURL
	}
	if strings.TrimSpace(c.Scoring.Model) == "" {
		c.Scoring.Model = defaultScoringModel
	}
	if c.Scoring.TimeoutSeconds <= 0 {
		c.Scoring.TimeoutSeconds = defaultScoringTimeoutSeconds
	}
	if c.Scoring.MaxSummaryChars <= 0 {
		c.Scoring.MaxSummaryChars = defaultScoringMaxSummaryChars
	}
	if c.Scoring.SummaryHighThreshold <= 0 {
		c.Scoring.SummaryHighThreshold = defaultSummaryHighThreshold
	}
	if c.Scoring.SummaryLowThreshold <= 0 {
		c.Scoring.SummaryLowThreshold = defaultSummaryLowThreshold
	}
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.FetchConcurrency <= 0 {
		c.Pipeline.FetchConcurrency = defaultFetchConcurrency
	}
	if c.Pipeline.FetchRatePerSecond <= 0 {
		c.Pipeline.FetchRatePerSecond = defaultFetchRatePerSecond
	}
	if c.Pipeline.ScoreConcurrency <= 0 {
		c.Pipeline.ScoreConcurrency = defaultScoreConcurrency
	}
	if c.Pipeline.RetryAttempts <= 0 {
		c.Pipeline.RetryAttempts = defaultRetryAttempts
	}
	if c.Pipeline.RetryBaseDelayMS <= 0 {
		c.Pipeline.RetryBaseDelayMS = defaultRetryBaseDelayMS
	}
	if c.Pipeline.SnapshotKeep <= 0 {
		c.Pipeline.SnapshotKeep = defaultSnapshotKeep
	}
}

func (c *Config) normalizeFaceMatch() {
	c.FaceMatch.Command = strings.TrimSpace(c.FaceMatch.Command)
	if c.FaceMatch.TimeoutSeconds <= 0 {
		c.FaceMatch.TimeoutSeconds = defaultFaceMatchTimeoutSeconds
	}
	if c.FaceMatch.MinConfidence <= 0 {
		c.FaceMatch.MinConfidence = defaultFaceMatchMinConfidence
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
