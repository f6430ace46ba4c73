package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable. Provider API keys are not
// required here: the pipeline detects missing credentials per stage and fails
// the affected items instead of refusing to start.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateScoring(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateFaceMatch(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.APIBind) == "" {
		return errors.New("paths.api_bind must be set")
	}
	return nil
}

func (c *Config) validateScoring() error {
	if c.Scoring.SummaryHighThreshold < 1 || c.Scoring.SummaryHighThreshold > 100 {
		return errors.New("scoring.summary_high_threshold must be between 1 and 100")
	}
	if c.Scoring.SummaryLowThreshold < 1 || c.Scoring.SummaryLowThreshold > 100 {
		return errors.New("scoring.summary_low_threshold must be between 1 and 100")
	}
	if c.Scoring.SummaryLowThreshold >= c.Scoring.SummaryHighThreshold {
		return errors.New("scoring.summary_low_threshold must be below scoring.summary_high_threshold")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.ScoreConcurrency > 64 {
		return fmt.Errorf("pipeline.score_concurrency %d exceeds the supported maximum of 64", c.Pipeline.ScoreConcurrency)
	}
	if c.Pipeline.RetryAttempts > 10 {
		return fmt.Errorf("pipeline.retry_attempts %d exceeds the supported maximum of 10", c.Pipeline.RetryAttempts)
	}
	return nil
}

func (c *Config) validateFaceMatch() error {
	if !c.FaceMatch.Enabled {
		return nil
	}
	if c.FaceMatch.Command == "" {
		return errors.New("face_match.command must be set when face_match.enabled is true")
	}
	if c.FaceMatch.MinConfidence < 0 || c.FaceMatch.MinConfidence > 1 {
		return errors.New("face_match.min_confidence must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}
