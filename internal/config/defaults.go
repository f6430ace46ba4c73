package config

const (
	defaultDataDir  = "~/.local/share/opptrace/data"
	defaultLogDir   = "~/.local/share/opptrace/logs"
	defaultCacheDir = "~/.cache/opptrace"
	defaultAPIBind  = "127.0.0.1:7391"

	defaultProfileBaseURL        = "https://api.profileprovider.dev/v1/profile"
	defaultProfileTimeoutSeconds = 30

	defaultScoringBaseURL         = "https://openrouter.ai/api/v1/chat/completions"
	defaultScoringModel           = "openai/gpt-5-nano"
	defaultScoringTimeoutSeconds  = 60
	defaultScoringMaxSummaryChars = 6000
	defaultSummaryHighThreshold   = 75
	defaultSummaryLowThreshold    = 20

	defaultFetchConcurrency   = 4
	defaultFetchRatePerSecond = 2.0
	defaultScoreConcurrency   = 10
	defaultRetryAttempts      = 3
	defaultRetryBaseDelayMS   = 500
	defaultSnapshotKeep       = 10

	defaultFaceMatchTimeoutSeconds = 120
	defaultFaceMatchMinConfidence  = 0.2

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			LogDir:   defaultLogDir,
			CacheDir: defaultCacheDir,
			APIBind:  defaultAPIBind,
		},
		Profile: Profile{
			BaseURL:        defaultProfileBaseURL,
			TimeoutSeconds: defaultProfileTimeoutSeconds,
		},
		Scoring: Scoring{
			BaseURL:              defaultScoringBaseURL,
			Model:                defaultScoringModel,
			TimeoutSeconds:       defaultScoringTimeoutSeconds,
			MaxSummaryChars:      defaultScoringMaxSummaryChars,
			SummaryFilter:        true,
			SummaryHighThreshold: defaultSummaryHighThreshold,
			SummaryLowThreshold:  defaultSummaryLowThreshold,
		},
		Pipeline: Pipeline{
			FetchConcurrency:   defaultFetchConcurrency,
			FetchRatePerSecond: defaultFetchRatePerSecond,
			ScoreConcurrency:   defaultScoreConcurrency,
			RetryAttempts:      defaultRetryAttempts,
			RetryBaseDelayMS:   defaultRetryBaseDelayMS,
			SnapshotKeep:       defaultSnapshotKeep,
		},
		FaceMatch: FaceMatch{
			Enabled:        false,
			TimeoutSeconds: defaultFaceMatchTimeoutSeconds,
			MinConfidence:  defaultFaceMatchMinConfidence,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
