// Package services defines shared utilities consumed by the enrichment stages
// and external integrations.
//
// Key responsibilities:
//   - Structured error markers plus the Wrap helper that keep failure
//     diagnostics uniform across stages.
//   - Details and Retryable helpers used when recording per-item errors and
//     deciding whether an explicit re-run makes sense.
//
// Use these helpers when wiring new stage logic so operational behaviour stays
// uniform across the pipeline.
package services
