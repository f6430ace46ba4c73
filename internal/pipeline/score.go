package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"opptrace/internal/enrichment"
	"opptrace/internal/logging"
	"opptrace/internal/services"
	"opptrace/internal/services/scoring"
	"opptrace/internal/store"
)

const missingScoreCredentials = "scoring provider credentials not configured"

// runScoreStage scores every eligible record once the fetch stage has fully
// settled. In-flight external calls are bounded by a semaphore regardless of
// batch size.
func (o *Orchestrator) runScoreStage(ctx context.Context, gen, sourceRef string) {
	if !o.scoreGuard.acquire(gen, sourceRef) {
		o.logger.Info("score stage skipped, already running for source",
			logging.String(logging.FieldSourceRef, sourceRef))
		return
	}
	defer o.scoreGuard.release(gen)

	logger := logging.WithContext(ctx, o.logger)

	eligible, err := o.store.BeginScoring(gen)
	if err != nil {
		if !errors.Is(err, store.ErrStaleGeneration) {
			logger.Warn("score stage could not start", logging.Error(err))
		}
		return
	}
	o.persistSnapshot(ctx, gen)
	if len(eligible) == 0 {
		return
	}

	logger.Info("score stage started",
		logging.String(logging.FieldStage, "score"),
		logging.Int("items", len(eligible)))

	snap, ok := o.store.Current()
	if !ok || snap.Generation != gen {
		return
	}

	if o.scorer == nil || !o.scorer.Configured() {
		for _, idx := range eligible {
			o.failScore(gen, idx, missingScoreCredentials)
		}
		logger.Warn("score stage short-circuited",
			logging.String(logging.FieldStage, "score"),
			logging.String(logging.FieldErrorHint, missingScoreCredentials))
		o.persistSnapshot(ctx, gen)
		return
	}

	limit := o.cfg.Pipeline.ScoreConcurrency
	if limit <= 0 {
		limit = 1
	}
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	for _, idx := range eligible {
		attendee := snap.Attendees[idx]
		if attendee.Profile == nil {
			o.failScore(gen, idx, "no profile available for scoring")
			continue
		}
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return
		}
		wg.Add(1)
		go func(idx int, profile enrichment.Profile) {
			defer wg.Done()
			defer func() { <-sem }()
			o.scoreOne(ctx, gen, idx, profile)
		}(idx, *attendee.Profile)
	}
	wg.Wait()

	o.persistSnapshot(ctx, gen)
	if current, ok := o.store.Current(); ok && current.Generation == gen {
		logger.Info("score stage finished",
			logging.String(logging.FieldStage, "score"),
			logging.Int("completed", current.ScoreProgress.Completed),
			logging.Int("failed", current.ScoreProgress.Failed),
			logging.Int("skipped", current.ScoreProgress.Skipped))
	}
}

func (o *Orchestrator) scoreOne(ctx context.Context, gen string, idx int, profile enrichment.Profile) {
	logger := logging.WithContext(ctx, o.logger)

	scoreCtx := ctx
	if o.cfg.Scoring.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		scoreCtx, cancel = context.WithTimeout(ctx, time.Duration(o.cfg.Scoring.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	report, err := o.scorer.Score(scoreCtx, profile, o.cfg.Scoring.MaxSummaryChars)
	if err != nil {
		message := services.Details(err)
		if message == "" {
			message = "scoring failed"
		}
		o.failScore(gen, idx, message)
		logger.Warn("scoring failed",
			logging.Int(logging.FieldAttendee, idx),
			logging.Error(err))
		return
	}

	if o.cfg.Scoring.SummaryFilter {
		scoring.ApplySummaryFilter(&report, o.cfg.Scoring.SummaryHighThreshold, o.cfg.Scoring.SummaryLowThreshold)
	}

	if err := o.store.CompleteScore(gen, idx, report); err != nil {
		o.logger.Debug("score completion dropped",
			logging.String(logging.FieldGeneration, gen),
			logging.Int(logging.FieldAttendee, idx),
			logging.Error(err))
	}
}

func (o *Orchestrator) failScore(gen string, idx int, message string) {
	if err := o.store.FailScore(gen, idx, message); err != nil {
		o.logger.Debug("score failure dropped",
			logging.String(logging.FieldGeneration, gen),
			logging.Int(logging.FieldAttendee, idx),
			logging.Error(err))
	}
}
