package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"opptrace/internal/enrichment"
	"opptrace/internal/logging"
	"opptrace/internal/services"
	"opptrace/internal/services/profile"
	"opptrace/internal/services/scoring"
)

// Stage names accepted by Retry.
const (
	StageFetch = "fetch"
	StageScore = "score"
)

// Retry re-runs previously failed items for one stage. It is an explicit
// operation, never triggered automatically, and applies exponential backoff
// around each item's provider call. It returns the affected generation.
func (o *Orchestrator) Retry(ctx context.Context, stage string) (string, error) {
	stage = strings.ToLower(strings.TrimSpace(stage))
	switch stage {
	case StageFetch, StageScore:
	default:
		return "", services.Wrap(services.ErrValidation, "pipeline", "retry", fmt.Sprintf("unknown stage %q", stage), nil)
	}

	snap, ok := o.store.Current()
	if !ok {
		return "", services.Wrap(services.ErrNotFound, "pipeline", "retry", "no batch has been ingested", nil)
	}
	gen := snap.Generation

	if stage == StageFetch {
		return gen, o.retryFetch(ctx, gen, snap.SourceReference)
	}
	return gen, o.retryScore(ctx, gen, snap.SourceReference)
}

func (o *Orchestrator) retryFetch(ctx context.Context, gen, sourceRef string) error {
	if !o.fetchGuard.acquire(gen, sourceRef) {
		return services.Wrap(services.ErrValidation, "pipeline", "retry", "a fetch run is already active", nil)
	}

	reset, err := o.store.ResetFailedFetches(gen)
	if err != nil {
		o.fetchGuard.release(gen)
		return err
	}
	if len(reset) == 0 {
		o.fetchGuard.release(gen)
		return services.Wrap(services.ErrNotFound, "pipeline", "retry", "no failed fetch items", nil)
	}

	o.logger.Info("fetch retry scheduled",
		logging.String(logging.FieldGeneration, gen),
		logging.Int("items", len(reset)))

	snap, ok := o.store.Current()
	if !ok || snap.Generation != gen {
		o.fetchGuard.release(gen)
		return services.Wrap(services.ErrTransient, "pipeline", "retry", "snapshot superseded during retry setup", nil)
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.fetchGuard.release(gen)

		runCtx := logging.WithRun(o.bg, gen, sourceRef)
		o.retryFetchItems(runCtx, gen, snap, reset)
		// Newly completed profiles feed a follow-up score pass.
		o.runScoreStage(runCtx, gen, sourceRef)
	}()
	return nil
}

func (o *Orchestrator) retryFetchItems(ctx context.Context, gen string, snap enrichment.Snapshot, items []int) {
	if o.fetcher == nil || !o.fetcher.Configured() {
		for _, idx := range items {
			o.failFetch(gen, idx, missingFetchCredentials)
		}
		o.persistSnapshot(ctx, gen)
		return
	}

	workers := o.cfg.Pipeline.FetchConcurrency
	if workers <= 0 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				o.retryFetchOne(ctx, gen, idx, snap.Attendees[idx].Identity)
			}
		}()
	}
	for _, idx := range items {
		select {
		case jobs <- idx:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return
		}
	}
	close(jobs)
	wg.Wait()
	o.persistSnapshot(ctx, gen)
}

func (o *Orchestrator) retryFetchOne(ctx context.Context, gen string, idx int, identity string) {
	logger := logging.WithContext(ctx, o.logger)

	if o.cache != nil {
		if cached, hit := o.cache.Lookup(identity); hit {
			o.completeFetch(gen, idx, identity, cached)
			return
		}
	}

	var fetched enrichment.Profile
	err := o.attemptWithBackoff(ctx, func() error {
		if o.limiter != nil {
			if err := o.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		fetchCtx := ctx
		if o.cfg.Profile.TimeoutSeconds > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(ctx, time.Duration(o.cfg.Profile.TimeoutSeconds)*time.Second)
			defer cancel()
		}
		var fetchErr error
		fetched, fetchErr = o.fetcher.Fetch(fetchCtx, identity)
		return fetchErr
	})
	if err != nil {
		message := services.Details(err)
		if message == "" {
			message = "profile fetch failed"
		}
		o.failFetch(gen, idx, message)
		logger.Warn("fetch retry exhausted",
			logging.String(logging.FieldIdentity, identity),
			logging.Int(logging.FieldAttendee, idx),
			logging.Error(err))
		return
	}

	if strings.TrimSpace(fetched.FullName) == "" {
		fetched.FullName = profile.DisplayNameFromIdentity(identity)
	}
	if o.cache != nil {
		if err := o.cache.Store(identity, fetched); err != nil {
			logger.Warn("profile cache write failed",
				logging.String(logging.FieldIdentity, identity),
				logging.Error(err))
		}
	}
	o.completeFetch(gen, idx, identity, fetched)
}

func (o *Orchestrator) retryScore(ctx context.Context, gen, sourceRef string) error {
	if !o.scoreGuard.acquire(gen, sourceRef) {
		return services.Wrap(services.ErrValidation, "pipeline", "retry", "a score run is already active", nil)
	}

	reset, err := o.store.ResetFailedScores(gen)
	if err != nil {
		o.scoreGuard.release(gen)
		return err
	}
	if len(reset) == 0 {
		o.scoreGuard.release(gen)
		return services.Wrap(services.ErrNotFound, "pipeline", "retry", "no failed score items", nil)
	}

	o.logger.Info("score retry scheduled",
		logging.String(logging.FieldGeneration, gen),
		logging.Int("items", len(reset)))

	snap, ok := o.store.Current()
	if !ok || snap.Generation != gen {
		o.scoreGuard.release(gen)
		return services.Wrap(services.ErrTransient, "pipeline", "retry", "snapshot superseded during retry setup", nil)
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.scoreGuard.release(gen)

		runCtx := logging.WithRun(o.bg, gen, sourceRef)
		o.retryScoreItems(runCtx, gen, snap, reset)
	}()
	return nil
}

func (o *Orchestrator) retryScoreItems(ctx context.Context, gen string, snap enrichment.Snapshot, items []int) {
	if o.scorer == nil || !o.scorer.Configured() {
		for _, idx := range items {
			o.failScore(gen, idx, missingScoreCredentials)
		}
		o.persistSnapshot(ctx, gen)
		return
	}

	limit := o.cfg.Pipeline.ScoreConcurrency
	if limit <= 0 {
		limit = 1
	}
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	for _, idx := range items {
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
		go func(idx int, p enrichment.Profile) {
			defer wg.Done()
			defer func() { <-sem }()
			o.retryScoreOne(ctx, gen, idx, p)
		}(idx, *attendee.Profile)
	}
	wg.Wait()
	o.persistSnapshot(ctx, gen)
}

func (o *Orchestrator) retryScoreOne(ctx context.Context, gen string, idx int, p enrichment.Profile) {
	var report enrichment.ScoreReport
	err := o.attemptWithBackoff(ctx, func() error {
		scoreCtx := ctx
		if o.cfg.Scoring.TimeoutSeconds > 0 {
			var cancel context.CancelFunc
			scoreCtx, cancel = context.WithTimeout(ctx, time.Duration(o.cfg.Scoring.TimeoutSeconds)*time.Second)
			defer cancel()
		}
		var scoreErr error
		report, scoreErr = o.scorer.Score(scoreCtx, p, o.cfg.Scoring.MaxSummaryChars)
		return scoreErr
	})
	if err != nil {
		message := services.Details(err)
		if message == "" {
			message = "scoring failed"
		}
		o.failScore(gen, idx, message)
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

// attemptWithBackoff runs op up to the configured attempt count, doubling the
// base delay between attempts. Non-retryable failures stop immediately.
func (o *Orchestrator) attemptWithBackoff(ctx context.Context, op func() error) error {
	attempts := o.cfg.Pipeline.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}
	delay := time.Duration(o.cfg.Pipeline.RetryBaseDelayMS) * time.Millisecond

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !services.Retryable(lastErr) || attempt == attempts {
			return lastErr
		}
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			delay *= 2
		}
	}
	return lastErr
}
