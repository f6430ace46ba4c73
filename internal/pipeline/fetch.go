package pipeline

import (
	"context"
	"strings"
	"sync"
	"time"

	"opptrace/internal/enrichment"
	"opptrace/internal/logging"
	"opptrace/internal/services"
	"opptrace/internal/services/profile"
)

const missingFetchCredentials = "profile provider credentials not configured"

// runFetchStage resolves every pending fetch record. Work is spread over a
// small worker pool; a shared rate limiter paces provider calls while cache
// hits bypass it entirely.
func (o *Orchestrator) runFetchStage(ctx context.Context, gen string) {
	logger := logging.WithContext(ctx, o.logger)

	snap, ok := o.store.Current()
	if !ok || snap.Generation != gen {
		return
	}

	var pending []int
	for i, attendee := range snap.Attendees {
		if attendee.FetchStatus == enrichment.FetchPending {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return
	}

	logger.Info("fetch stage started",
		logging.String(logging.FieldStage, "fetch"),
		logging.Int("items", len(pending)))

	// Credential check happens once per run. Without credentials every
	// pending item fails with a shared diagnostic and no call is attempted.
	if o.fetcher == nil || !o.fetcher.Configured() {
		for _, idx := range pending {
			o.failFetch(gen, idx, missingFetchCredentials)
		}
		logger.Warn("fetch stage short-circuited",
			logging.String(logging.FieldStage, "fetch"),
			logging.String(logging.FieldErrorHint, missingFetchCredentials))
		o.persistSnapshot(ctx, gen)
		return
	}

	workers := o.cfg.Pipeline.FetchConcurrency
	if workers <= 0 {
		workers = 1
	}
	if workers > len(pending) {
		workers = len(pending)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				o.fetchOne(ctx, gen, idx, snap.Attendees[idx].Identity)
			}
		}()
	}
	for _, idx := range pending {
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
	if current, ok := o.store.Current(); ok && current.Generation == gen {
		logger.Info("fetch stage finished",
			logging.String(logging.FieldStage, "fetch"),
			logging.Int("completed", current.FetchProgress.Completed),
			logging.Int("failed", current.FetchProgress.Failed))
	}
}

// fetchOne resolves a single record: cache first, then the provider.
func (o *Orchestrator) fetchOne(ctx context.Context, gen string, idx int, identity string) {
	logger := logging.WithContext(ctx, o.logger)

	if o.cache != nil {
		if cached, hit := o.cache.Lookup(identity); hit {
			o.completeFetch(gen, idx, identity, cached)
			logger.Debug("profile cache hit",
				logging.String(logging.FieldIdentity, identity),
				logging.Int(logging.FieldAttendee, idx))
			return
		}
	}

	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			o.failFetch(gen, idx, "fetch cancelled before provider call")
			return
		}
	}

	fetchCtx := ctx
	if o.cfg.Profile.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, time.Duration(o.cfg.Profile.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	fetched, err := o.fetcher.Fetch(fetchCtx, identity)
	if err != nil {
		message := services.Details(err)
		if message == "" {
			message = "profile fetch failed"
		}
		o.failFetch(gen, idx, message)
		logger.Warn("profile fetch failed",
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

func (o *Orchestrator) completeFetch(gen string, idx int, identity string, p enrichment.Profile) {
	if err := o.store.CompleteFetch(gen, idx, p); err != nil {
		o.logger.Debug("fetch completion dropped",
			logging.String(logging.FieldGeneration, gen),
			logging.String(logging.FieldIdentity, identity),
			logging.Error(err))
	}
}

func (o *Orchestrator) failFetch(gen string, idx int, message string) {
	if err := o.store.FailFetch(gen, idx, message); err != nil {
		o.logger.Debug("fetch failure dropped",
			logging.String(logging.FieldGeneration, gen),
			logging.Int(logging.FieldAttendee, idx),
			logging.Error(err))
	}
}
