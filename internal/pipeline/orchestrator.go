package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"opptrace/internal/config"
	"opptrace/internal/enrichment"
	"opptrace/internal/ingest"
	"opptrace/internal/logging"
	"opptrace/internal/profilecache"
	"opptrace/internal/services"
	"opptrace/internal/store"
)

// ProfileFetcher retrieves normalized profiles from the external provider.
type ProfileFetcher interface {
	Fetch(ctx context.Context, identity string) (enrichment.Profile, error)
	Configured() bool
}

// Scorer evaluates a fetched profile into a score report.
type Scorer interface {
	Score(ctx context.Context, profile enrichment.Profile, maxSummaryChars int) (enrichment.ScoreReport, error)
	Configured() bool
}

// RunState describes what the pipeline is doing right now.
type RunState struct {
	FetchRunning    bool   `json:"fetch_running"`
	ScoreRunning    bool   `json:"score_running"`
	Generation      string `json:"generation,omitempty"`
	SourceReference string `json:"source_reference,omitempty"`
}

// Orchestrator sequences the fetch and score stages over ingested batches.
// Stage work runs on background goroutines; the ingestion call returns as
// soon as the batch is validated and installed in the store.
type Orchestrator struct {
	cfg     *config.Config
	store   *store.Store
	cache   *profilecache.Cache
	fetcher ProfileFetcher
	scorer  Scorer
	logger  *slog.Logger

	fetchGuard runGuard
	scoreGuard runGuard
	limiter    *rate.Limiter

	bg     context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs an orchestrator. The cache may be unconfigured; fetcher and
// scorer may lack credentials, in which case their stages short-circuit.
func New(cfg *config.Config, st *store.Store, cache *profilecache.Cache, fetcher ProfileFetcher, scorer Scorer, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	var limiter *rate.Limiter
	if cfg.Pipeline.FetchRatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Pipeline.FetchRatePerSecond), 1)
	}
	bg, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		cfg:     cfg,
		store:   st,
		cache:   cache,
		fetcher: fetcher,
		scorer:  scorer,
		logger:  logging.NewComponentLogger(logger, "pipeline"),
		limiter: limiter,
		bg:      bg,
		cancel:  cancel,
	}
}

// Close cancels background work and waits for in-flight stage goroutines.
func (o *Orchestrator) Close() {
	o.cancel()
	o.wg.Wait()
}

// State reports the current run state for the status endpoint.
func (o *Orchestrator) State() RunState {
	state := RunState{}
	fetchGen, fetchRunning := o.fetchGuard.running()
	scoreGen, scoreRunning := o.scoreGuard.running()
	// The fetch guard stays held through the score phase to reject duplicate
	// ingests; once the score guard holds the same generation the fetch stage
	// has settled and only scoring is reported.
	if fetchRunning && scoreRunning && fetchGen == scoreGen {
		fetchRunning = false
	}
	if fetchRunning {
		state.FetchRunning = true
		state.Generation = fetchGen
	}
	if scoreRunning {
		state.ScoreRunning = true
		if state.Generation == "" {
			state.Generation = scoreGen
		}
	}
	if snap, ok := o.store.Current(); ok {
		if state.Generation == "" {
			state.Generation = snap.Generation
		}
		state.SourceReference = snap.SourceReference
	}
	return state
}

// Ingest validates a batch, installs a fresh snapshot, and schedules the
// enrichment run. It returns the run's generation as an acknowledgment; the
// outcome is only visible through polling.
//
// Re-ingesting while a run for the same source reference is active is a
// logged no-op: the active generation is returned with scheduled false.
func (o *Orchestrator) Ingest(ctx context.Context, batch *ingest.Batch) (gen string, scheduled bool, err error) {
	if batch == nil {
		return "", false, services.Wrap(services.ErrValidation, "pipeline", "ingest", "nil batch", nil)
	}

	gen = uuid.NewString()
	if !o.fetchGuard.acquire(gen, batch.SourceReference) {
		active, _ := o.fetchGuard.running()
		o.logger.Info("ingestion ignored, run already active for source",
			logging.String(logging.FieldSourceRef, batch.SourceReference),
			logging.String(logging.FieldGeneration, active))
		return active, false, nil
	}

	snap := enrichment.NewSnapshot(gen, batch.SourceReference, batch.Records())
	if err := o.store.Replace(ctx, snap); err != nil {
		o.fetchGuard.release(gen)
		return "", false, err
	}

	o.logger.Info("batch ingested",
		logging.String(logging.FieldGeneration, gen),
		logging.String(logging.FieldSourceRef, batch.SourceReference),
		logging.Int("attendees", len(snap.Attendees)),
		logging.Int("fetchable", snap.FetchProgress.Total))

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.fetchGuard.release(gen)

		runCtx := logging.WithRun(o.bg, gen, batch.SourceReference)
		o.runFetchStage(runCtx, gen)
		o.runScoreStage(runCtx, gen, batch.SourceReference)
	}()

	return gen, true, nil
}

// persistSnapshot appends the live snapshot, logging rather than failing the
// run when the write goes wrong.
func (o *Orchestrator) persistSnapshot(ctx context.Context, gen string) {
	if err := o.store.PersistCurrent(ctx); err != nil {
		o.logger.Warn("snapshot persistence failed",
			logging.String(logging.FieldGeneration, gen),
			logging.Error(err))
	}
}
