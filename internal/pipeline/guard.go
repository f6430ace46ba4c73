package pipeline

import "sync"

// runGuard serializes one stage of the pipeline. The fetch and score stages
// hold independent guards so a score pass never blocks a fresh ingestion's
// fetch pass.
//
// Acquire fails when a run for the same source reference is already active
// (re-ingestion no-op). A different source reference steals the guard; the
// superseded run keeps executing but its release becomes a no-op and its
// store writes are dropped as stale.
type runGuard struct {
	mu        sync.Mutex
	active    bool
	gen       string
	sourceRef string
}

func (g *runGuard) acquire(gen, sourceRef string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active && g.sourceRef == sourceRef {
		return false
	}
	g.active = true
	g.gen = gen
	g.sourceRef = sourceRef
	return true
}

// release clears the guard only if it still belongs to the given generation.
func (g *runGuard) release(gen string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gen == gen {
		g.active = false
	}
}

func (g *runGuard) running() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.active {
		return "", false
	}
	return g.gen, true
}
