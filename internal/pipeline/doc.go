// Package pipeline sequences attendee enrichment: a cached, rate-limited
// profile fetch stage followed by a concurrency-bounded scoring stage.
//
// Ingestion installs a fresh snapshot and returns immediately; the stages run
// on background goroutines and report exclusively through the store. Each
// stage holds its own reentrancy guard, so re-ingesting an active batch is a
// no-op while a new batch may supersede an old one (the store drops the
// superseded run's writes by generation). Failed items are only re-attempted
// through the explicit Retry operation.
package pipeline
