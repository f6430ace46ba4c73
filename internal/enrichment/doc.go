// Package enrichment defines the domain model for attendee enrichment: the
// attendee record with its two stage statuses, the normalized profile and
// score shapes, per-stage progress counters, and the snapshot that aggregates
// a batch.
//
// Snapshot methods implement the legal state transitions and keep the
// progress counters in lockstep with record statuses. They are not safe for
// concurrent use on their own; the store package serializes access.
package enrichment
