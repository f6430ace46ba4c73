// Package store owns the live enrichment snapshot and persists it to SQLite.
//
// The in-memory snapshot is the single source of truth while the daemon runs;
// every mutation goes through generation-checked transition methods so writes
// from superseded runs are dropped instead of corrupting a newer batch. Each
// ingestion and stage completion appends a full snapshot row to the database,
// and the newest row is restored on startup so progress survives restarts.
package store
