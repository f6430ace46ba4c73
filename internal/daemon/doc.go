// Package daemon ties the enrichment pipeline, snapshot store, and profile
// cache together behind a single-instance background process and serves the
// polling HTTP API.
package daemon
