// Package api defines the transport-facing payload shapes for the polling
// HTTP interface and the conversions from internal enrichment types. Pollers
// never see internal types directly.
package api
