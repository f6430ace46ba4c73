// Command opptrace is the CLI companion to opptraced. It submits attendee
// batches, polls enrichment progress, and manages configuration.
package main
