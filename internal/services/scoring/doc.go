// Package scoring talks to an OpenRouter-style chat completion API to
// evaluate hackathon partnership potential from fetched profiles.
//
// The client issues JSON-only completion requests with bounded retry on
// transient HTTP failures, tolerates the formatting quirks models produce
// (code fences, prose around the payload, streaming-schema responses), and
// validates the returned evaluation against the 1-100 score bounds before
// anything reaches the snapshot.
package scoring
