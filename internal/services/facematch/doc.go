// Package facematch wraps the external face recognition helper used to
// identify an attendee from a photo.
//
// The helper is an opaque subprocess: it receives a base64-encoded image and
// the path to a JSON file of candidate attendees, and prints one JSON object
// to stdout. Everything about the recognition pipeline (models, thresholds,
// preprocessing) lives in the helper; this package only handles process
// lifecycle, the candidate file, timeouts, and verdict parsing.
package facematch
