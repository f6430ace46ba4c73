// Package profile fetches attendee profiles from the external profile
// provider and normalizes the loosely-typed payloads into the fixed shape the
// rest of the pipeline consumes.
package profile
